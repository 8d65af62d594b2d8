package domain

import (
	"time"

	"realtime_chat_service/pkg"
)

// PresenceStatus 上線狀態
type PresenceStatus string

const (
	// StatusOnline at least one socket connected
	StatusOnline PresenceStatus = "online"
	// StatusAway connected but idle
	StatusAway PresenceStatus = "away"
	// StatusOffline no socket connected
	StatusOffline PresenceStatus = "offline"
)

// UsersCollection mongo collection name
const UsersCollection = "users"

// User 聊天使用者資料, ID 與 member 的 MemberID 相同
type User struct {
	ID           string         `bson:"_id" json:"id"`
	Username     string         `bson:"username" json:"username"`
	Email        string         `bson:"email" json:"email"`
	Avatar       string         `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Status       PresenceStatus `bson:"status" json:"status"`
	LastSeen     time.Time      `bson:"last_seen" json:"last_seen"`
	Friends      []string       `bson:"friends" json:"-"`
	BlockedUsers []string       `bson:"blocked_users" json:"-"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
}

// IsFriend B in A.friends
func (u *User) IsFriend(userID string) bool {
	return pkg.Contains(u.Friends, userID)
}

// HasBlocked u blocked userID
func (u *User) HasBlocked(userID string) bool {
	return pkg.Contains(u.BlockedUsers, userID)
}

// Profile 對外公開欄位
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Status:   u.Status,
		LastSeen: u.LastSeen,
	}
}

// UserProfile public user projection
type UserProfile struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Avatar   string         `json:"avatar,omitempty"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
}

// UserView 搜尋/列表用的使用者投影, 關係旗標由當前狀態推導
type UserView struct {
	UserProfile
	IsFriend          bool `json:"is_friend"`
	HasPendingRequest bool `json:"has_pending_request"`
	IsBlocked         bool `json:"is_blocked"`
}

// FriendView 好友列表: 好友資料 + direct room 最後一則訊息與未讀數
type FriendView struct {
	UserProfile
	RoomID      string          `json:"room_id,omitempty"`
	LastMessage *MessagePreview `json:"last_message,omitempty"`
	UnreadCount int             `json:"unread_count"`
}

// UserQuery 查詢使用者條件
type UserQuery struct {
	// Keyword case-insensitive match on username or email
	Keyword    string
	ExcludeIDs []string
	Skip       int64
	Limit      int64
}

// UserPage 分頁結果
type UserPage struct {
	Users []UserView `json:"users"`
	Page  int64      `json:"page"`
	Limit int64      `json:"limit"`
	Total int64      `json:"total"`
}
