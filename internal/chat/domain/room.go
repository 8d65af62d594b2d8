package domain

import (
	"sort"
	"strings"
	"time"
)

// RoomsCollection mongo collection name
const RoomsCollection = "rooms"

// Room 聊天室, 兩人且 private 為 direct room, 其餘皆為 group room
type Room struct {
	ID           string          `bson:"_id" json:"id"`
	Name         string          `bson:"name" json:"name"`
	Description  string          `bson:"description,omitempty" json:"description,omitempty"`
	IsPrivate    bool            `bson:"is_private" json:"is_private"`
	AdminID      string          `bson:"admin_id" json:"admin_id"`
	Members      []RoomMember    `bson:"members" json:"members"`
	UnreadCounts map[string]int  `bson:"unread_counts" json:"unread_counts,omitempty"`
	LastMessage  *MessagePreview `bson:"last_message,omitempty" json:"last_message,omitempty"`
	// DirectKey 只在 direct 建立路徑設定, unique index 去除併發重複
	DirectKey string    `bson:"direct_key,omitempty" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// RoomMember membership entry
type RoomMember struct {
	UserID   string    `bson:"user_id" json:"user_id"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

// IsDirect exactly two members and private
func (r *Room) IsDirect() bool {
	return r.IsPrivate && len(r.Members) == 2
}

// IsMember userID in members
func (r *Room) IsMember(userID string) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs member id list in join order
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// Peer direct room 另一位成員
func (r *Room) Peer(userID string) string {
	for _, m := range r.Members {
		if m.UserID != userID {
			return m.UserID
		}
	}
	return ""
}

// UnreadFor unread counter of userID
func (r *Room) UnreadFor(userID string) int {
	if r.UnreadCounts == nil {
		return 0
	}
	return r.UnreadCounts[userID]
}

// DirectKey 無序 pair 的固定簽章
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// FindDirectRoomQuery direct room lookup
type FindDirectRoomQuery struct {
	MemberA string
	MemberB string
}

// RoomView 房間列表投影
type RoomView struct {
	*Room
	UnreadCount int `json:"unread_count"`
}

// CreateGroupReq createGroup 參數
type CreateGroupReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"members"`
	IsPrivate   bool     `json:"is_private"`
}

// AddMembersResult 實際加入與略過的成員
type AddMembersResult struct {
	Room    *Room    `json:"room"`
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}
