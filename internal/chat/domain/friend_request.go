package domain

import "time"

// FriendRequestsCollection mongo collection name
const FriendRequestsCollection = "friend_requests"

// FriendRequestStatus friend request 狀態
type FriendRequestStatus string

const (
	// RequestPending waiting for the recipient
	RequestPending FriendRequestStatus = "pending"
	// RequestAccepted recipient accepted, or mutual request
	RequestAccepted FriendRequestStatus = "accepted"
	// RequestRejected recipient rejected
	RequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest 單一份好友邀請, 雙方都以 from_id / to_id 查詢同一筆資料
type FriendRequest struct {
	ID        string              `bson:"_id" json:"id"`
	FromID    string              `bson:"from_id" json:"from_id"`
	ToID      string              `bson:"to_id" json:"to_id"`
	Status    FriendRequestStatus `bson:"status" json:"status"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// FriendRequestView 附上對方資料
type FriendRequestView struct {
	FriendRequest
	From *UserProfile `json:"from,omitempty"`
	To   *UserProfile `json:"to,omitempty"`
}

// FriendRequestList incoming / outgoing pending requests
type FriendRequestList struct {
	Incoming []FriendRequestView `json:"incoming"`
	Outgoing []FriendRequestView `json:"outgoing"`
}

// Friendship 兩人關係
type Friendship struct {
	UserID            string `json:"user_id"`
	IsFriend          bool   `json:"is_friend"`
	HasPendingRequest bool   `json:"has_pending_request"`
	IsBlocked         bool   `json:"is_blocked"`
	IsBlockedBy       bool   `json:"is_blocked_by"`
}

// SendRequestResult sendRequest 結果, 互相邀請時直接成為好友
type SendRequestResult struct {
	Request      *FriendRequest `json:"request,omitempty"`
	AutoAccepted bool           `json:"auto_accepted"`
}
