package handlers

import (
	"context"
	"io"
	"time"

	attachmentdomain "realtime_chat_service/internal/attachment/domain"
	"realtime_chat_service/internal/chat/domain"
)

// RelationshipService friend / block 操作
type RelationshipService interface {
	SendRequest(ctx context.Context, fromID, toID string) (*domain.SendRequestResult, error)
	AcceptRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error)
	RejectRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error)
	CancelRequest(ctx context.Context, userID, otherID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	BlockUser(ctx context.Context, userID, targetID string) error
	UnblockUser(ctx context.Context, userID, targetID string) error
	ListRequests(ctx context.Context, userID string) (*domain.FriendRequestList, error)
	ListFriends(ctx context.Context, userID string) ([]domain.FriendView, error)
	ListUsers(ctx context.Context, userID string, page, limit int64) (*domain.UserPage, error)
	SearchUsers(ctx context.Context, userID, query string) ([]domain.UserView, error)
	CheckFriendship(ctx context.Context, userID, otherID string) (*domain.Friendship, error)
	ListBlocked(ctx context.Context, userID string) ([]domain.UserProfile, error)
}

// RoomService room 操作
type RoomService interface {
	GetOrCreateDirect(ctx context.Context, userID, peerID string) (*domain.Room, error)
	CreateGroup(ctx context.Context, creatorID string, req *domain.CreateGroupReq) (*domain.Room, error)
	Join(ctx context.Context, roomID, userID string) (*domain.Room, error)
	Leave(ctx context.Context, roomID, userID string) error
	AddMembers(ctx context.Context, roomID, requesterID string, candidateIDs []string) (*domain.AddMembersResult, error)
	RemoveMember(ctx context.Context, roomID, requesterID, targetID string) error
	TransferAdmin(ctx context.Context, roomID, requesterID, newAdminID string) (*domain.Room, error)
	ListRooms(ctx context.Context, userID string) ([]domain.RoomView, error)
	GetRoom(ctx context.Context, roomID, userID string) (*domain.Room, error)
	UnreadCounts(ctx context.Context, userID string) (map[string]int, error)
}

// MessageService 訊息操作
type MessageService interface {
	Send(ctx context.Context, senderID string, req *domain.SendMessageReq) (*domain.Message, error)
	SendFile(ctx context.Context, senderID, roomID, caption, replyTo string, file *domain.FileUpload) (*domain.Message, error)
	Edit(ctx context.Context, userID, messageID, content string) (*domain.Message, error)
	Delete(ctx context.Context, userID, messageID string) error
	AddReaction(ctx context.Context, userID, messageID, emoji string) (*domain.Message, error)
	RemoveReaction(ctx context.Context, userID, messageID string) (*domain.Message, error)
	MarkRead(ctx context.Context, userID, messageID string) error
	MarkRoomRead(ctx context.Context, userID, roomID string) error
	ListMessages(ctx context.Context, userID, roomID string, before time.Time, limit int64) (*domain.MessagePage, error)
	Search(ctx context.Context, userID, roomID, query string) ([]*domain.Message, error)
}

// FileService 讀取附件內容
type FileService interface {
	Open(ctx context.Context, id uint) (*attachmentdomain.Attachment, io.ReadCloser, error)
}
