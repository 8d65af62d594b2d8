package handlers

import (
	"context"
	"io"
	"time"

	attachmentdomain "realtime_chat_service/internal/attachment/domain"
	"realtime_chat_service/internal/chat/domain"
	memberapp "realtime_chat_service/internal/member/app"
	memberdomain "realtime_chat_service/internal/member/domain"

	"github.com/stretchr/testify/mock"
)

func retOf[T any](args mock.Arguments, i int) T {
	var zero T
	if args.Get(i) == nil {
		return zero
	}
	return args.Get(i).(T)
}

// MockMemberUseCase 是 MemberUseCase 的 Mock
type MockMemberUseCase struct {
	mock.Mock
}

func (m *MockMemberUseCase) Register(ctx context.Context, req *memberdomain.RegisterReq) (*domain.User, error) {
	args := m.Called(ctx, req)
	return retOf[*domain.User](args, 0), args.Error(1)
}

func (m *MockMemberUseCase) FindMember(ctx context.Context, q *memberdomain.MemberQuery) (*memberdomain.Member, error) {
	args := m.Called(ctx, q)
	return retOf[*memberdomain.Member](args, 0), args.Error(1)
}

func (m *MockMemberUseCase) Login(ctx context.Context, email, password string, now time.Time) (*memberapp.LoginResult, error) {
	args := m.Called(ctx, email, password, now)
	return retOf[*memberapp.LoginResult](args, 0), args.Error(1)
}

func (m *MockMemberUseCase) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockMemberUseCase) ForceLogout(ctx context.Context, memberID string) error {
	return m.Called(ctx, memberID).Error(0)
}

func (m *MockMemberUseCase) CheckSessionTimeout(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockMemberUseCase) ReconnectSession(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockMemberUseCase) ValidateSession(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockMemberUseCase) Profile(ctx context.Context, memberID string) (*domain.User, error) {
	args := m.Called(ctx, memberID)
	return retOf[*domain.User](args, 0), args.Error(1)
}

func (m *MockMemberUseCase) UpdateProfile(ctx context.Context, memberID string, username *string) (*domain.User, error) {
	args := m.Called(ctx, memberID, username)
	return retOf[*domain.User](args, 0), args.Error(1)
}

func (m *MockMemberUseCase) UpdateAvatar(ctx context.Context, memberID string, file *domain.FileUpload) (*domain.User, error) {
	args := m.Called(ctx, memberID, file)
	return retOf[*domain.User](args, 0), args.Error(1)
}

// MockRelationship 是 RelationshipService 的 Mock
type MockRelationship struct {
	mock.Mock
}

func (m *MockRelationship) SendRequest(ctx context.Context, fromID, toID string) (*domain.SendRequestResult, error) {
	args := m.Called(ctx, fromID, toID)
	return retOf[*domain.SendRequestResult](args, 0), args.Error(1)
}

func (m *MockRelationship) AcceptRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error) {
	args := m.Called(ctx, userID, requestID)
	return retOf[*domain.FriendRequest](args, 0), args.Error(1)
}

func (m *MockRelationship) RejectRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error) {
	args := m.Called(ctx, userID, requestID)
	return retOf[*domain.FriendRequest](args, 0), args.Error(1)
}

func (m *MockRelationship) CancelRequest(ctx context.Context, userID, otherID string) error {
	return m.Called(ctx, userID, otherID).Error(0)
}

func (m *MockRelationship) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return m.Called(ctx, userID, friendID).Error(0)
}

func (m *MockRelationship) BlockUser(ctx context.Context, userID, targetID string) error {
	return m.Called(ctx, userID, targetID).Error(0)
}

func (m *MockRelationship) UnblockUser(ctx context.Context, userID, targetID string) error {
	return m.Called(ctx, userID, targetID).Error(0)
}

func (m *MockRelationship) ListRequests(ctx context.Context, userID string) (*domain.FriendRequestList, error) {
	args := m.Called(ctx, userID)
	return retOf[*domain.FriendRequestList](args, 0), args.Error(1)
}

func (m *MockRelationship) ListFriends(ctx context.Context, userID string) ([]domain.FriendView, error) {
	args := m.Called(ctx, userID)
	return retOf[[]domain.FriendView](args, 0), args.Error(1)
}

func (m *MockRelationship) ListUsers(ctx context.Context, userID string, page, limit int64) (*domain.UserPage, error) {
	args := m.Called(ctx, userID, page, limit)
	return retOf[*domain.UserPage](args, 0), args.Error(1)
}

func (m *MockRelationship) SearchUsers(ctx context.Context, userID, query string) ([]domain.UserView, error) {
	args := m.Called(ctx, userID, query)
	return retOf[[]domain.UserView](args, 0), args.Error(1)
}

func (m *MockRelationship) CheckFriendship(ctx context.Context, userID, otherID string) (*domain.Friendship, error) {
	args := m.Called(ctx, userID, otherID)
	return retOf[*domain.Friendship](args, 0), args.Error(1)
}

func (m *MockRelationship) ListBlocked(ctx context.Context, userID string) ([]domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	return retOf[[]domain.UserProfile](args, 0), args.Error(1)
}

// MockRooms 是 RoomService 的 Mock
type MockRooms struct {
	mock.Mock
}

func (m *MockRooms) GetOrCreateDirect(ctx context.Context, userID, peerID string) (*domain.Room, error) {
	args := m.Called(ctx, userID, peerID)
	return retOf[*domain.Room](args, 0), args.Error(1)
}

func (m *MockRooms) CreateGroup(ctx context.Context, creatorID string, req *domain.CreateGroupReq) (*domain.Room, error) {
	args := m.Called(ctx, creatorID, req)
	return retOf[*domain.Room](args, 0), args.Error(1)
}

func (m *MockRooms) Join(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID, userID)
	return retOf[*domain.Room](args, 0), args.Error(1)
}

func (m *MockRooms) Leave(ctx context.Context, roomID, userID string) error {
	return m.Called(ctx, roomID, userID).Error(0)
}

func (m *MockRooms) AddMembers(ctx context.Context, roomID, requesterID string, candidateIDs []string) (*domain.AddMembersResult, error) {
	args := m.Called(ctx, roomID, requesterID, candidateIDs)
	return retOf[*domain.AddMembersResult](args, 0), args.Error(1)
}

func (m *MockRooms) RemoveMember(ctx context.Context, roomID, requesterID, targetID string) error {
	return m.Called(ctx, roomID, requesterID, targetID).Error(0)
}

func (m *MockRooms) TransferAdmin(ctx context.Context, roomID, requesterID, newAdminID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID, requesterID, newAdminID)
	return retOf[*domain.Room](args, 0), args.Error(1)
}

func (m *MockRooms) ListRooms(ctx context.Context, userID string) ([]domain.RoomView, error) {
	args := m.Called(ctx, userID)
	return retOf[[]domain.RoomView](args, 0), args.Error(1)
}

func (m *MockRooms) GetRoom(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID, userID)
	return retOf[*domain.Room](args, 0), args.Error(1)
}

func (m *MockRooms) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	args := m.Called(ctx, userID)
	return retOf[map[string]int](args, 0), args.Error(1)
}

// MockMessages 是 MessageService 的 Mock
type MockMessages struct {
	mock.Mock
}

func (m *MockMessages) Send(ctx context.Context, senderID string, req *domain.SendMessageReq) (*domain.Message, error) {
	args := m.Called(ctx, senderID, req)
	return retOf[*domain.Message](args, 0), args.Error(1)
}

func (m *MockMessages) SendFile(ctx context.Context, senderID, roomID, caption, replyTo string, file *domain.FileUpload) (*domain.Message, error) {
	args := m.Called(ctx, senderID, roomID, caption, replyTo, file)
	return retOf[*domain.Message](args, 0), args.Error(1)
}

func (m *MockMessages) Edit(ctx context.Context, userID, messageID, content string) (*domain.Message, error) {
	args := m.Called(ctx, userID, messageID, content)
	return retOf[*domain.Message](args, 0), args.Error(1)
}

func (m *MockMessages) Delete(ctx context.Context, userID, messageID string) error {
	return m.Called(ctx, userID, messageID).Error(0)
}

func (m *MockMessages) AddReaction(ctx context.Context, userID, messageID, emoji string) (*domain.Message, error) {
	args := m.Called(ctx, userID, messageID, emoji)
	return retOf[*domain.Message](args, 0), args.Error(1)
}

func (m *MockMessages) RemoveReaction(ctx context.Context, userID, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, userID, messageID)
	return retOf[*domain.Message](args, 0), args.Error(1)
}

func (m *MockMessages) MarkRead(ctx context.Context, userID, messageID string) error {
	return m.Called(ctx, userID, messageID).Error(0)
}

func (m *MockMessages) MarkRoomRead(ctx context.Context, userID, roomID string) error {
	return m.Called(ctx, userID, roomID).Error(0)
}

func (m *MockMessages) ListMessages(ctx context.Context, userID, roomID string, before time.Time, limit int64) (*domain.MessagePage, error) {
	args := m.Called(ctx, userID, roomID, before, limit)
	return retOf[*domain.MessagePage](args, 0), args.Error(1)
}

func (m *MockMessages) Search(ctx context.Context, userID, roomID, query string) ([]*domain.Message, error) {
	args := m.Called(ctx, userID, roomID, query)
	return retOf[[]*domain.Message](args, 0), args.Error(1)
}

// MockFiles 是 FileService 的 Mock
type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) Open(ctx context.Context, id uint) (*attachmentdomain.Attachment, io.ReadCloser, error) {
	args := m.Called(ctx, id)
	return retOf[*attachmentdomain.Attachment](args, 0), retOf[io.ReadCloser](args, 1), args.Error(2)
}
