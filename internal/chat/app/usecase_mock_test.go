package app

import (
	"context"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

// FindByID moke find user by id
func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, userIDs []string) ([]*domain.User, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindUsers(ctx context.Context, q *domain.UserQuery) ([]*domain.User, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.User), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID string, username, avatar *string) (*domain.User, error) {
	args := m.Called(ctx, userID, username, avatar)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) AddFriend(ctx context.Context, userID, friendID string) error {
	return m.Called(ctx, userID, friendID).Error(0)
}

func (m *MockUserRepository) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return m.Called(ctx, userID, friendID).Error(0)
}

func (m *MockUserRepository) AddBlocked(ctx context.Context, userID, targetID string) error {
	return m.Called(ctx, userID, targetID).Error(0)
}

func (m *MockUserRepository) RemoveBlocked(ctx context.Context, userID, targetID string) error {
	return m.Called(ctx, userID, targetID).Error(0)
}

func (m *MockUserRepository) UpdatePresence(ctx context.Context, userID string, status domain.PresenceStatus, lastSeen time.Time) error {
	return m.Called(ctx, userID, status, lastSeen).Error(0)
}

// MockFriendRequestRepository Mock FriendRequestRepository
type MockFriendRequestRepository struct {
	mock.Mock
}

func (m *MockFriendRequestRepository) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockFriendRequestRepository) Create(ctx context.Context, req *domain.FriendRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockFriendRequestRepository) FindByID(ctx context.Context, requestID string) (*domain.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.FriendRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFriendRequestRepository) FindPending(ctx context.Context, fromID, toID string) (*domain.FriendRequest, error) {
	args := m.Called(ctx, fromID, toID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.FriendRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFriendRequestRepository) ListPending(ctx context.Context, userID string) ([]*domain.FriendRequest, []*domain.FriendRequest, error) {
	args := m.Called(ctx, userID)
	in, _ := args.Get(0).([]*domain.FriendRequest)
	out, _ := args.Get(1).([]*domain.FriendRequest)
	return in, out, args.Error(2)
}

func (m *MockFriendRequestRepository) UpdateStatus(ctx context.Context, requestID string, from, to domain.FriendRequestStatus) (bool, error) {
	args := m.Called(ctx, requestID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockFriendRequestRepository) DeletePendingBetween(ctx context.Context, userA, userB string) (int64, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// CreateRoom moke create room
func (m *MockRoomRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	return m.Called(ctx, room).Error(0)
}

// FindByID moke find room by room id
func (m *MockRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindDirectRoom moke find one direct room
func (m *MockRoomRepository) FindDirectRoom(ctx context.Context, q *domain.FindDirectRoomQuery) (*domain.Room, error) {
	args := m.Called(ctx, q)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoomRepository) FindMemberRooms(ctx context.Context, userID string, scope repository.RoomScope) ([]*domain.Room, error) {
	args := m.Called(ctx, userID, scope)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoomRepository) AddMember(ctx context.Context, roomID, userID string, joinedAt time.Time) (bool, error) {
	args := m.Called(ctx, roomID, userID, joinedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) RemoveMember(ctx context.Context, roomID, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) SetAdmin(ctx context.Context, roomID, adminID string) error {
	return m.Called(ctx, roomID, adminID).Error(0)
}

func (m *MockRoomRepository) SetLastMessage(ctx context.Context, roomID string, preview *domain.MessagePreview) error {
	return m.Called(ctx, roomID, preview).Error(0)
}

func (m *MockRoomRepository) IncrementUnread(ctx context.Context, roomID string, userIDs []string) error {
	return m.Called(ctx, roomID, userIDs).Error(0)
}

func (m *MockRoomRepository) ResetUnread(ctx context.Context, roomID, userID string) error {
	return m.Called(ctx, roomID, userID).Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Insert moke insert msg
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) FindByRoom(ctx context.Context, q *domain.MessageQuery) ([]*domain.Message, error) {
	args := m.Called(ctx, q)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) FindLatest(ctx context.Context, roomID string) (*domain.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) UpdateContent(ctx context.Context, messageID, content string, editedAt time.Time) (*domain.Message, error) {
	args := m.Called(ctx, messageID, content, editedAt)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) Delete(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

func (m *MockMessageRepository) SetReaction(ctx context.Context, messageID, userID, emoji string) (*domain.Message, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) RemoveReaction(ctx context.Context, messageID, userID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) AddReadReceipt(ctx context.Context, messageID, userID string, at time.Time) (bool, error) {
	args := m.Called(ctx, messageID, userID, at)
	return args.Bool(0), args.Error(1)
}

// MockPublisher Mock room event publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, roomID string, event domain.Event, payload interface{}, origin string) error {
	return m.Called(ctx, roomID, event, payload, origin).Error(0)
}

// MockFileStore Mock FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Upload(ctx context.Context, ownerID, roomID string, file *domain.FileUpload) (string, error) {
	args := m.Called(ctx, ownerID, roomID, file)
	return args.String(0), args.Error(1)
}

// MockPresenceRepository Mock PresenceRepository
type MockPresenceRepository struct {
	mock.Mock
}

func (m *MockPresenceRepository) Incr(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPresenceRepository) Decr(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPresenceRepository) OnlineUsers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventJournal Mock EventJournal
type MockEventJournal struct {
	mock.Mock
}

func (m *MockEventJournal) Append(ctx context.Context, ev *domain.RoomEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockEventJournal) Close() error {
	return m.Called().Error(0)
}
