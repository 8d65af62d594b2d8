package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg"
	errprocess "realtime_chat_service/pkg/err"
)

// memStore in-memory users / friend requests / rooms / messages for scenario tests
type memStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	requests map[string]*domain.FriendRequest
	rooms    map[string]*domain.Room
	messages map[string]*domain.Message
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*domain.User{},
		requests: map[string]*domain.FriendRequest{},
		rooms:    map[string]*domain.Room{},
		messages: map[string]*domain.Message{},
	}
}

func (s *memStore) addUser(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{ID: id, Username: id, Email: id + "@example.com", Status: domain.StatusOffline, CreatedAt: time.Now()}
	s.users[id] = u
	return u
}

func (s *memStore) user(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.users[id])
}

func (s *memStore) room(id string) *domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRoom(s.rooms[id])
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Friends = append([]string(nil), u.Friends...)
	c.BlockedUsers = append([]string(nil), u.BlockedUsers...)
	return &c
}

func copyRoom(r *domain.Room) *domain.Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Members = append([]domain.RoomMember(nil), r.Members...)
	c.UnreadCounts = make(map[string]int, len(r.UnreadCounts))
	for k, v := range r.UnreadCounts {
		c.UnreadCounts[k] = v
	}
	if r.LastMessage != nil {
		p := *r.LastMessage
		c.LastMessage = &p
	}
	return &c
}

func copyMessage(m *domain.Message) *domain.Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Reactions = append([]domain.Reaction{}, m.Reactions...)
	c.ReadBy = append([]domain.ReadReceipt{}, m.ReadBy...)
	return &c
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// memUsers UserRepository
type memUsers struct{ *memStore }

func (s memUsers) EnsureIndexes(context.Context) error { return nil }

func (s memUsers) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return errprocess.ErrEmailExists
		}
		if u.Username == user.Username {
			return errprocess.ErrUsernameExists
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errprocess.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s memUsers) FindByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (s memUsers) FindUsers(_ context.Context, q *domain.UserQuery) ([]*domain.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := []*domain.User{}
	for _, u := range s.users {
		if pkg.Contains(q.ExcludeIDs, u.ID) {
			continue
		}
		kw := strings.ToLower(q.Keyword)
		if kw != "" && !strings.Contains(strings.ToLower(u.Username), kw) && !strings.Contains(strings.ToLower(u.Email), kw) {
			continue
		}
		all = append(all, copyUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	total := int64(len(all))
	if q.Skip >= total {
		return []*domain.User{}, total, nil
	}
	all = all[q.Skip:]
	if q.Limit > 0 && int64(len(all)) > q.Limit {
		all = all[:q.Limit]
	}
	return all, total, nil
}

func (s memUsers) UpdateProfile(_ context.Context, id string, username, avatar *string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errprocess.ErrUserNotFound
	}
	if username != nil {
		u.Username = *username
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	return copyUser(u), nil
}

func (s memUsers) mutate(id string, fn func(u *domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errprocess.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (s memUsers) AddFriend(_ context.Context, id, friendID string) error {
	return s.mutate(id, func(u *domain.User) {
		if !pkg.Contains(u.Friends, friendID) {
			u.Friends = append(u.Friends, friendID)
		}
	})
}

func (s memUsers) RemoveFriend(_ context.Context, id, friendID string) error {
	return s.mutate(id, func(u *domain.User) { u.Friends = remove(u.Friends, friendID) })
}

func (s memUsers) AddBlocked(_ context.Context, id, targetID string) error {
	return s.mutate(id, func(u *domain.User) {
		if !pkg.Contains(u.BlockedUsers, targetID) {
			u.BlockedUsers = append(u.BlockedUsers, targetID)
		}
	})
}

func (s memUsers) RemoveBlocked(_ context.Context, id, targetID string) error {
	return s.mutate(id, func(u *domain.User) { u.BlockedUsers = remove(u.BlockedUsers, targetID) })
}

func (s memUsers) UpdatePresence(_ context.Context, id string, status domain.PresenceStatus, lastSeen time.Time) error {
	return s.mutate(id, func(u *domain.User) {
		u.Status = status
		u.LastSeen = lastSeen
	})
}

// memRequests FriendRequestRepository
type memRequests struct{ *memStore }

func (s memRequests) EnsureIndexes(context.Context) error { return nil }

func (s memRequests) Create(_ context.Context, req *domain.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.Status == domain.RequestPending && r.FromID == req.FromID && r.ToID == req.ToID {
			return errprocess.ErrRequestPending
		}
	}
	c := *req
	s.requests[req.ID] = &c
	return nil
}

func (s memRequests) FindByID(_ context.Context, id string) (*domain.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, errprocess.ErrFriendRequestNotFound
	}
	c := *r
	return &c, nil
}

func (s memRequests) FindPending(_ context.Context, fromID, toID string) (*domain.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.Status == domain.RequestPending && r.FromID == fromID && r.ToID == toID {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (s memRequests) ListPending(_ context.Context, userID string) (incoming, outgoing []*domain.FriendRequest, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	incoming, outgoing = []*domain.FriendRequest{}, []*domain.FriendRequest{}
	for _, r := range s.requests {
		if r.Status != domain.RequestPending {
			continue
		}
		c := *r
		if r.ToID == userID {
			incoming = append(incoming, &c)
		}
		if r.FromID == userID {
			outgoing = append(outgoing, &c)
		}
	}
	return incoming, outgoing, nil
}

func (s memRequests) UpdateStatus(_ context.Context, id string, from, to domain.FriendRequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s memRequests) DeletePendingBetween(_ context.Context, a, b string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.requests {
		if r.Status != domain.RequestPending {
			continue
		}
		if (r.FromID == a && r.ToID == b) || (r.FromID == b && r.ToID == a) {
			delete(s.requests, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) pendingBetween(a, b string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Status == domain.RequestPending && ((r.FromID == a && r.ToID == b) || (r.FromID == b && r.ToID == a)) {
			n++
		}
	}
	return n
}

// memRooms RoomRepository
type memRooms struct{ *memStore }

func (s memRooms) EnsureIndexes(context.Context) error { return nil }

func (s memRooms) CreateRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.DirectKey != "" {
		for _, r := range s.rooms {
			if r.DirectKey == room.DirectKey {
				return errprocess.ErrDuplicateDirect
			}
		}
	}
	s.rooms[room.ID] = copyRoom(room)
	return nil
}

func (s memRooms) FindByID(_ context.Context, id string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, errprocess.ErrRoomNotFound
	}
	return copyRoom(r), nil
}

func (s memRooms) FindDirectRoom(_ context.Context, q *domain.FindDirectRoomQuery) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.DirectKey(q.MemberA, q.MemberB)
	for _, r := range s.rooms {
		both := r.IsMember(q.MemberA) && r.IsMember(q.MemberB)
		if both && (r.DirectKey == key || r.IsDirect()) {
			return copyRoom(r), nil
		}
	}
	return nil, nil
}

func (s memRooms) FindMemberRooms(_ context.Context, userID string, scope repository.RoomScope) ([]*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Room{}
	for _, r := range s.rooms {
		if !r.IsMember(userID) {
			continue
		}
		switch scope {
		case repository.ScopeGroup:
			if r.IsPrivate && len(r.Members) <= 2 {
				continue
			}
		case repository.ScopeDirect:
			if !r.IsDirect() {
				continue
			}
		}
		out = append(out, copyRoom(r))
	}
	return out, nil
}

func (s memRooms) AddMember(_ context.Context, roomID, userID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok || r.IsMember(userID) {
		return false, nil
	}
	r.Members = append(r.Members, domain.RoomMember{UserID: userID, JoinedAt: at})
	if r.UnreadCounts == nil {
		r.UnreadCounts = map[string]int{}
	}
	r.UnreadCounts[userID] = 0
	return true, nil
}

func (s memRooms) RemoveMember(_ context.Context, roomID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok || !r.IsMember(userID) {
		return false, nil
	}
	members := r.Members[:0]
	for _, m := range r.Members {
		if m.UserID != userID {
			members = append(members, m)
		}
	}
	r.Members = members
	delete(r.UnreadCounts, userID)
	return true, nil
}

func (s memRooms) mutate(id string, fn func(r *domain.Room)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return errprocess.ErrRoomNotFound
	}
	fn(r)
	return nil
}

func (s memRooms) SetAdmin(_ context.Context, roomID, adminID string) error {
	return s.mutate(roomID, func(r *domain.Room) { r.AdminID = adminID })
}

func (s memRooms) SetLastMessage(_ context.Context, roomID string, p *domain.MessagePreview) error {
	return s.mutate(roomID, func(r *domain.Room) { r.LastMessage = p })
}

func (s memRooms) IncrementUnread(_ context.Context, roomID string, ids []string) error {
	return s.mutate(roomID, func(r *domain.Room) {
		for _, id := range ids {
			r.UnreadCounts[id]++
		}
	})
}

func (s memRooms) ResetUnread(_ context.Context, roomID, userID string) error {
	return s.mutate(roomID, func(r *domain.Room) { r.UnreadCounts[userID] = 0 })
}

// memMessages MessageRepository
type memMessages struct{ *memStore }

func (s memMessages) EnsureIndexes(context.Context) error { return nil }

func (s memMessages) Insert(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = copyMessage(msg)
	return nil
}

func (s memMessages) FindByID(_ context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, errprocess.ErrMessageNotFound
	}
	return copyMessage(m), nil
}

func (s memMessages) FindByRoom(_ context.Context, q *domain.MessageQuery) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Message{}
	for _, m := range s.messages {
		if m.RoomID != q.RoomID {
			continue
		}
		if !q.Before.IsZero() && !m.CreatedAt.Before(q.Before) {
			continue
		}
		if q.Keyword != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(q.Keyword)) {
			continue
		}
		out = append(out, copyMessage(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s memMessages) FindLatest(ctx context.Context, roomID string) (*domain.Message, error) {
	msgs, _ := s.FindByRoom(ctx, &domain.MessageQuery{RoomID: roomID, Limit: 1})
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[0], nil
}

func (s memMessages) mutate(id string, fn func(m *domain.Message)) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, errprocess.ErrMessageNotFound
	}
	fn(m)
	return copyMessage(m), nil
}

func (s memMessages) UpdateContent(_ context.Context, id, content string, at time.Time) (*domain.Message, error) {
	return s.mutate(id, func(m *domain.Message) {
		m.Content = content
		m.IsEdited = true
		m.EditedAt = &at
	})
}

func (s memMessages) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return errprocess.ErrMessageNotFound
	}
	delete(s.messages, id)
	return nil
}

func (s memMessages) SetReaction(_ context.Context, id, userID, emoji string) (*domain.Message, error) {
	return s.mutate(id, func(m *domain.Message) {
		kept := []domain.Reaction{}
		for _, r := range m.Reactions {
			if r.UserID != userID {
				kept = append(kept, r)
			}
		}
		m.Reactions = append(kept, domain.Reaction{UserID: userID, Emoji: emoji})
	})
}

func (s memMessages) RemoveReaction(_ context.Context, id, userID string) (*domain.Message, error) {
	return s.mutate(id, func(m *domain.Message) {
		kept := []domain.Reaction{}
		for _, r := range m.Reactions {
			if r.UserID != userID {
				kept = append(kept, r)
			}
		}
		m.Reactions = kept
	})
}

func (s memMessages) AddReadReceipt(_ context.Context, id, userID string, at time.Time) (bool, error) {
	added := false
	_, err := s.mutate(id, func(m *domain.Message) {
		if !m.IsReadBy(userID) {
			m.ReadBy = append(m.ReadBy, domain.ReadReceipt{UserID: userID, ReadAt: at})
			added = true
		}
	})
	return added, err
}

// chatFixture wires the engines over one memStore
type chatFixture struct {
	store *memStore
	rel   *RelationshipUseCase
	rooms *RoomUseCase
	msgs  *MessageUseCase
	hub   *Hub
}

func newChatFixture(users ...string) *chatFixture {
	s := newMemStore()
	for _, u := range users {
		s.addUser(u)
	}
	hub := NewHub(nil, nil)
	return &chatFixture{
		store: s,
		rel:   NewRelationshipUseCase(memUsers{s}, memRequests{s}, memRooms{s}),
		rooms: NewRoomUseCase(memUsers{s}, memRooms{s}, hub),
		msgs:  NewMessageUseCase(memRooms{s}, memMessages{s}, memUsers{s}, hub, nil),
		hub:   hub,
	}
}

// befriend 直接透過 request/accept 建立好友
func (f *chatFixture) befriend(a, b string) error {
	ctx := context.Background()
	res, err := f.rel.SendRequest(ctx, a, b)
	if err != nil {
		return err
	}
	if res.AutoAccepted {
		return nil
	}
	_, err = f.rel.AcceptRequest(ctx, b, res.Request.ID)
	return err
}

// recordingConn 記錄收到的 websocket response
type recordingConn struct {
	id   string
	user string
	mu   sync.Mutex
	got  []domain.WSResponse
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) UserID() string { return c.user }

func (c *recordingConn) Send(resp domain.WSResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, resp)
	return nil
}

func (c *recordingConn) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.got))
	for _, r := range c.got {
		out = append(out, r.Action)
	}
	return out
}
