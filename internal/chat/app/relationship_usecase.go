package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultUserPageLimit = 50
	searchUserLimit      = 20
)

// RelationshipUseCase 好友邀請與封鎖
type RelationshipUseCase struct {
	userRepo    repository.UserRepository
	requestRepo repository.FriendRequestRepository
	roomRepo    repository.RoomRepository
}

// NewRelationshipUseCase init relationship use case
func NewRelationshipUseCase(
	u repository.UserRepository,
	fr repository.FriendRequestRepository,
	r repository.RoomRepository,
) *RelationshipUseCase {
	return &RelationshipUseCase{
		userRepo:    u,
		requestRepo: fr,
		roomRepo:    r,
	}
}

// SendRequest A 邀請 B, 若 B 已邀請 A 則直接成為好友
func (uc *RelationshipUseCase) SendRequest(ctx context.Context, fromID, toID string) (*domain.SendRequestResult, error) {
	if fromID == toID {
		return nil, errprocess.ErrCannotAddSelf
	}
	from, to, err := uc.pair(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if from.IsFriend(toID) {
		return nil, errprocess.ErrAlreadyFriends
	}
	if from.HasBlocked(toID) || to.HasBlocked(fromID) {
		return nil, errprocess.ErrBlocked
	}

	pending, err := uc.requestRepo.FindPending(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, errprocess.ErrRequestPending
	}

	// mutual request short-circuit
	reverse, err := uc.requestRepo.FindPending(ctx, toID, fromID)
	if err != nil {
		return nil, err
	}
	if reverse != nil {
		ok, err := uc.requestRepo.UpdateStatus(ctx, reverse.ID, domain.RequestPending, domain.RequestAccepted)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := uc.befriend(ctx, fromID, toID); err != nil {
				return nil, err
			}
			reverse.Status = domain.RequestAccepted
			return &domain.SendRequestResult{Request: reverse, AutoAccepted: true}, nil
		}
		// reverse request 已被處理, fall through 建立新的邀請
	}

	now := time.Now().UTC()
	req := &domain.FriendRequest{
		ID:        uuid.New().String(),
		FromID:    fromID,
		ToID:      toID,
		Status:    domain.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	logger.Log.Info("friend request sent", zap.String("from", fromID), zap.String("to", toID))
	return &domain.SendRequestResult{Request: req}, nil
}

// AcceptRequest 只有收件人可以接受
func (uc *RelationshipUseCase) AcceptRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error) {
	req, err := uc.recipientRequest(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	ok, err := uc.requestRepo.UpdateStatus(ctx, req.ID, domain.RequestPending, domain.RequestAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errprocess.ErrRequestProcessed
	}
	if err := uc.befriend(ctx, req.FromID, req.ToID); err != nil {
		return nil, err
	}
	req.Status = domain.RequestAccepted
	return req, nil
}

// RejectRequest 不改變好友名單
func (uc *RelationshipUseCase) RejectRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error) {
	req, err := uc.recipientRequest(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	ok, err := uc.requestRepo.UpdateStatus(ctx, req.ID, domain.RequestPending, domain.RequestRejected)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errprocess.ErrRequestProcessed
	}
	req.Status = domain.RequestRejected
	return req, nil
}

// CancelRequest removes pending requests of the pair in both directions, no-op when none
func (uc *RelationshipUseCase) CancelRequest(ctx context.Context, userID, otherID string) error {
	if userID == otherID {
		return errprocess.ErrCannotAddSelf
	}
	_, err := uc.requestRepo.DeletePendingBetween(ctx, userID, otherID)
	return err
}

// RemoveFriend symmetric removal
func (uc *RelationshipUseCase) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return errprocess.ErrCannotAddSelf
	}
	if _, _, err := uc.pair(ctx, userID, friendID); err != nil {
		return err
	}
	return uc.unfriend(ctx, userID, friendID)
}

// BlockUser 移除好友關係與雙向 pending 邀請後加入封鎖名單
func (uc *RelationshipUseCase) BlockUser(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return errprocess.ErrCannotAddSelf
	}
	user, _, err := uc.pair(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if user.HasBlocked(targetID) {
		return errprocess.ErrAlreadyBlocked
	}

	if err := uc.unfriend(ctx, userID, targetID); err != nil {
		return err
	}
	if _, err := uc.requestRepo.DeletePendingBetween(ctx, userID, targetID); err != nil {
		return err
	}
	if err := uc.userRepo.AddBlocked(ctx, userID, targetID); err != nil {
		return err
	}
	logger.Log.Info("user blocked", zap.String("user", userID), zap.String("target", targetID))
	return nil
}

// UnblockUser only removes target from the caller's list
func (uc *RelationshipUseCase) UnblockUser(ctx context.Context, userID, targetID string) error {
	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasBlocked(targetID) {
		return errprocess.ErrNotBlocked
	}
	return uc.userRepo.RemoveBlocked(ctx, userID, targetID)
}

// ListRequests pending incoming/outgoing with the other side's profile
func (uc *RelationshipUseCase) ListRequests(ctx context.Context, userID string) (*domain.FriendRequestList, error) {
	incoming, outgoing, err := uc.requestRepo.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(incoming)+len(outgoing))
	for _, r := range incoming {
		ids = append(ids, r.FromID)
	}
	for _, r := range outgoing {
		ids = append(ids, r.ToID)
	}
	profiles, err := uc.profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	list := &domain.FriendRequestList{
		Incoming: make([]domain.FriendRequestView, 0, len(incoming)),
		Outgoing: make([]domain.FriendRequestView, 0, len(outgoing)),
	}
	for _, r := range incoming {
		list.Incoming = append(list.Incoming, domain.FriendRequestView{FriendRequest: *r, From: profiles[r.FromID]})
	}
	for _, r := range outgoing {
		list.Outgoing = append(list.Outgoing, domain.FriendRequestView{FriendRequest: *r, To: profiles[r.ToID]})
	}
	return list, nil
}

// ListFriends 好友與 direct room 的最後訊息、未讀數; 未讀多者在前, 其次最後訊息時間新者在前
func (uc *RelationshipUseCase) ListFriends(ctx context.Context, userID string) ([]domain.FriendView, error) {
	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	friends, err := uc.userRepo.FindByIDs(ctx, user.Friends)
	if err != nil {
		return nil, err
	}
	directs, err := uc.roomRepo.FindMemberRooms(ctx, userID, repository.ScopeDirect)
	if err != nil {
		return nil, err
	}
	byPeer := make(map[string]*domain.Room, len(directs))
	for _, r := range directs {
		peer := r.Peer(userID)
		if prev, ok := byPeer[peer]; ok && !prev.CreatedAt.After(r.CreatedAt) {
			continue
		}
		byPeer[peer] = r
	}

	views := make([]domain.FriendView, 0, len(friends))
	for _, f := range friends {
		v := domain.FriendView{UserProfile: f.Profile()}
		if r, ok := byPeer[f.ID]; ok {
			v.RoomID = r.ID
			v.LastMessage = r.LastMessage
			v.UnreadCount = r.UnreadFor(userID)
		}
		views = append(views, v)
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].UnreadCount != views[j].UnreadCount {
			return views[i].UnreadCount > views[j].UnreadCount
		}
		return lastMessageAt(views[i].LastMessage).After(lastMessageAt(views[j].LastMessage))
	})
	return views, nil
}

// ListUsers all users except self, paged
func (uc *RelationshipUseCase) ListUsers(ctx context.Context, userID string, page, limit int64) (*domain.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultUserPageLimit
	}
	me, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, total, err := uc.userRepo.FindUsers(ctx, &domain.UserQuery{
		ExcludeIDs: []string{userID},
		Skip:       (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	views, err := uc.annotate(ctx, me, users)
	if err != nil {
		return nil, err
	}
	return &domain.UserPage{Users: views, Page: page, Limit: limit, Total: total}, nil
}

// SearchUsers 排除自己與自己封鎖的使用者, 空字串回傳空列表
func (uc *RelationshipUseCase) SearchUsers(ctx context.Context, userID, query string) ([]domain.UserView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.UserView{}, nil
	}
	me, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, _, err := uc.userRepo.FindUsers(ctx, &domain.UserQuery{
		Keyword:    query,
		ExcludeIDs: append([]string{userID}, me.BlockedUsers...),
		Limit:      searchUserLimit,
	})
	if err != nil {
		return nil, err
	}
	return uc.annotate(ctx, me, users)
}

// CheckFriendship relationship flags between userID and otherID
func (uc *RelationshipUseCase) CheckFriendship(ctx context.Context, userID, otherID string) (*domain.Friendship, error) {
	me, other, err := uc.pair(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	pending, err := uc.hasPending(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	return &domain.Friendship{
		UserID:            otherID,
		IsFriend:          me.IsFriend(otherID),
		HasPendingRequest: pending,
		IsBlocked:         me.HasBlocked(otherID),
		IsBlockedBy:       other.HasBlocked(userID),
	}, nil
}

// ListBlocked profiles the caller has blocked
func (uc *RelationshipUseCase) ListBlocked(ctx context.Context, userID string) ([]domain.UserProfile, error) {
	me, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := uc.userRepo.FindByIDs(ctx, me.BlockedUsers)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

func (uc *RelationshipUseCase) pair(ctx context.Context, a, b string) (*domain.User, *domain.User, error) {
	ua, err := uc.userRepo.FindByID(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	ub, err := uc.userRepo.FindByID(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	return ua, ub, nil
}

func (uc *RelationshipUseCase) recipientRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error) {
	req, err := uc.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ToID != userID {
		return nil, errprocess.ErrNotRecipient
	}
	if req.Status != domain.RequestPending {
		return nil, errprocess.ErrRequestProcessed
	}
	return req, nil
}

// befriend $addToSet 兩邊, 重複呼叫無副作用
func (uc *RelationshipUseCase) befriend(ctx context.Context, a, b string) error {
	if err := uc.userRepo.AddFriend(ctx, a, b); err != nil {
		return err
	}
	return uc.userRepo.AddFriend(ctx, b, a)
}

func (uc *RelationshipUseCase) unfriend(ctx context.Context, a, b string) error {
	if err := uc.userRepo.RemoveFriend(ctx, a, b); err != nil {
		return err
	}
	return uc.userRepo.RemoveFriend(ctx, b, a)
}

func (uc *RelationshipUseCase) hasPending(ctx context.Context, a, b string) (bool, error) {
	for _, p := range [][2]string{{a, b}, {b, a}} {
		req, err := uc.requestRepo.FindPending(ctx, p[0], p[1])
		if err != nil {
			return false, err
		}
		if req != nil {
			return true, nil
		}
	}
	return false, nil
}

func (uc *RelationshipUseCase) annotate(ctx context.Context, me *domain.User, users []*domain.User) ([]domain.UserView, error) {
	incoming, outgoing, err := uc.requestRepo.ListPending(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]bool, len(incoming)+len(outgoing))
	for _, r := range incoming {
		pending[r.FromID] = true
	}
	for _, r := range outgoing {
		pending[r.ToID] = true
	}

	views := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, domain.UserView{
			UserProfile:       u.Profile(),
			IsFriend:          me.IsFriend(u.ID),
			HasPendingRequest: pending[u.ID],
			IsBlocked:         me.HasBlocked(u.ID),
		})
	}
	return views, nil
}

func (uc *RelationshipUseCase) profiles(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error) {
	users, err := uc.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.UserProfile, len(users))
	for _, u := range users {
		p := u.Profile()
		out[u.ID] = &p
	}
	return out, nil
}

func lastMessageAt(p *domain.MessagePreview) time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.CreatedAt
}
