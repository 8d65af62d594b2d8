package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoomUseCase - direct room 與群組管理
type RoomUseCase struct {
	userRepo repository.UserRepository
	roomRepo repository.RoomRepository
	pub      Publisher
}

// NewRoomUseCase init room ues case, pub nil 時不通知 hub
func NewRoomUseCase(u repository.UserRepository, r repository.RoomRepository, pub Publisher) *RoomUseCase {
	return &RoomUseCase{
		userRepo: u,
		roomRepo: r,
		pub:      pub,
	}
}

// GetOrCreateDirect 兩人必須是好友且雙方都沒有封鎖對方
func (uc *RoomUseCase) GetOrCreateDirect(ctx context.Context, userID, peerID string) (*domain.Room, error) {
	if userID == peerID {
		return nil, errprocess.ErrCannotAddSelf
	}
	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	peer, err := uc.userRepo.FindByID(ctx, peerID)
	if err != nil {
		return nil, err
	}
	if !user.IsFriend(peerID) {
		return nil, errprocess.ErrNotFriends
	}
	if user.HasBlocked(peerID) || peer.HasBlocked(userID) {
		return nil, errprocess.ErrBlocked
	}

	q := &domain.FindDirectRoomQuery{MemberA: userID, MemberB: peerID}
	room, err := uc.roomRepo.FindDirectRoom(ctx, q)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}

	now := time.Now().UTC()
	room = &domain.Room{
		ID:        uuid.New().String(),
		Name:      user.Username + " & " + peer.Username,
		IsPrivate: true,
		AdminID:   userID,
		Members: []domain.RoomMember{
			{UserID: userID, JoinedAt: now},
			{UserID: peerID, JoinedAt: now},
		},
		UnreadCounts: map[string]int{userID: 0, peerID: 0},
		DirectKey:    domain.DirectKey(userID, peerID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = uc.roomRepo.CreateRoom(ctx, room)
	if errors.Is(err, errprocess.ErrDuplicateDirect) {
		// 對方同時建立, 以已存在的 room 為準
		logger.Log.Debug("direct room created concurrently", zap.String("key", room.DirectKey))
		return uc.findExistingDirect(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (uc *RoomUseCase) findExistingDirect(ctx context.Context, q *domain.FindDirectRoomQuery) (*domain.Room, error) {
	room, err := uc.roomRepo.FindDirectRoom(ctx, q)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, errprocess.ErrRoomNotFound
	}
	return room, nil
}

// CreateGroup creator 為 admin, 只加入好友且雙方未封鎖的候選人
func (uc *RoomUseCase) CreateGroup(ctx context.Context, creatorID string, req *domain.CreateGroupReq) (*domain.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errprocess.ErrInvalidParams
	}
	creator, err := uc.userRepo.FindByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	added, _, err := uc.eligible(ctx, creator, req.MemberIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	members := []domain.RoomMember{{UserID: creatorID, JoinedAt: now}}
	unread := map[string]int{creatorID: 0}
	for _, id := range added {
		members = append(members, domain.RoomMember{UserID: id, JoinedAt: now})
		unread[id] = 0
	}

	room := &domain.Room{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		// 兩人 private 保留給 direct room
		IsPrivate:    req.IsPrivate && len(members) > 2,
		AdminID:      creatorID,
		Members:      members,
		UnreadCounts: unread,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.roomRepo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	logger.Log.Info("group room created", zap.String("room", room.ID), zap.Int("members", len(members)))
	return room, nil
}

// Join 公開群組, 與 admin 互有封鎖時拒絕
func (uc *RoomUseCase) Join(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsMember(userID) {
		return nil, errprocess.ErrAlreadyMember
	}
	if room.IsDirect() {
		return nil, errprocess.ErrDirectRoom
	}
	if room.IsPrivate {
		return nil, errprocess.ErrPrivateRoom
	}

	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if room.AdminID != "" {
		admin, err := uc.userRepo.FindByID(ctx, room.AdminID)
		if err != nil && !errors.Is(err, errprocess.ErrUserNotFound) {
			return nil, err
		}
		if admin != nil && (admin.HasBlocked(userID) || user.HasBlocked(admin.ID)) {
			return nil, errprocess.ErrBlocked
		}
	}

	ok, err := uc.roomRepo.AddMember(ctx, roomID, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errprocess.ErrAlreadyMember
	}
	return uc.roomRepo.FindByID(ctx, roomID)
}

// Leave removes membership and the caller's unread counter, direct rooms cannot be left
func (uc *RoomUseCase) Leave(ctx context.Context, roomID, userID string) error {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsMember(userID) {
		return errprocess.ErrNotMember
	}
	if room.DirectKey != "" {
		return errprocess.ErrDirectRoom
	}
	ok, err := uc.roomRepo.RemoveMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errprocess.ErrNotMember
	}
	uc.memberRemoved(ctx, roomID, userID)
	return nil
}

// memberRemoved 通知所有節點退訂該使用者, membership 已寫入所以失敗只記 log
func (uc *RoomUseCase) memberRemoved(ctx context.Context, roomID, userID string) {
	if uc.pub == nil {
		return
	}
	payload := domain.MemberRemovedPayload{RoomID: roomID, UserID: userID}
	if err := uc.pub.Publish(ctx, roomID, domain.EventMemberRemoved, payload, ""); err != nil {
		logger.Log.Warn("publish member removed failed", zap.String("room", roomID), zap.String("userID", userID), zap.Error(err))
	}
}

// AddMembers admin only, 已是成員者略過
func (uc *RoomUseCase) AddMembers(ctx context.Context, roomID, requesterID string, candidateIDs []string) (*domain.AddMembersResult, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.AdminID != requesterID {
		return nil, errprocess.ErrNotAdmin
	}
	if room.IsDirect() {
		return nil, errprocess.ErrDirectRoom
	}
	admin, err := uc.userRepo.FindByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	fresh := make([]string, 0, len(candidateIDs))
	skipped := []string{}
	for _, id := range pkg.Unique(candidateIDs) {
		if room.IsMember(id) {
			skipped = append(skipped, id)
			continue
		}
		fresh = append(fresh, id)
	}
	eligible, rejected, err := uc.eligible(ctx, admin, fresh)
	if err != nil {
		return nil, err
	}
	skipped = append(skipped, rejected...)

	added := []string{}
	now := time.Now().UTC()
	for _, id := range eligible {
		ok, err := uc.roomRepo.AddMember(ctx, roomID, id, now)
		if err != nil {
			return nil, err
		}
		if ok {
			added = append(added, id)
		} else {
			skipped = append(skipped, id)
		}
	}

	room, err = uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &domain.AddMembersResult{Room: room, Added: added, Skipped: skipped}, nil
}

// RemoveMember admin 可移除他人, 成員可移除自己; admin 在仍有其他成員時不可移除自己
func (uc *RoomUseCase) RemoveMember(ctx context.Context, roomID, requesterID, targetID string) error {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	isAdmin := room.AdminID == requesterID
	if !isAdmin && requesterID != targetID {
		return errprocess.ErrNotAdmin
	}
	if !room.IsMember(targetID) {
		return errprocess.ErrMemberNotInRoom
	}
	if room.DirectKey != "" {
		return errprocess.ErrDirectRoom
	}
	if targetID == room.AdminID && len(room.Members) > 1 {
		return errprocess.ErrAdminCannotLeave
	}

	ok, err := uc.roomRepo.RemoveMember(ctx, roomID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return errprocess.ErrMemberNotInRoom
	}
	uc.memberRemoved(ctx, roomID, targetID)
	return nil
}

// TransferAdmin admin 轉移給其他成員
func (uc *RoomUseCase) TransferAdmin(ctx context.Context, roomID, requesterID, newAdminID string) (*domain.Room, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.AdminID != requesterID {
		return nil, errprocess.ErrNotAdmin
	}
	if !room.IsMember(newAdminID) {
		return nil, errprocess.ErrMemberNotInRoom
	}
	if newAdminID == requesterID {
		return room, nil
	}
	if err := uc.roomRepo.SetAdmin(ctx, roomID, newAdminID); err != nil {
		return nil, err
	}
	room.AdminID = newAdminID
	return room, nil
}

// ListRooms group listing, direct rooms excluded
func (uc *RoomUseCase) ListRooms(ctx context.Context, userID string) ([]domain.RoomView, error) {
	rooms, err := uc.roomRepo.FindMemberRooms(ctx, userID, repository.ScopeGroup)
	if err != nil {
		return nil, err
	}
	views := make([]domain.RoomView, 0, len(rooms))
	for _, r := range rooms {
		if r.IsDirect() {
			continue
		}
		views = append(views, domain.RoomView{Room: r, UnreadCount: r.UnreadFor(userID)})
	}
	return views, nil
}

// GetRoom members only
func (uc *RoomUseCase) GetRoom(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(userID) {
		return nil, errprocess.ErrNotMember
	}
	return room, nil
}

// UnreadCounts every room of userID with a non-zero counter
func (uc *RoomUseCase) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	rooms, err := uc.roomRepo.FindMemberRooms(ctx, userID, repository.ScopeAll)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rooms))
	for _, r := range rooms {
		if n := r.UnreadFor(userID); n > 0 {
			out[r.ID] = n
		}
	}
	return out, nil
}

// eligible 過濾候選人: 必須是 owner 的好友, 雙方都沒封鎖對方
func (uc *RoomUseCase) eligible(ctx context.Context, owner *domain.User, candidateIDs []string) (ok, rejected []string, err error) {
	ok, rejected = []string{}, []string{}
	ids := make([]string, 0, len(candidateIDs))
	for _, id := range pkg.Unique(candidateIDs) {
		if id == owner.ID {
			continue
		}
		if !owner.IsFriend(id) || owner.HasBlocked(id) {
			rejected = append(rejected, id)
			continue
		}
		ids = append(ids, id)
	}
	users, err := uc.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	found := make(map[string]*domain.User, len(users))
	for _, u := range users {
		found[u.ID] = u
	}
	for _, id := range ids {
		u, exists := found[id]
		if !exists || u.HasBlocked(owner.ID) {
			rejected = append(rejected, id)
			continue
		}
		ok = append(ok, id)
	}
	return ok, rejected, nil
}
