package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// PresenceRegistry 每位使用者的連線數, 第一條連線上線, 最後一條離線
type PresenceRegistry struct {
	mu     sync.Mutex
	counts map[string]int

	userRepo repository.UserRepository
	// store nil 時只看本機計數
	store repository.PresenceRepository
}

// NewPresenceRegistry create presence registry
func NewPresenceRegistry(u repository.UserRepository, store repository.PresenceRepository) *PresenceRegistry {
	return &PresenceRegistry{
		counts:   make(map[string]int),
		userRepo: u,
		store:    store,
	}
}

// Connect register one connection of userID
func (p *PresenceRegistry) Connect(ctx context.Context, userID string) error {
	p.mu.Lock()
	p.counts[userID]++
	n := int64(p.counts[userID])
	p.mu.Unlock()

	if p.store != nil {
		total, err := p.store.Incr(ctx, userID)
		if err != nil {
			logger.Log.Warn("presence incr failed", zap.String("user", userID), zap.Error(err))
		} else {
			n = total
		}
	}
	if n != 1 {
		return nil
	}
	return p.userRepo.UpdatePresence(ctx, userID, domain.StatusOnline, time.Now().UTC())
}

// Disconnect release one connection of userID
func (p *PresenceRegistry) Disconnect(ctx context.Context, userID string) error {
	p.mu.Lock()
	if p.counts[userID] == 0 {
		p.mu.Unlock()
		return nil
	}
	p.counts[userID]--
	n := int64(p.counts[userID])
	if n == 0 {
		delete(p.counts, userID)
	}
	p.mu.Unlock()

	if p.store != nil {
		remain, err := p.store.Decr(ctx, userID)
		if err != nil {
			logger.Log.Warn("presence decr failed", zap.String("user", userID), zap.Error(err))
		} else {
			n = remain
		}
	}
	if n > 0 {
		return nil
	}
	return p.userRepo.UpdatePresence(ctx, userID, domain.StatusOffline, time.Now().UTC())
}

// IsOnline at least one local connection
func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID] > 0
}

// OnlineUsers cluster-wide when a store is configured
func (p *PresenceRegistry) OnlineUsers(ctx context.Context) ([]string, error) {
	if p.store != nil {
		return p.store.OnlineUsers(ctx)
	}
	p.mu.Lock()
	ids := make([]string, 0, len(p.counts))
	for id := range p.counts {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	sort.Strings(ids)
	return ids, nil
}
