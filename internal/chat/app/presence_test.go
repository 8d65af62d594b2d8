package app

import (
	"context"
	"errors"
	"testing"

	"realtime_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPresenceRegistry_Local(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.addUser("alice")
	p := NewPresenceRegistry(memUsers{s}, nil)

	require.NoError(t, p.Connect(ctx, "alice"))
	require.NoError(t, p.Connect(ctx, "alice"))
	assert.Equal(t, domain.StatusOnline, s.user("alice").Status)

	require.NoError(t, p.Disconnect(ctx, "alice"))
	assert.True(t, p.IsOnline("alice"))
	assert.Equal(t, domain.StatusOnline, s.user("alice").Status)

	require.NoError(t, p.Disconnect(ctx, "alice"))
	assert.False(t, p.IsOnline("alice"))
	alice := s.user("alice")
	assert.Equal(t, domain.StatusOffline, alice.Status)
	assert.False(t, alice.LastSeen.IsZero())

	// 多餘的 disconnect 無效
	require.NoError(t, p.Disconnect(ctx, "alice"))

	ids, err := p.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPresenceRegistry_SharedStore(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	store := new(MockPresenceRepository)

	// 另一個節點已有連線, 本機第一條連線不改變狀態
	store.On("Incr", ctx, "alice").Return(int64(2), nil)
	store.On("Decr", ctx, "alice").Return(int64(1), nil)
	store.On("OnlineUsers", ctx).Return([]string{"alice"}, nil)

	p := NewPresenceRegistry(users, store)
	require.NoError(t, p.Connect(ctx, "alice"))
	require.NoError(t, p.Disconnect(ctx, "alice"))

	ids, err := p.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	users.AssertNotCalled(t, "UpdatePresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestPresenceRegistry_StoreFailureFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserRepository)
	store := new(MockPresenceRepository)
	store.On("Incr", ctx, "alice").Return(int64(0), errors.New("redis down"))
	users.On("UpdatePresence", ctx, "alice", domain.StatusOnline, mock.Anything).Return(nil)

	p := NewPresenceRegistry(users, store)
	require.NoError(t, p.Connect(ctx, "alice"))

	users.AssertExpectations(t)
}
