package repository

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const presenceKey = "chat:presence"

// decrScript 減一, 歸零時移除 field
var decrScript = redis.NewScript(`
local n = redis.call("HINCRBY", KEYS[1], ARGV[1], -1)
if n <= 0 then
  redis.call("HDEL", KEYS[1], ARGV[1])
  return 0
end
return n
`)

// PresenceRepository connection counters shared by every node
type PresenceRepository interface {
	// Incr returns the new connection count of userID
	Incr(ctx context.Context, userID string) (int64, error)
	// Decr returns the remaining count, 0 means offline
	Decr(ctx context.Context, userID string) (int64, error)
	OnlineUsers(ctx context.Context) ([]string, error)
}

type redisPresenceRepository struct {
	client *redis.Client
}

// NewRedisPresenceRepository create presence store on a redis hash
func NewRedisPresenceRepository(client *redis.Client) PresenceRepository {
	return &redisPresenceRepository{client: client}
}

func (r *redisPresenceRepository) Incr(ctx context.Context, userID string) (int64, error) {
	return r.client.HIncrBy(ctx, presenceKey, userID, 1).Result()
}

func (r *redisPresenceRepository) Decr(ctx context.Context, userID string) (int64, error) {
	res, err := decrScript.Run(ctx, r.client, []string{presenceKey}, userID).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, nil
}

func (r *redisPresenceRepository) OnlineUsers(ctx context.Context) ([]string, error) {
	return r.client.HKeys(ctx, presenceKey).Result()
}
