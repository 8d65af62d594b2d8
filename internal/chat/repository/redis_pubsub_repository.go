package repository

import (
	"context"
	"encoding/json"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPubSub definition redis pub/sub, one channel per room
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
	}
}

// Publish 將 event 序列化後，發布到 room channel
func (r *RedisPubSub) Publish(ctx context.Context, ev *domain.RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, domain.RoomChannel(ev.RoomID), data).Err()
}

// Subscribe 以 pattern 訂閱所有 room channel，收到訊息後呼叫 handler 處理
func (r *RedisPubSub) Subscribe(ctx context.Context, handler func(ev *domain.RoomEvent)) error {
	sub := r.client.PSubscribe(ctx, domain.RoomChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var ev domain.RoomEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					logger.Log.Error("room event unmarshal err", zap.String("channel", m.Channel), zap.Error(err))
					continue
				}
				handler(&ev)
			case <-ctx.Done():
				logger.Log.Info("redis room subscription closed")
				return
			}
		}
	}()
	return nil
}
