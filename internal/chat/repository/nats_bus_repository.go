package repository

import (
	"context"
	"encoding/json"
	"strings"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const natsRoomSubjectPrefix = "chat.room."

// NatsBus room events over nats subjects chat.room.<id>
type NatsBus struct {
	nc *nats.Conn
}

// NewNatsBus create NatsBus
func NewNatsBus(nc *nats.Conn) *NatsBus {
	return &NatsBus{nc: nc}
}

func natsRoomSubject(roomID string) string {
	// nats subject token 不可含 "."
	return natsRoomSubjectPrefix + strings.ReplaceAll(roomID, ".", "_")
}

// Publish publish room event
func (b *NatsBus) Publish(_ context.Context, ev *domain.RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.nc.Publish(natsRoomSubject(ev.RoomID), data)
}

// Subscribe all room subjects until ctx is done
func (b *NatsBus) Subscribe(ctx context.Context, handler func(ev *domain.RoomEvent)) error {
	sub, err := b.nc.Subscribe(natsRoomSubjectPrefix+"*", func(msg *nats.Msg) {
		var ev domain.RoomEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Log.Error("room event unmarshal err", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		handler(&ev)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			logger.Log.Warn("nats unsubscribe failed", zap.Error(err))
		}
	}()
	return nil
}
