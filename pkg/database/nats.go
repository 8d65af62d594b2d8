package database

import (
	"time"

	"realtime_chat_service/pkg/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NewNatsConnection connect nats with reconnect handlers
func NewNatsConnection(n NatsConnection) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(n.MaxReconnects),
		nats.ReconnectWait(n.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Log.Warn("disconnected from nats", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Info("reconnected to nats", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Log.Info("nats connection closed")
		}),
		nats.Timeout(10 * time.Second),
	}

	return nats.Connect(n.URL, opts...)
}
