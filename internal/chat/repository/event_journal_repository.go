package repository

import (
	"context"
	"encoding/json"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// EventJournal append-only log of persisted room events
type EventJournal interface {
	Append(ctx context.Context, ev *domain.RoomEvent) error
	Close() error
}

type kafkaEventJournal struct {
	writer *kafka.Writer
}

// NewKafkaEventJournal journal keyed by room id, one room keeps its order on one partition
func NewKafkaEventJournal(w *kafka.Writer) EventJournal {
	return &kafkaEventJournal{writer: w}
}

func (j *kafkaEventJournal) Append(ctx context.Context, ev *domain.RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return j.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RoomID),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Event)},
		},
	})
}

func (j *kafkaEventJournal) Close() error {
	return j.writer.Close()
}
