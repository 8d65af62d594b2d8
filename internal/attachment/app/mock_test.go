package app

import (
	"context"
	"io"
	"sync"
	"time"

	"realtime_chat_service/internal/attachment/domain"

	"github.com/minio/minio-go/v7"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/mock"
)

// MockMinIOClient 是 MinIOClient 的 Mock
type MockMinIOClient struct {
	mock.Mock
}

// PutObject 模擬 MinIO 上傳行為
func (m *MockMinIOClient) PutObject(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectName, r, size, contentType)
	return args.Error(0)
}

// GetObject 模擬 MinIO 取得object
func (m *MockMinIOClient) GetObject(ctx context.Context, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, objectName, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockMinIOClient) RemoveObject(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

// PresignGetURL 模擬 MinIO presign url
func (m *MockMinIOClient) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.Get(0).(string), args.Error(1)
}

func (m *MockMinIOClient) Bucket() string {
	return m.Called().String(0)
}

// MockAttachmentRepo 是 AttachmentRepo 的 Mock
type MockAttachmentRepo struct {
	mock.Mock
}

func (m *MockAttachmentRepo) AutoMigrate() error {
	return m.Called().Error(0)
}

func (m *MockAttachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAttachmentRepo) GetByID(ctx context.Context, id uint) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentRepo) UpdateStatus(ctx context.Context, id uint, status domain.AttachmentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockAttachmentRepo) FindByStatus(ctx context.Context, status domain.AttachmentStatus) ([]domain.Attachment, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Attachment), args.Error(1)
}

// MockRabbitChannel 是 RabbitRepo 的 Mock
type MockRabbitChannel struct {
	mock.Mock
}

func (m *MockRabbitChannel) GetRabbit() *amqp.Channel {
	return nil
}

// Publish 模擬 RabbitMQ 發佈
func (m *MockRabbitChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

// fakeSource 直接回傳測試 channel
type fakeSource struct {
	ch  chan amqp.Delivery
	err error
}

func (f *fakeSource) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.ch, f.err
}

// fakeAck 記錄 ack/nack
type fakeAck struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}
