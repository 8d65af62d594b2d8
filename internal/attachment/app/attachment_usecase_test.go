package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	chatdomain "realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/attachment/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

func pngUpload(name string) *chatdomain.FileUpload {
	body := []byte("\x89PNG\r\n\x1a\n0000")
	return &chatdomain.FileUpload{
		FileName:    name,
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	}
}

func newTestUseCase(publicURL string) (AttachmentUseCase, *MockMinIOClient, *MockAttachmentRepo, *MockRabbitChannel) {
	mc := new(MockMinIOClient)
	repo := new(MockAttachmentRepo)
	rabbit := new(MockRabbitChannel)
	mc.On("Bucket").Return("chat").Maybe()
	return NewAttachmentUseCase(mc, repo, rabbit, publicURL, 0), mc, repo, rabbit
}

func TestUpload_Success(t *testing.T) {
	uc, mc, repo, rabbit := newTestUseCase("http://cdn.local/")

	mc.On("PutObject", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "chat/r1/") && strings.HasSuffix(k, ".png")
	}), mock.Anything, int64(12), "image/png").Return(nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Attachment")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Attachment).ID = 7 }).
		Return(nil)
	rabbit.On("Publish", "", domain.QueueName, false, false, mock.Anything).Return(nil)

	url, err := uc.Upload(context.Background(), "u1", "r1", pngUpload("Photo.PNG"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://cdn.local/chat/chat/r1/"))

	created := repo.Calls[0].Arguments.Get(1).(*domain.Attachment)
	assert.Equal(t, string(domain.AttachmentUploaded), created.Status)
	assert.Equal(t, url, created.URL)

	msg := rabbit.Calls[0].Arguments.Get(4).(amqp.Publishing)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Contains(t, string(msg.Body), `"attachment_id":7`)
}

func TestUpload_AvatarKey(t *testing.T) {
	uc, mc, repo, rabbit := newTestUseCase("http://cdn.local")

	mc.On("PutObject", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "avatars/u1/")
	}), mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	rabbit.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := uc.Upload(context.Background(), "u1", "", pngUpload("me.png"))
	require.NoError(t, err)
	mc.AssertExpectations(t)
}

func TestUpload_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		roomID string
		file   *chatdomain.FileUpload
		want   error
	}{
		{"nil file", "r1", nil, errprocess.ErrInvalidParams},
		{"too large", "r1", &chatdomain.FileUpload{FileName: "a.png", ContentType: "image/png", Size: domain.DefaultMaxSize + 1, Body: strings.NewReader("x")}, errprocess.ErrFileTooLarge},
		{"bad extension", "r1", &chatdomain.FileUpload{FileName: "a.exe", ContentType: "application/octet-stream", Size: 1, Body: strings.NewReader("x")}, errprocess.ErrFileType},
		{"type mismatch", "r1", &chatdomain.FileUpload{FileName: "a.png", ContentType: "application/pdf", Size: 1, Body: strings.NewReader("x")}, errprocess.ErrFileType},
		{"avatar must be image", "", &chatdomain.FileUpload{FileName: "a.pdf", ContentType: "application/pdf", Size: 1, Body: strings.NewReader("x")}, errprocess.ErrFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, mc, _, _ := newTestUseCase("")
			_, err := uc.Upload(context.Background(), "u1", tt.roomID, tt.file)
			assert.ErrorIs(t, err, tt.want)
			mc.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpload_PutObjectFails(t *testing.T) {
	uc, mc, repo, _ := newTestUseCase("http://cdn.local")
	mc.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("minio down"))

	_, err := uc.Upload(context.Background(), "u1", "r1", pngUpload("a.png"))
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpload_CreateFailsRemovesObject(t *testing.T) {
	uc, mc, repo, rabbit := newTestUseCase("http://cdn.local")
	mc.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mc.On("RemoveObject", mock.Anything, mock.Anything).Return(nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := uc.Upload(context.Background(), "u1", "r1", pngUpload("a.png"))
	assert.Error(t, err)
	mc.AssertCalled(t, "RemoveObject", mock.Anything, mock.Anything)
	rabbit.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_PublishFailureStillReturnsURL(t *testing.T) {
	uc, mc, repo, rabbit := newTestUseCase("http://cdn.local")
	mc.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	rabbit.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	url, err := uc.Upload(context.Background(), "u1", "r1", pngUpload("a.png"))
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestUpload_PresignWithoutPublicURL(t *testing.T) {
	uc, mc, repo, rabbit := newTestUseCase("")
	mc.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mc.On("PresignGetURL", mock.Anything, mock.Anything, presignExpiry).Return("http://minio/signed", nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	rabbit.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	url, err := uc.Upload(context.Background(), "u1", "r1", pngUpload("a.png"))
	require.NoError(t, err)
	assert.Equal(t, "http://minio/signed", url)
}

func TestOpen(t *testing.T) {
	uc, mc, repo, _ := newTestUseCase("")
	repo.On("GetByID", mock.Anything, uint(1)).Return(&domain.Attachment{ID: 1, ObjectKey: "chat/r1/a.png", Status: string(domain.AttachmentReady)}, nil)
	repo.On("GetByID", mock.Anything, uint(2)).Return(&domain.Attachment{ID: 2, Status: string(domain.AttachmentRejected)}, nil)
	repo.On("GetByID", mock.Anything, uint(3)).Return(nil, errprocess.ErrAttachmentNotFound)
	mc.On("GetObject", mock.Anything, "chat/r1/a.png", mock.Anything).Return(io.NopCloser(strings.NewReader("data")), nil)

	a, r, err := uc.Open(context.Background(), 1)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uint(1), a.ID)
	body, _ := io.ReadAll(r)
	assert.Equal(t, "data", string(body))

	_, _, err = uc.Open(context.Background(), 2)
	assert.ErrorIs(t, err, errprocess.ErrAttachmentNotFound)
	_, _, err = uc.Open(context.Background(), 3)
	assert.ErrorIs(t, err, errprocess.ErrAttachmentNotFound)
}

func TestRequeuePending(t *testing.T) {
	uc, _, repo, rabbit := newTestUseCase("")
	repo.On("FindByStatus", mock.Anything, domain.AttachmentUploaded).Return([]domain.Attachment{{ID: 1}, {ID: 2}}, nil)
	rabbit.On("Publish", "", domain.QueueName, false, false, mock.Anything).Return(nil)

	n, err := uc.RequeuePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	rabbit.AssertNumberOfCalls(t, "Publish", 2)
}
