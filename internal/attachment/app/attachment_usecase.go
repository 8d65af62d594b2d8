package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	chatdomain "realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/attachment/domain"
	"realtime_chat_service/internal/attachment/repository"
	"realtime_chat_service/pkg/database"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// presignExpiry 沒有 public url 時使用, MinIO 上限 7 天
const presignExpiry = 7 * 24 * time.Hour

// AttachmentUseCase 這裡封裝了對外提供的應用服務
type AttachmentUseCase interface {
	Upload(ctx context.Context, ownerID, roomID string, file *chatdomain.FileUpload) (string, error)
	Open(ctx context.Context, id uint) (*domain.Attachment, io.ReadCloser, error)
	RequeuePending(ctx context.Context) (int, error)
}

type attachmentUseCase struct {
	MinioClient   database.MinIOClientRepo
	Repo          repository.AttachmentRepo
	RabbitChannel database.RabbitRepo // 發布掃描工作
	publicURL     string
	maxSize       int64
}

// NewAttachmentUseCase publicURL 為空時改用 presigned url
func NewAttachmentUseCase(minIO database.MinIOClientRepo,
	repo repository.AttachmentRepo,
	rabbitChannel database.RabbitRepo,
	publicURL string,
	maxSize int64,
) AttachmentUseCase {
	if maxSize <= 0 {
		maxSize = domain.DefaultMaxSize
	}
	return &attachmentUseCase{
		MinioClient:   minIO,
		Repo:          repo,
		RabbitChannel: rabbitChannel,
		publicURL:     strings.TrimRight(publicURL, "/"),
		maxSize:       maxSize,
	}
}

// objectKey chat/<room>/<uuid><ext>, roomID 為空代表 avatar
func objectKey(ownerID, roomID, fileName string) string {
	name := uuid.New().String() + domain.Ext(fileName)
	if roomID == "" {
		return fmt.Sprintf("avatars/%s/%s", ownerID, name)
	}
	return fmt.Sprintf("chat/%s/%s", roomID, name)
}

// Upload 上傳到 MinIO, 寫入 metadata 後發布掃描工作
func (s *attachmentUseCase) Upload(ctx context.Context, ownerID, roomID string, file *chatdomain.FileUpload) (string, error) {
	if file == nil || file.Body == nil {
		return "", errprocess.ErrInvalidParams
	}
	if err := domain.Validate(file.FileName, file.ContentType, file.Size, s.maxSize); err != nil {
		return "", err
	}
	if roomID == "" && !domain.IsImage(file.ContentType) {
		return "", errprocess.ErrFileType
	}

	key := objectKey(ownerID, roomID, file.FileName)
	// 最多讀 size bytes
	body := io.LimitReader(file.Body, file.Size)
	if err := s.MinioClient.PutObject(ctx, key, body, file.Size, file.ContentType); err != nil {
		errMsg := fmt.Sprintf("fileName[%s] 上傳 MinIO 失敗 : %v", file.FileName, err)
		return "", errprocess.Set(errMsg)
	}

	url, err := s.url(ctx, key)
	if err != nil {
		return "", err
	}

	a := domain.Attachment{
		OwnerID:     ownerID,
		RoomID:      roomID,
		ObjectKey:   key,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Size:        file.Size,
		Status:      string(domain.AttachmentUploaded),
		URL:         url,
	}
	if err := s.Repo.Create(ctx, &a); err != nil {
		if rmErr := s.MinioClient.RemoveObject(ctx, key); rmErr != nil {
			logger.Log.Warn("remove orphan object failed", zap.String("key", key), zap.Error(rmErr))
		}
		errMsg := fmt.Sprintf("fileName[%s] 建立附件記錄失敗 : %v", file.FileName, err)
		return "", errprocess.Set(errMsg)
	}

	// 掃描失敗不影響上傳結果, RequeuePending 會補發
	if err := s.publish(a); err != nil {
		logger.Log.Warn("publish scan job failed", zap.Uint("attachmentID", a.ID), zap.Error(err))
	}

	logger.Log.Info("attachment uploaded",
		zap.Uint("attachmentID", a.ID),
		zap.String("owner", ownerID),
		zap.String("key", key),
		zap.Int64("size", file.Size))
	return url, nil
}

func (s *attachmentUseCase) url(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicURL, s.MinioClient.Bucket(), key), nil
	}
	u, err := s.MinioClient.PresignGetURL(ctx, key, presignExpiry)
	if err != nil {
		return "", errprocess.Internal("presign url", err)
	}
	return u, nil
}

func (s *attachmentUseCase) publish(a domain.Attachment) error {
	job := domain.ScanJob{
		AttachmentID: a.ID,
		ObjectKey:    a.ObjectKey,
		FileName:     a.FileName,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.RabbitChannel.Publish(
		"",               // default exchange
		domain.QueueName, // routing key
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
}

// Open 回傳附件與內容, rejected 視為不存在
func (s *attachmentUseCase) Open(ctx context.Context, id uint) (*domain.Attachment, io.ReadCloser, error) {
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if a.Status == string(domain.AttachmentRejected) {
		return nil, nil, errprocess.ErrAttachmentNotFound
	}
	r, err := s.MinioClient.GetObject(ctx, a.ObjectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, errprocess.Internal("get object", err)
	}
	return a, r, nil
}

// RequeuePending 重新發布仍在 uploaded 的掃描工作
func (s *attachmentUseCase) RequeuePending(ctx context.Context) (int, error) {
	list, err := s.Repo.FindByStatus(ctx, domain.AttachmentUploaded)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range list {
		if err := s.publish(a); err != nil {
			return n, errprocess.Internal("requeue scan job", err)
		}
		n++
	}
	return n, nil
}
