package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"realtime_chat_service/internal/attachment/domain"
	"realtime_chat_service/internal/attachment/repository"
	"realtime_chat_service/pkg/database"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// sniffLen http.DetectContentType 只看前 512 bytes
const sniffLen = 512

// DeliverySource *amqp.Channel 的 Consume
type DeliverySource interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consumer 定義一個消息消費者，將所有必要的依賴注入進來
type Consumer struct {
	source      DeliverySource
	minioClient database.MinIOClientRepo
	repo        repository.AttachmentRepo
	queueName   string
	retryDelay  time.Duration
}

// NewConsumer 建構 Consumer 實例
func NewConsumer(source DeliverySource, minioClient database.MinIOClientRepo, repo repository.AttachmentRepo, queueName string) *Consumer {
	return &Consumer{
		source:      source,
		minioClient: minioClient,
		repo:        repo,
		queueName:   queueName,
		retryDelay:  10 * time.Second,
	}
}

// StartConsumer 開始消費訊息, 直到 ctx 結束或 channel 關閉
func (c *Consumer) StartConsumer(ctx context.Context) error {
	msgs, err := c.source.Consume(
		c.queueName,
		"",    // consumer tag，留空由系統分配
		false, // autoAck 為 false，使用手動確認
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("無法開始消費 RabbitMQ 訊息: %w", err)
	}

	logger.Log.Info("scan consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Info("RabbitMQ 消費 channel 已關閉")
				return nil
			}
			c.handle(ctx, d)
		case <-ctx.Done():
			logger.Log.Info("scan consumer stopped")
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var job domain.ScanJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		// 格式錯誤重送也不會成功, 直接丟棄
		logger.Log.Errorf("解析掃描工作訊息失敗", err)
		if err := d.Nack(false, false); err != nil {
			logger.Log.Errorf("Nack 訊息失敗", err)
		}
		return
	}

	status, err := processScanJob(ctx, job, c.minioClient, c.repo)
	if err != nil {
		if errors.Is(err, errprocess.ErrAttachmentNotFound) {
			logger.Log.Warn("attachment gone, drop job", zap.Uint("attachmentID", job.AttachmentID))
			_ = d.Ack(false)
			return
		}
		logger.Log.Errorf("處理掃描工作失敗", err, zap.Uint("attachmentID", job.AttachmentID))
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
		}
		if err := d.Nack(false, true); err != nil {
			logger.Log.Errorf("Nack 訊息失敗", err)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Log.Errorf("確認訊息失敗", err)
		return
	}
	logger.Log.Info("scan job done", zap.Uint("attachmentID", job.AttachmentID), zap.String("status", string(status)))
}

// processScanJob 檢查 object 前 512 bytes 是否符合副檔名:
// 符合標記 ready, 不符合刪除 object 並標記 rejected
func processScanJob(ctx context.Context, job domain.ScanJob, mClient database.MinIOClientRepo, repo repository.AttachmentRepo) (domain.AttachmentStatus, error) {
	a, err := repo.GetByID(ctx, job.AttachmentID)
	if err != nil {
		return "", err
	}
	if a.Status != string(domain.AttachmentUploaded) {
		return domain.AttachmentStatus(a.Status), nil
	}

	r, err := mClient.GetObject(ctx, job.ObjectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("取得附件失敗: %w", err)
	}
	defer r.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("讀取附件失敗: %w", err)
	}
	sniffed := http.DetectContentType(head[:n])

	if domain.MatchesSniffed(job.FileName, sniffed) {
		if err := repo.UpdateStatus(ctx, job.AttachmentID, domain.AttachmentReady); err != nil {
			return "", fmt.Errorf("更新附件狀態失敗: %w", err)
		}
		return domain.AttachmentReady, nil
	}

	logger.Log.Warn("attachment content mismatch",
		zap.Uint("attachmentID", job.AttachmentID),
		zap.String("file", job.FileName),
		zap.String("sniffed", sniffed))
	if err := mClient.RemoveObject(ctx, job.ObjectKey); err != nil {
		return "", fmt.Errorf("刪除附件失敗: %w", err)
	}
	if err := repo.UpdateStatus(ctx, job.AttachmentID, domain.AttachmentRejected); err != nil {
		return "", fmt.Errorf("更新附件狀態失敗: %w", err)
	}
	return domain.AttachmentRejected, nil
}
