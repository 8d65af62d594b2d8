package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"realtime_chat_service/internal/attachment/app"
	"realtime_chat_service/internal/attachment/domain"
	"realtime_chat_service/internal/attachment/repository"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.AttachmentWorker, config.EnvConfig.AttachmentWorkerLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.AttachmentWorker](config.EnvConfig.AttachmentWorker, config.EnvConfig.AttachmentWorkerYAMLPath)

	// 1. 連線 PostgreSQL
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	db, err := database.NewPGConnection(database.Connection{
		ConnectStr: dsn,

		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries",
			zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
	}

	attachmentRepo := repository.NewAttachmentRepo(db)
	if err := attachmentRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("資料表遷移失敗", zap.Error(err))
	}

	// 2. 初始化 MinIO 客戶端
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:   fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:       cfg.MinIO.User,
		Password:   cfg.MinIO.Password,
		BucketName: cfg.MinIO.BucketName,
		UseSSL:     cfg.MinIO.UseSSL,

		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: cfg.MinIO.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to minio after retries", zap.String("host", cfg.MinIO.Host), zap.Error(err))
	}

	// 3. RabbitMQ
	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: cfg.RabbitMQ.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("RabbitMQ 連線失敗", zap.Error(err))
	}
	defer conn.Close()

	rabbitChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, cfg.RabbitMQ.RetryInterval)
	if err != nil {
		logger.Log.Fatal("取得 RabbitMQ Channel 失敗", zap.Error(err))
	}
	defer rabbitChannel.Close()

	if err := database.DeclareDurableQueue(rabbitChannel, domain.QueueName); err != nil {
		logger.Log.Fatal("Queue Declare failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 補發上次停機前未掃描的工作
	usecase := app.NewAttachmentUseCase(minioClient, attachmentRepo, database.NewRabbitRepository(rabbitChannel), cfg.MinIO.PublicURL, 0)
	if n, err := usecase.RequeuePending(ctx); err != nil {
		logger.Log.Warn("requeue pending scan jobs failed", zap.Error(err))
	} else if n > 0 {
		logger.Log.Info("requeued pending scan jobs", zap.Int("count", n))
	}

	consumer := app.NewConsumer(rabbitChannel, minioClient, attachmentRepo, domain.QueueName)
	if err := consumer.StartConsumer(ctx); err != nil {
		logger.Log.Fatal("scan consumer failed", zap.Error(err))
	}
}
