package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	_ "realtime_chat_service/cmd/chat_service/docs" // 引入 Swagger 文档
	"realtime_chat_service/internal/api/handlers"
	apirouter "realtime_chat_service/internal/api/router"
	attachmentapp "realtime_chat_service/internal/attachment/app"
	attachmentdomain "realtime_chat_service/internal/attachment/domain"
	attachmentrepo "realtime_chat_service/internal/attachment/repository"
	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/internal/chat/router"
	memberapp "realtime_chat_service/internal/member/app"
	memberdomain "realtime_chat_service/internal/member/domain"
	memberrepo "realtime_chat_service/internal/member/repository"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/encrypt"
	"realtime_chat_service/pkg/logger"
	testtool "realtime_chat_service/pkg/test_tool"
	"realtime_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	token.SetSecret(cfg.JWTSecret)
	if cfg.SessionTTL > 0 {
		token.SetExpiration(cfg.SessionTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 建立 Mongo 連線 (identity / room / message)
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal("Unable to connect to mongoDB database after retries",
			zap.String("host", cfg.MongoSQL.Host), zap.Error(err))
	}
	defer mongo.Close(context.Background())

	userRepo := repository.NewMongoUserRepository(mongo.Database)
	requestRepo := repository.NewMongoFriendRequestRepository(mongo.Database)
	roomRepo := repository.NewMongoChatRepository(mongo.Database)
	msgRepo := repository.NewMongoChatMessageRepository(mongo.Database)
	for name, ensure := range map[string]func(context.Context) error{
		"users":           userRepo.EnsureIndexes,
		"friend_requests": requestRepo.EnsureIndexes,
		"rooms":           roomRepo.EnsureIndexes,
		"messages":        msgRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.Log.Fatal("ensure indexes failed", zap.String("collection", name), zap.Error(err))
		}
	}

	// 2. 建立 Redis 連線 (session / presence / pub-sub)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, config.GetRedisAddr(), cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis err", zap.Error(err))
	}
	defer redisClient.Close()

	// 3. fan-out bus
	var bus app.EventBus
	switch cfg.Fanout.Bus {
	case "nats":
		nc, err := database.NewNatsConnection(database.NatsConnection{
			URL:           cfg.Fanout.NatsURL,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("connect nats err", zap.Error(err))
		}
		defer nc.Close()
		bus = repository.NewNatsBus(nc)
	case "local":
		logger.Log.Warn("fanout bus is local, events stay on this node")
	default:
		bus = repository.NewRedisPubSub(redisClient)
	}

	var journal repository.EventJournal
	if len(cfg.KafKa.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.KafKa.Brokers,
			Topic:         cfg.KafKa.Topic,
			RetryCount:    cfg.KafKa.RetryCount,
			RetryInterval: cfg.KafKa.RetryInterval,
		})
		if err != nil {
			logger.Log.Fatal("Kafka Writer 建立失敗", zap.Error(err))
		}
		journal = repository.NewKafkaEventJournal(writer)
		defer journal.Close()
	}

	hub := app.NewHub(bus, journal)
	go func() {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Log.Fatal("fanout bus subscribe failed", zap.Error(err))
		}
	}()

	// 4. PostgreSQL: member 憑證 (pgx) 與附件 metadata (gorm)
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pgConn := database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	}
	pool, err := database.NewDatabaseConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries",
			zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
	}
	defer pool.Close()

	memberRepo := memberrepo.NewMemberRepository(pool)
	if err := memberRepo.Migrate(ctx); err != nil {
		logger.Log.Fatal("member table migrate failed", zap.Error(err))
	}

	gormDB, err := database.NewPGConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to open gorm postgreSQL connection", zap.Error(err))
	}
	attachments := attachmentrepo.NewAttachmentRepo(gormDB)
	if err := attachments.AutoMigrate(); err != nil {
		logger.Log.Fatal("資料表遷移失敗", zap.Error(err))
	}

	// 5. MinIO + RabbitMQ: 附件上傳與掃描工作
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

	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
	mqConn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: cfg.RabbitMQ.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("RabbitMQ 連線失敗", zap.Error(err))
	}
	defer mqConn.Close()

	rabbitChannel, err := database.GetRabbitMQChannelWithRetry(mqConn, cfg.RabbitMQ.RetryCount, cfg.RabbitMQ.RetryInterval)
	if err != nil {
		logger.Log.Fatal("取得 RabbitMQ Channel 失敗", zap.Error(err))
	}
	defer rabbitChannel.Close()
	if err := database.DeclareDurableQueue(rabbitChannel, attachmentdomain.QueueName); err != nil {
		logger.Log.Fatal("Queue Declare failed", zap.Error(err))
	}

	attachmentUC := attachmentapp.NewAttachmentUseCase(minioClient, attachments,
		database.NewRabbitRepository(rabbitChannel), cfg.MinIO.PublicURL, cfg.Attachment.MaxSize)

	// 6. 初始化 UseCases
	relationshipUC := app.NewRelationshipUseCase(userRepo, requestRepo, roomRepo)
	roomUC := app.NewRoomUseCase(userRepo, roomRepo, hub)
	messageUC := app.NewMessageUseCase(roomRepo, msgRepo, userRepo, hub, attachmentUC)
	presence := app.NewPresenceRegistry(userRepo, repository.NewRedisPresenceRepository(redisClient))

	memberUC := memberapp.NewMemberUseCase(memberRepo, cfg.SessionTTL,
		database.NewRedisRepository[memberdomain.MemberSession](redisClient, "session:"),
		encrypt.HashPassword, userRepo, attachmentUC)

	// 7. 啟動 Fiber
	r := fiber.New(fiber.Config{
		BodyLimit: int(attachmentLimit(cfg.Attachment.MaxSize)) + 1<<20,
	})
	file, err := logger.AccessLogWriter(config.EnvConfig.ChatServiceLogPath)
	if err != nil {
		logger.Log.Fatal("Failed to open access log file", zap.Error(err))
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowedOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	// 注册路由
	router.RegisterRoutes(r, app.NewChatWebsocketHandler(roomUC, messageUC, hub, presence, cfg.PingInterval))
	apirouter.RegisterRoutes(r, apirouter.Handlers{
		Auth:     handlers.NewAuthHandler(memberUC, cfg.SessionTTL),
		Friends:  handlers.NewFriendHandler(relationshipUC),
		Rooms:    handlers.NewRoomHandler(roomUC),
		Messages: handlers.NewMessageHandler(messageUC, attachmentUC, roomUC),
		Sessions: memberUC,
	})

	testtool.StartPprof()

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Warn("fiber shutdown failed", zap.Error(err))
		}
	}()

	// Listen
	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}

func attachmentLimit(maxSize int64) int64 {
	if maxSize <= 0 {
		return attachmentdomain.DefaultMaxSize
	}
	return maxSize
}
