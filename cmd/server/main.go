package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/groupchat/backend/internal/config"
	"github.com/groupchat/backend/internal/database"
	"github.com/groupchat/backend/internal/events"
	"github.com/groupchat/backend/internal/handlers"
	"github.com/groupchat/backend/internal/mail"
	"github.com/groupchat/backend/internal/middleware"
	"github.com/groupchat/backend/internal/services"
	"github.com/groupchat/backend/internal/storage"
	"github.com/groupchat/backend/pkg/logger"
	"github.com/groupchat/backend/pkg/utils"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init()

	cfg := config.Load()

	tokens, err := utils.NewTokenManager(map[utils.TokenPurpose]utils.TokenSettings{
		utils.PurposeAccess:            {Secret: cfg.Tokens.Access.Secret, TTL: cfg.Tokens.Access.TTL},
		utils.PurposeRefresh:           {Secret: cfg.Tokens.Refresh.Secret, TTL: cfg.Tokens.Refresh.TTL},
		utils.PurposeEmailVerification: {Secret: cfg.Tokens.EmailVerification.Secret, TTL: cfg.Tokens.EmailVerification.TTL},
	})
	if err != nil {
		log.Fatalf("token configuration invalid: %v", err)
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	media, err := storage.NewMinIOStore(cfg.Media)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := media.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	var sink services.AuditSink
	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		sink = producer
	}
	audit := services.NewAuditService(db, sink, cfg.Audit.QueueSize)

	limits, redisClient := buildLimits(cfg.RateLimit)

	h := handlers.Handlers{
		Auth: handlers.NewAuthHandler(&services.AuthService{
			DB:            db,
			Tokens:        tokens,
			Mailer:        mail.New(cfg.Mail),
			Media:         media,
			Audit:         audit,
			ClientURL:     cfg.Mail.ClientURL,
			MaxImageBytes: cfg.Media.MaxImageBytes,
		}),
		Users:      handlers.NewUsersHandler(services.NewUserService(db, media, audit, cfg.Media.MaxImageBytes)),
		ChatGroups: handlers.NewChatGroupsHandler(services.NewChatGroupService(db, media, audit, cfg.Media.MaxImageBytes)),
	}

	metrics := middleware.NewMetrics()

	app := fiber.New(fiber.Config{BodyLimit: cfg.Server.BodyLimitMB * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	handlers.RegisterRoutes(app, h, middleware.NewAuthMiddleware(db, tokens), limits)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":          cfg.Server.Port,
		"address":       listenAddr,
		"body_limit_mb": cfg.Server.BodyLimitMB,
		"kafka_audit":   producer != nil,
		"redis_limits":  redisClient != nil,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}

	audit.Close()
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", err, nil)
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// buildLimits shares counters through Redis when an address is configured
// and falls back to per-process buckets otherwise.
func buildLimits(cfg config.RateLimitConfig) (handlers.Limits, *redis.Client) {
	if cfg.RedisAddr == "" {
		return handlers.Limits{
			SignIn: middleware.NewMemoryLimiter(cfg.PerMinute, cfg.Burst, 10*time.Minute),
			Join:   middleware.NewMemoryLimiter(cfg.PerMinute, cfg.Burst, 10*time.Minute),
		}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	limiter := middleware.NewRedisLimiter(client, int64(cfg.PerMinute), time.Minute)
	return handlers.Limits{SignIn: limiter, Join: limiter}, client
}
