package main

import (
	"context"
	"errors"
	"log"
	"time"

	"propdesk/config"
	"propdesk/internal/events"
	"propdesk/internal/handler"
	"propdesk/internal/metrics"
	"propdesk/internal/redis"
	"propdesk/internal/repository"
	"propdesk/internal/server"
	"propdesk/internal/services"
	"propdesk/internal/storage"
	"propdesk/internal/websocket"
	"propdesk/pkg/database"
	"propdesk/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const bridgeRetryDelay = 5 * time.Second

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer func() { _ = l.Sync() }()

	database.Connect(cfg)
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redis.Initialize(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redis.HealthCheck(ctx); err != nil {
		l.Warnf("redis unavailable, rate limits and live updates are degraded: %v", err)
	}
	redisClient := redis.GetClient()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.New(registry)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	var store storage.ObjectStore
	s3Client, err := storage.NewClient(ctx, storage.S3Config{
		Region:     cfg.S3Region,
		Bucket:     cfg.S3Bucket,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Endpoint:   cfg.S3Endpoint,
		PresignTTL: time.Duration(cfg.S3PresignTTLMin) * time.Minute,
	})
	if err != nil {
		l.Warnf("object storage disabled: %v", err)
	} else {
		store = s3Client
	}

	projectRepo := repository.NewProjectRepository(database.DB)
	attachmentRepo := repository.NewAttachmentRepository(database.DB)

	pubsub := redis.NewPubSub(redisClient)
	bus := events.NewBus(pubsub, l)

	presignTTL := time.Duration(cfg.S3PresignTTLMin) * time.Minute
	gateway := services.NewAttachmentGateway(store, attachmentRepo, recorder, l).
		WithURLCache(redis.NewPresignCache(redisClient, presignTTL/2))
	drafts := services.NewDraftMaterializer(projectRepo)
	notifier := services.NewWebhookNotifier(services.WebhookConfig{
		AttachmentsURL: cfg.WebhookAttachmentsURL,
		SubmissionURL:  cfg.WebhookSubmissionURL,
		Timeout:        time.Duration(cfg.WebhookTimeoutSec) * time.Second,
	}, gateway, recorder, l)
	orchestrator := services.NewAttachmentOrchestrator(gateway, drafts, notifier, bus, recorder, services.OrchestratorConfig{
		Quota:       cfg.AttachmentQuota,
		Concurrency: cfg.UploadConcurrency,
		MaxBytes:    cfg.UploadMaxBytes,
	}, l)
	projectService := services.NewProjectService(projectRepo, gateway, notifier, bus, l)
	authService := services.NewAuthService(cfg)

	hub := websocket.NewHub()
	go hub.Run(ctx)
	bridge := websocket.NewRedisBridge(pubsub, hub, l)
	go runBridge(ctx, bridge, l)

	limits := redis.DefaultRateLimitConfig()
	limits[redis.ActionUpload] = redis.Policy{Limit: cfg.UploadRateLimit, Window: time.Minute}
	limits[redis.ActionEnhance] = redis.Policy{Limit: cfg.EnhanceRateLimit, Window: time.Minute}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Projects:    handler.NewProjectHandler(projectService, orchestrator, cfg.AttachmentQuota),
		Attachments: handler.NewAttachmentHandler(orchestrator, projectService, cfg.AttachmentQuota, cfg.UploadMaxBytes),
		Enhance:     handler.NewEnhanceHandler(),
		WebSocket:   websocket.NewHandler(authService, websocket.NewChannelAuthorizer(drafts), hub, l),
	}, server.Dependencies{
		Auth:     authService,
		Limiter:  redis.NewRateLimiter(redisClient, limits),
		Gatherer: registry,
	})

	if err := srv.Start(); err != nil {
		l.Errorf("server stopped with error: %v", err)
	}
}

// runBridge keeps the redis subscription alive until ctx is done.
func runBridge(ctx context.Context, bridge *websocket.RedisBridge, l *logger.Logger) {
	for {
		err := bridge.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Warnf("event bridge stopped: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(bridgeRetryDelay):
		}
	}
}
