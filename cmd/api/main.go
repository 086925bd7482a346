package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/internal/classifier"
	"igcommerce_backend/internal/conversation"
	"igcommerce_backend/internal/delivery"
	"igcommerce_backend/internal/events"
	apphttp "igcommerce_backend/internal/http"
	"igcommerce_backend/internal/http/router"
	"igcommerce_backend/internal/notification"
	"igcommerce_backend/internal/notification/email"
	"igcommerce_backend/internal/orders"
	"igcommerce_backend/internal/speech"
	"igcommerce_backend/internal/webhook"
	"igcommerce_backend/platform/config"
	"igcommerce_backend/platform/db"
	"igcommerce_backend/platform/logger"
	"igcommerce_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Redis backs the messaging-window tracker. Without it the coordinator
	// treats every window as open and lets the provider be the judge.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			panic("invalid REDIS_URL: " + err.Error())
		}
		redisClient = redis.NewClient(opt)
		defer func() { _ = redisClient.Close() }()
	} else {
		log.Warn("REDIS_URL not configured; messaging-window tracking disabled")
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Service Layer
	// ========================================================================

	catalogRepo := catalog.New(pool)

	tracker := delivery.NewWindowTracker(redisClient, cfg.GetMessagingWindow())
	coordinator := delivery.New(cfg, delivery.NewEnvTokenSource(cfg.GetPageTokenEnvPrefix()), tracker, log)
	textSender := delivery.NewTextSender(coordinator)

	classifierSvc, err := classifier.NewService(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize classifier", "error", err)
		panic("failed to initialize classifier: " + err.Error())
	}

	var transcriber webhook.VoiceTranscriber
	if cfg.IsTranscriberEnabled() {
		var archiver speech.Archiver
		if cfg.IsMinIOEnabled() {
			minioArchiver, err := speech.NewMinIOArchiver(ctx, cfg)
			if err != nil {
				log.Error("failed to initialize voice archive storage", "error", err)
			} else {
				archiver = minioArchiver
			}
		}
		transcriber = speech.NewService(speech.NewHTTPTranscriber(cfg), archiver, log)
		log.Info("voice transcription enabled")
	}

	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		log.Warn("email disabled; merchant notifications stay in-app only")
	}

	// ========================================================================
	// Module Layer
	// ========================================================================

	notificationModule := notification.NewModule(pool, sender, catalogRepo, log)
	notificationModule.Subscribe(eventBus)

	conversationModule := conversation.NewModule(pool, eventBus, textSender, catalog.NewPageResolver(catalogRepo), val, log)
	ordersModule := orders.NewModule(pool, classifierSvc, catalogRepo, eventBus, val, log)

	webhookModule := webhook.NewModule(cfg, catalogRepo, conversationModule.Service(), ordersModule.Service(), classifierSvc, transcriber, coordinator, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			webhookModule,
			conversationModule,
			ordersModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
