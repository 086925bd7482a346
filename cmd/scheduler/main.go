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
	"igcommerce_backend/internal/conversation"
	"igcommerce_backend/internal/delivery"
	"igcommerce_backend/internal/events"
	"igcommerce_backend/internal/notification"
	"igcommerce_backend/internal/notification/email"
	"igcommerce_backend/internal/scheduler"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		log.Warn("email disabled; outbox records without in-app coverage will not send")
	}

	catalogRepo := catalog.New(pool)

	notificationModule := notification.NewModule(pool, sender, catalogRepo, log)
	notificationModule.Subscribe(eventBus)

	// The sweeper publishes timeout events and notifies waiting customers,
	// so it gets the same delivery stack the API uses.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			panic("invalid REDIS_URL: " + err.Error())
		}
		redisClient = redis.NewClient(opt)
		defer func() { _ = redisClient.Close() }()
	}

	tracker := delivery.NewWindowTracker(redisClient, cfg.GetMessagingWindow())
	coordinator := delivery.New(cfg, delivery.NewEnvTokenSource(cfg.GetPageTokenEnvPrefix()), tracker, log)
	textSender := delivery.NewTextSender(coordinator)

	val := validator.New()
	conversationModule := conversation.NewModule(pool, eventBus, textSender, catalog.NewPageResolver(catalogRepo), val, log)

	dispatcher, err := scheduler.NewDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, conversationModule.Service(), eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("scheduler stopped")
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
