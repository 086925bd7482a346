package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"igcommerce_backend/internal/events"
	"igcommerce_backend/platform/config"
	"igcommerce_backend/platform/logger"
)

// HandoverSweeper times out stale pending handover requests.
type HandoverSweeper interface {
	ExpireStale(ctx context.Context, timeout time.Duration) (int, error)
}

// Worker consumes scheduler tasks from the asynq queue.
type Worker struct {
	server          *asynq.Server
	mux             *asynq.ServeMux
	sweeper         HandoverSweeper
	handoverTimeout time.Duration
	bus             events.Bus
	log             *logger.Logger
}

// NewWorker creates and configures the asynq worker.
func NewWorker(cfg config.SchedulerConfig, sweeper HandoverSweeper, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	timeout := cfg.GetHandoverTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:          server,
		mux:             mux,
		sweeper:         sweeper,
		handoverTimeout: timeout,
		bus:             bus,
		log:             log,
	}

	mux.HandleFunc(TaskHandoverTimeoutSweep, w.handleHandoverSweep)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

func (w *Worker) handleHandoverSweep(ctx context.Context, _ *asynq.Task) error {
	if w.sweeper == nil {
		return nil
	}

	expired, err := w.sweeper.ExpireStale(ctx, w.handoverTimeout)
	if err != nil {
		return err
	}
	if expired > 0 {
		w.log.Info("stale handover requests timed out", "count", expired)
	}
	return nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.bus.PublishSync(ctx, events.OutboxDue{
		BaseEvent:  events.NewBaseEvent(),
		OutboxID:   outboxID,
		MerchantID: payload.MerchantID,
	})
}

// Run blocks serving tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
