package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"igcommerce_backend/internal/notification/outbox"
	"igcommerce_backend/platform/config"
	"igcommerce_backend/platform/logger"
)

// outboxPollInterval is how often pending outbox rows are claimed.
const outboxPollInterval = 2 * time.Second

// Dispatcher feeds the asynq queue: it enqueues the periodic handover sweep
// and moves due notification outbox rows onto the queue.
type Dispatcher struct {
	client        *asynq.Client
	queue         string
	repo          *outbox.Repository
	sweepInterval time.Duration
	log           *logger.Logger
}

// NewDispatcher creates a dispatcher from the scheduler configuration.
func NewDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*Dispatcher, error) {
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

	sweepInterval := cfg.GetHandoverSweepInterval()
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}

	return &Dispatcher{
		client:        asynq.NewClient(opt),
		queue:         queue,
		repo:          outbox.New(pool),
		sweepInterval: sweepInterval,
		log:           log,
	}, nil
}

func (d *Dispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Run blocks until ctx is cancelled, enqueueing sweeps and outbox tasks.
func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	outboxTicker := time.NewTicker(outboxPollInterval)
	defer outboxTicker.Stop()
	sweepTicker := time.NewTicker(d.sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			if _, err := d.client.EnqueueContext(ctx, NewHandoverTimeoutSweepTask(), asynq.Queue(d.queue)); err != nil {
				d.log.Warn("failed to enqueue handover sweep", "error", err)
			}
		case <-outboxTicker.C:
			d.drainOutbox(ctx)
		}
	}
}

func (d *Dispatcher) drainOutbox(ctx context.Context) {
	records, err := d.repo.ClaimPending(ctx, 50)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return
	}

	for _, rec := range records {
		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
			OutboxID:   rec.ID.String(),
			MerchantID: rec.MerchantID.String(),
		})
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			continue
		}

		if _, err := d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue)); err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
		}
	}
}
