// internal/adapters/queue/publisher.go
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/workers"
)

// Enqueuer is the subset of *asynq.Client the publisher uses
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher enqueues ledger follow-up work on asynq
type Publisher struct {
	client   Enqueuer
	maxRetry int
	logger   *slog.Logger
}

// Statically assert that *Publisher implements the TaskPublisher interface.
var _ ports.TaskPublisher = (*Publisher)(nil)

// NewPublisher creates a task publisher. maxRetry bounds redelivery of audit
// retries; alerts are retried a few times at most.
func NewPublisher(client Enqueuer, maxRetry int, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:   client,
		maxRetry: maxRetry,
		logger:   logger.With(slog.String("component", "task_publisher")),
	}
}

// PublishLowStock enqueues a low stock alert. At most one alert per
// adjustment is queued.
func (p *Publisher) PublishLowStock(ctx context.Context, event domain.LowStockEvent) error {
	task, err := workers.NewLowStockTask(event)
	if err != nil {
		return err
	}

	info, err := p.client.EnqueueContext(ctx, task,
		asynq.Queue(workers.QueueDefault),
		asynq.MaxRetry(3),
		asynq.TaskID("low_stock:"+event.AdjustmentID.String()),
		asynq.Retention(24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to enqueue low stock alert: %w", err)
	}

	p.logger.DebugContext(ctx, "low stock alert queued",
		slog.String("task_id", info.ID),
		slog.String("item_id", event.ItemID))
	return nil
}

// PublishAuditRetry enqueues a record whose append failed
func (p *Publisher) PublishAuditRetry(ctx context.Context, record *domain.AdjustmentRecord) error {
	task, err := workers.NewAuditAppendTask(record)
	if err != nil {
		return err
	}

	info, err := p.client.EnqueueContext(ctx, task,
		asynq.Queue(workers.QueueCritical),
		asynq.MaxRetry(p.maxRetry),
		asynq.TaskID("audit:"+record.ID.String()),
		asynq.Retention(7*24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to enqueue audit retry: %w", err)
	}

	p.logger.InfoContext(ctx, "audit retry queued",
		slog.String("task_id", info.ID),
		slog.String("adjustment_id", record.ID.String()))
	return nil
}
