// internal/workers/notifications_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// NotificationProcessor handles low stock alerts
type NotificationProcessor struct {
	store  ports.ItemStore
	logger *slog.Logger
}

// NewNotificationProcessor creates a new notification processor
func NewNotificationProcessor(store ports.ItemStore, logger *slog.Logger) *NotificationProcessor {
	return &NotificationProcessor{
		store:  store,
		logger: logger.With(slog.String("processor", "notification")),
	}
}

// LowStockAlert raises the alert for an item. Alerts for items that have
// been restocked above their minimum since the event are dropped.
func (p *NotificationProcessor) LowStockAlert(ctx context.Context, t *asynq.Task) error {
	var event domain.LowStockEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	current, err := p.store.ReadQuantity(ctx, event.ItemID)
	if err != nil {
		return fmt.Errorf("failed to read quantity for item %s: %w", event.ItemID, err)
	}

	status := domain.Classify(current, event.MinLevel, nil)
	if !status.NeedsReorder() {
		p.logger.InfoContext(ctx, "low stock alert is stale",
			slog.String("item_id", event.ItemID),
			slog.Int64("quantity_at_event", event.Quantity),
			slog.Int64("quantity_now", current))
		return nil
	}

	attrs := []any{
		slog.String("item_id", event.ItemID),
		slog.String("item_name", event.ItemName),
		slog.Int64("quantity", current),
		slog.String("status", string(status)),
		slog.String("adjustment_id", event.AdjustmentID.String()),
	}
	if event.MinLevel != nil {
		attrs = append(attrs, slog.Int64("min_level", *event.MinLevel))
	}
	p.logger.WarnContext(ctx, "item needs reorder", attrs...)
	return nil
}
