// internal/workers/audit_processor.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// AuditProcessor re-appends adjustment records the API could not store
type AuditProcessor struct {
	store  ports.ItemStore
	logger *slog.Logger
}

// NewAuditProcessor creates a new audit processor
func NewAuditProcessor(store ports.ItemStore, logger *slog.Logger) *AuditProcessor {
	return &AuditProcessor{
		store:  store,
		logger: logger.With(slog.String("processor", "audit")),
	}
}

// AppendRecord stores the record carried by the task. Appends are idempotent
// on the record id, so a redelivered task is harmless.
func (p *AuditProcessor) AppendRecord(ctx context.Context, t *asynq.Task) error {
	var payload AuditAppendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	rec := payload.Record
	if rec.ItemID == "" {
		return fmt.Errorf("audit payload has no item id: %w", asynq.SkipRetry)
	}

	if err := p.store.AppendRecord(ctx, &rec); err != nil {
		if errors.Is(err, domain.ErrUnstorableRecord) {
			p.logger.ErrorContext(ctx, "adjustment record refused by store, dropping",
				slog.String("adjustment_id", rec.ID.String()),
				slog.String("item_id", rec.ItemID),
				slog.String("status", string(rec.Status)),
				slog.String("error", err.Error()))
			return fmt.Errorf("adjustment record %s cannot be stored: %v: %w", rec.ID, err, asynq.SkipRetry)
		}
		p.logger.WarnContext(ctx, "audit append retry failed",
			slog.String("adjustment_id", rec.ID.String()),
			slog.String("item_id", rec.ItemID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to append adjustment record %s: %w", rec.ID, err)
	}

	p.logger.InfoContext(ctx, "adjustment record recovered",
		slog.String("adjustment_id", rec.ID.String()),
		slog.String("item_id", rec.ItemID),
		slog.String("status", string(rec.Status)))
	return nil
}
