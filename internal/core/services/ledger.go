// internal/core/services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// LedgerOptions tunes the ledger. Zero values fall back to the defaults.
type LedgerOptions struct {
	MaxAttempts      int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	HistoryPageSize  int
	QuantityCacheTTL time.Duration
	LowStockAlerts   bool
	BatchConcurrency int
}

// DefaultLedgerOptions returns the production defaults
func DefaultLedgerOptions() LedgerOptions {
	return LedgerOptions{
		MaxAttempts:      5,
		RetryBaseDelay:   10 * time.Millisecond,
		RetryMaxDelay:    200 * time.Millisecond,
		HistoryPageSize:  100,
		QuantityCacheTTL: 30 * time.Second,
		LowStockAlerts:   true,
		BatchConcurrency: 8,
	}
}

func (o LedgerOptions) withDefaults() LedgerOptions {
	d := DefaultLedgerOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.RetryBaseDelay < 0 {
		o.RetryBaseDelay = 0
	}
	if o.RetryMaxDelay < o.RetryBaseDelay {
		o.RetryMaxDelay = o.RetryBaseDelay
	}
	if o.HistoryPageSize <= 0 {
		o.HistoryPageSize = d.HistoryPageSize
	}
	if o.QuantityCacheTTL <= 0 {
		o.QuantityCacheTTL = d.QuantityCacheTTL
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = d.BatchConcurrency
	}
	return o
}

// LedgerService is the only code path that changes an item's quantity
type LedgerService struct {
	store  ports.ItemStore
	cache  ports.CacheRepository
	tasks  ports.TaskPublisher
	opts   LedgerOptions
	logger *slog.Logger
}

// Statically assert that *LedgerService implements the StockLedger interface.
var _ ports.StockLedger = (*LedgerService)(nil)

// NewLedgerService creates a new ledger. cache and tasks may be nil.
func NewLedgerService(store ports.ItemStore, cache ports.CacheRepository, tasks ports.TaskPublisher, opts LedgerOptions, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		store:  store,
		cache:  cache,
		tasks:  tasks,
		opts:   opts.withDefaults(),
		logger: logger.With(slog.String("service", "ledger")),
	}
}

// ApplyAdjustment turns one request into exactly one record. Rejections come
// back as the rejected record together with a *domain.AdjustmentError.
// Store failures outside the rejection taxonomy return an unsaved rejected
// record with no cause and a plain wrapped error.
func (s *LedgerService) ApplyAdjustment(ctx context.Context, req domain.AdjustmentRequest) (*domain.AdjustmentRecord, error) {
	req.Reason = domain.ParseReason(string(req.Reason))

	if err := req.Validate(); err != nil {
		rec := domain.NewRecord(req, domain.NewStamp())
		rec.MarkRejected(domain.CauseInvalidRequest, nil)
		s.logger.WarnContext(ctx, "adjustment rejected",
			slog.String("item_id", req.ItemID),
			slog.Int64("delta", req.Delta),
			slog.String("cause", string(domain.CauseInvalidRequest)),
			slog.String("error", err.Error()))
		return &rec, domain.NewAdjustmentError(domain.CauseInvalidRequest, req.ItemID, err)
	}

	var (
		stamp    domain.Stamp
		observed int64
		result   ports.TransactResult
		attempts int
	)
	attempt := func() error {
		attempts++
		var err error
		result, err = s.store.Transact(ctx, req.ItemID, func(current int64) (int64, error) {
			stamp = domain.NewStamp()
			observed = current
			if req.Delta > 0 && current > math.MaxInt64-req.Delta {
				return 0, fmt.Errorf("%w: quantity would overflow", domain.ErrInvalidRequest)
			}
			candidate := current + req.Delta
			if candidate < 0 {
				return 0, domain.ErrWouldGoNegative
			}
			return candidate, nil
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrWriteConflict) {
			s.logger.DebugContext(ctx, "write conflict, retrying",
				slog.String("item_id", req.ItemID),
				slog.Int("attempt", attempts))
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(attempt, s.retryPolicy(ctx))

	switch {
	case err == nil:
		return s.applied(ctx, req, stamp, result, attempts), nil

	case errors.Is(err, domain.ErrWriteConflict):
		return s.rejected(ctx, req, domain.NewStamp(), domain.CauseConflictRetryExhausted, nil, attempts,
			fmt.Errorf("gave up after %d attempts", attempts))

	case errors.Is(err, domain.ErrItemNotFound):
		return s.rejected(ctx, req, domain.NewStamp(), domain.CauseItemNotFound, nil, attempts, err)

	case errors.Is(err, domain.ErrWouldGoNegative):
		return s.rejected(ctx, req, stamp, domain.CauseWouldGoNegative, &observed, attempts, err)

	case errors.Is(err, domain.ErrInvalidRequest):
		return s.rejected(ctx, req, stamp, domain.CauseInvalidRequest, &observed, attempts, err)

	default:
		return s.failed(ctx, req, attempts, err)
	}
}

// retryPolicy bounds ApplyAdjustment to MaxAttempts transactions, waiting
// with jittered exponential backoff between them.
func (s *LedgerService) retryPolicy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(newRetryBackOff(s.opts), uint64(s.opts.MaxAttempts-1)),
		ctx,
	)
}

func newRetryBackOff(opts LedgerOptions) *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(opts.RetryBaseDelay),
		backoff.WithMaxInterval(opts.RetryMaxDelay),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.5),
		backoff.WithMaxElapsedTime(0),
	)
}

// failed reports an attempt the store could not carry out, or one abandoned
// by the caller. The record is returned for the caller's benefit only: with
// no committed change and no rejection cause there is nothing to audit.
func (s *LedgerService) failed(ctx context.Context, req domain.AdjustmentRequest, attempts int, err error) (*domain.AdjustmentRecord, error) {
	rec := domain.NewRecord(req, domain.NewStamp())
	rec.MarkRejected("", nil)
	rec.Attempts = attempts

	s.logger.ErrorContext(ctx, "item store transaction failed",
		slog.String("item_id", req.ItemID),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()))

	return &rec, fmt.Errorf("failed to apply adjustment to item %s: %w", req.ItemID, err)
}

// appendRecord never fails the adjustment. A record the store could not take
// right now is handed to the worker for another try; one it refused outright
// is only logged.
func (s *LedgerService) appendRecord(ctx context.Context, rec *domain.AdjustmentRecord) {
	err := s.store.AppendRecord(ctx, rec)
	if err == nil {
		return
	}

	s.logger.ErrorContext(ctx, "failed to append adjustment record",
		slog.String("item_id", rec.ItemID),
		slog.String("adjustment_id", rec.ID.String()),
		slog.String("status", string(rec.Status)),
		slog.String("error", err.Error()))

	if s.tasks == nil || errors.Is(err, domain.ErrUnstorableRecord) {
		return
	}
	if pubErr := s.tasks.PublishAuditRetry(ctx, rec); pubErr != nil {
		s.logger.ErrorContext(ctx, "adjustment record lost",
			slog.String("item_id", rec.ItemID),
			slog.String("adjustment_id", rec.ID.String()),
			slog.String("error", pubErr.Error()))
	}
}

func (s *LedgerService) maybeAlertLowStock(ctx context.Context, result ports.TransactResult, adjustmentID uuid.UUID, at time.Time) {
	if !s.opts.LowStockAlerts || s.tasks == nil {
		return
	}
	status := domain.Classify(result.NewValue, result.Item.MinLevel, result.Item.MaxLevel)
	if !status.NeedsReorder() {
		return
	}

	event := domain.LowStockEvent{
		ItemID:       result.Item.ID,
		ItemName:     result.Item.Name,
		Quantity:     result.NewValue,
		MinLevel:     result.Item.MinLevel,
		Status:       status,
		AdjustmentID: adjustmentID,
		OccurredAt:   at,
	}
	if err := s.tasks.PublishLowStock(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish low stock alert",
			slog.String("item_id", event.ItemID),
			slog.String("error", err.Error()))
	}
}
