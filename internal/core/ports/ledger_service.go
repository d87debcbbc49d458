// internal/core/ports/ledger_service.go
package ports

import (
	"context"
	"iter"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// StockLedger is the application service port for stock adjustments.
// This interface is implemented by services.LedgerService.
type StockLedger interface {
	ApplyAdjustment(ctx context.Context, req domain.AdjustmentRequest) (*domain.AdjustmentRecord, error)
	ApplyBatch(ctx context.Context, reqs []domain.AdjustmentRequest) []BatchResult
	History(ctx context.Context, itemID string, order SortOrder) iter.Seq2[domain.AdjustmentRecord, error]
	GetHistory(ctx context.Context, itemID string, order SortOrder, limit int) ([]domain.AdjustmentRecord, error)
	CurrentQuantity(ctx context.Context, itemID string) (int64, error)
}

// BatchResult is the outcome of one request in a batch
type BatchResult struct {
	Index  int                      `json:"index"`
	Record *domain.AdjustmentRecord `json:"record,omitempty"`
	Err    error                    `json:"-"`
}
