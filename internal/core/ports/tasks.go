// internal/core/ports/tasks.go
package ports

import (
	"context"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// TaskPublisher hands follow-up work to the background worker
type TaskPublisher interface {
	PublishLowStock(ctx context.Context, event domain.LowStockEvent) error
	PublishAuditRetry(ctx context.Context, record *domain.AdjustmentRecord) error
}
