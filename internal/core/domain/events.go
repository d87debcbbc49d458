// internal/core/domain/events.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// LowStockEvent is raised after an applied adjustment leaves an item at or
// below its reorder threshold
type LowStockEvent struct {
	ItemID       string      `json:"item_id"`
	ItemName     string      `json:"item_name,omitempty"`
	Quantity     int64       `json:"quantity"`
	MinLevel     *int64      `json:"min_level,omitempty"`
	Status       StockStatus `json:"status"`
	AdjustmentID uuid.UUID   `json:"adjustment_id"`
	OccurredAt   time.Time   `json:"occurred_at"`
}
