// internal/core/ports/item_store.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// SortOrder selects the direction history is returned in
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder defaults to ascending for anything other than "desc"
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortDescending {
		return SortDescending
	}
	return SortAscending
}

// HistoryCursor marks the last record of a page. The next page starts
// strictly after it in the requested order.
type HistoryCursor struct {
	Timestamp time.Time
	ID        uuid.UUID
}

// HistoryQuery holds parameters for one page of an item's records
type HistoryQuery struct {
	Order SortOrder
	After *HistoryCursor
	Limit int
}

// QuantityFunc receives the committed quantity and returns the value to
// write. Returning an error aborts the transaction without a write.
type QuantityFunc func(current int64) (int64, error)

// TransactResult describes a committed transaction
type TransactResult struct {
	Committed bool
	Previous  int64
	NewValue  int64
	Item      domain.Item
}

// ItemStore is the persistence port the ledger depends on. Implementations
// must run Transact atomically with respect to other Transact calls on the
// same item and report lost races as domain.ErrWriteConflict.
type ItemStore interface {
	// ReadQuantity returns domain.ErrItemNotFound for unknown items
	ReadQuantity(ctx context.Context, itemID string) (int64, error)

	// Transact returns domain.ErrItemNotFound without calling fn when the
	// item does not exist. Errors from fn are returned unchanged.
	Transact(ctx context.Context, itemID string, fn QuantityFunc) (TransactResult, error)

	AppendRecord(ctx context.Context, record *domain.AdjustmentRecord) error
	ListRecords(ctx context.Context, itemID string, query HistoryQuery) ([]domain.AdjustmentRecord, error)
}
