// internal/core/services/history.go
package services

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// History streams an item's records page by page. Each range over the
// returned sequence starts a fresh read, so it can be restarted at will.
// Iteration stops at the first store error, which is yielded once.
func (s *LedgerService) History(ctx context.Context, itemID string, order ports.SortOrder) iter.Seq2[domain.AdjustmentRecord, error] {
	if order != ports.SortDescending {
		order = ports.SortAscending
	}
	pageSize := s.opts.HistoryPageSize

	return func(yield func(domain.AdjustmentRecord, error) bool) {
		if strings.TrimSpace(itemID) == "" {
			yield(domain.AdjustmentRecord{}, fmt.Errorf("%w: item_id is required", domain.ErrInvalidRequest))
			return
		}

		query := ports.HistoryQuery{Order: order, Limit: pageSize}
		for {
			page, err := s.store.ListRecords(ctx, itemID, query)
			if err != nil {
				yield(domain.AdjustmentRecord{}, fmt.Errorf("failed to list adjustment records: %w", err))
				return
			}

			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}

			if len(page) < pageSize {
				return
			}
			last := page[len(page)-1]
			query.After = &ports.HistoryCursor{Timestamp: last.Timestamp, ID: last.ID}
		}
	}
}

// GetHistory collects up to limit records. A limit of zero or less collects
// the whole history.
func (s *LedgerService) GetHistory(ctx context.Context, itemID string, order ports.SortOrder, limit int) ([]domain.AdjustmentRecord, error) {
	records := make([]domain.AdjustmentRecord, 0)
	for rec, err := range s.History(ctx, itemID, order) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}
