// internal/core/services/batch.go
package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// ApplyBatch applies each request on its own; a rejection never affects the
// others. Requests for the same item run in submission order, different
// items run concurrently. Results come back in input order.
func (s *LedgerService) ApplyBatch(ctx context.Context, reqs []domain.AdjustmentRequest) []ports.BatchResult {
	results := make([]ports.BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	// group indexes by item, keeping first-seen order of items
	groups := make(map[string][]int)
	var itemOrder []string
	for i, req := range reqs {
		if _, ok := groups[req.ItemID]; !ok {
			itemOrder = append(itemOrder, req.ItemID)
		}
		groups[req.ItemID] = append(groups[req.ItemID], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)

	for _, itemID := range itemOrder {
		indexes := groups[itemID]
		g.Go(func() error {
			for _, i := range indexes {
				rec, err := s.ApplyAdjustment(gctx, reqs[i])
				results[i] = ports.BatchResult{Index: i, Record: rec, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	applied := 0
	for _, r := range results {
		if r.Err == nil {
			applied++
		}
	}
	s.logger.InfoContext(ctx, "batch adjustments processed",
		slog.Int("requests", len(reqs)),
		slog.Int("applied", applied),
		slog.Int("items", len(itemOrder)))

	return results
}
