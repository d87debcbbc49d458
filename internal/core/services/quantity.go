// internal/core/services/quantity.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

const quantityKeyPrefix = "stock:qty:"

// QuantityCacheKey is the cache key holding an item's last read quantity
func QuantityCacheKey(itemID string) string {
	return quantityKeyPrefix + itemID
}

// CurrentQuantity returns the committed quantity, read through the cache when
// one is configured. The cache is only ever a copy: a failing cache falls
// back to the store.
func (s *LedgerService) CurrentQuantity(ctx context.Context, itemID string) (int64, error) {
	if strings.TrimSpace(itemID) == "" {
		return 0, fmt.Errorf("%w: item_id is required", domain.ErrInvalidRequest)
	}

	if s.cache == nil {
		return s.readQuantity(ctx, itemID)
	}

	var quantity int64
	err := s.cache.GetOrSet(ctx, QuantityCacheKey(itemID), &quantity, func() (interface{}, error) {
		return s.readQuantity(ctx, itemID)
	}, s.opts.QuantityCacheTTL)
	if err == nil {
		return quantity, nil
	}
	if errors.Is(err, domain.ErrItemNotFound) {
		return 0, err
	}

	s.logger.WarnContext(ctx, "quantity cache unavailable, reading store",
		slog.String("item_id", itemID),
		slog.String("error", err.Error()))
	return s.readQuantity(ctx, itemID)
}

func (s *LedgerService) readQuantity(ctx context.Context, itemID string) (int64, error) {
	quantity, err := s.store.ReadQuantity(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to read quantity for item %s: %w", itemID, err)
	}
	return quantity, nil
}

// cacheQuantity publishes a committed quantity tagged with the item version,
// so a slower writer holding an older quantity cannot replace it. If the
// write fails the key is dropped and the next read goes to the store.
func (s *LedgerService) cacheQuantity(ctx context.Context, itemID string, result ports.TransactResult) {
	if s.cache == nil {
		return
	}
	key := QuantityCacheKey(itemID)
	_, err := s.cache.SetIfNewer(ctx, key, result.Item.Version, result.NewValue, s.opts.QuantityCacheTTL)
	if err == nil {
		return
	}

	s.logger.WarnContext(ctx, "failed to cache committed quantity",
		slog.String("item_id", itemID),
		slog.String("error", err.Error()))
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached quantity",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
	}
}
