// internal/adapters/memory/item_store.go
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

type itemEntry struct {
	mu   sync.Mutex
	item domain.Item
}

// ItemStore keeps items and their adjustment records in process memory.
// Transactions on one item are serialised by a per-item lock, so it never
// reports write conflicts.
type ItemStore struct {
	mu      sync.RWMutex
	items   map[string]*itemEntry
	records map[string][]domain.AdjustmentRecord
	seen    map[uuid.UUID]struct{}
	logger  *slog.Logger
}

// Statically assert that *ItemStore implements the ItemStore interface.
var _ ports.ItemStore = (*ItemStore)(nil)

// NewItemStore creates an empty store
func NewItemStore(logger *slog.Logger) *ItemStore {
	return &ItemStore{
		items:   make(map[string]*itemEntry),
		records: make(map[string][]domain.AdjustmentRecord),
		seen:    make(map[uuid.UUID]struct{}),
		logger:  logger.With(slog.String("component", "memory_item_store")),
	}
}

// PutItem registers or replaces an item. It is meant for seeding; the ledger
// never calls it.
func (s *ItemStore) PutItem(item domain.Item) error {
	if item.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if item.QuantityOnHand < 0 {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrWouldGoNegative)
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = &itemEntry{item: item}
	return nil
}

// GetItem returns a copy of the stored item
func (s *ItemStore) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	entry, err := s.entry(itemID)
	if err != nil {
		return domain.Item{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.item, nil
}

func (s *ItemStore) entry(itemID string) (*itemEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, domain.ErrItemNotFound)
	}
	return entry, nil
}

// ReadQuantity returns the committed quantity
func (s *ItemStore) ReadQuantity(ctx context.Context, itemID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.QuantityOnHand, nil
}

// Transact runs fn while holding the item's lock
func (s *ItemStore) Transact(ctx context.Context, itemID string, fn ports.QuantityFunc) (ports.TransactResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.TransactResult{}, err
	}
	entry, err := s.entry(itemID)
	if err != nil {
		return ports.TransactResult{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	previous := entry.item.QuantityOnHand
	next, err := fn(previous)
	if err != nil {
		return ports.TransactResult{}, err
	}
	if next < 0 {
		return ports.TransactResult{}, fmt.Errorf("item %s: %w", itemID, domain.ErrWouldGoNegative)
	}

	entry.item.QuantityOnHand = next
	entry.item.Version++
	entry.item.UpdatedAt = time.Now().UTC()

	return ports.TransactResult{
		Committed: true,
		Previous:  previous,
		NewValue:  next,
		Item:      entry.item,
	}, nil
}

// AppendRecord inserts a record in history order. Appending an id that is
// already stored is a no-op.
func (s *ItemStore) AppendRecord(ctx context.Context, record *domain.AdjustmentRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[record.ID]; dup {
		s.logger.DebugContext(ctx, "duplicate adjustment record ignored",
			slog.String("adjustment_id", record.ID.String()))
		return nil
	}

	list := s.records[record.ItemID]
	pos, _ := slices.BinarySearchFunc(list, *record, compareRecords)
	s.records[record.ItemID] = slices.Insert(list, pos, *record)
	s.seen[record.ID] = struct{}{}
	return nil
}

// ListRecords returns one page of an item's records
func (s *ItemStore) ListRecords(ctx context.Context, itemID string, query ports.HistoryQuery) ([]domain.AdjustmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	list := slices.Clone(s.records[itemID])
	s.mu.RUnlock()

	if query.Order == ports.SortDescending {
		slices.Reverse(list)
	}

	out := make([]domain.AdjustmentRecord, 0, min(len(list), max(query.Limit, 0)))
	for _, rec := range list {
		if query.After != nil && !afterCursor(rec, *query.After, query.Order) {
			continue
		}
		out = append(out, rec)
		if query.Limit > 0 && len(out) >= query.Limit {
			break
		}
	}
	return out, nil
}

func compareRecords(a, b domain.AdjustmentRecord) int {
	switch {
	case a.Before(&b):
		return -1
	case b.Before(&a):
		return 1
	default:
		return 0
	}
}

func afterCursor(rec domain.AdjustmentRecord, cursor ports.HistoryCursor, order ports.SortOrder) bool {
	mark := domain.AdjustmentRecord{ID: cursor.ID, Timestamp: cursor.Timestamp}
	if order == ports.SortDescending {
		return rec.Before(&mark)
	}
	return mark.Before(&rec)
}
