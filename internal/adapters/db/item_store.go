// internal/adapters/db/item_store.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// Postgres error codes the store translates
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgCheckViolation       = "23514"

	pgClassDataException     = "22"
	pgClassIntegrityViolated = "23"
)

// ItemStore is the Postgres ItemStore. Transact locks the item row with
// SELECT ... FOR UPDATE and writes with a version guard.
type ItemStore struct {
	db          *Database
	lockTimeout time.Duration
	logger      *slog.Logger
}

// Statically assert that *ItemStore implements the ItemStore interface.
var _ ports.ItemStore = (*ItemStore)(nil)

// NewItemStore creates a Postgres backed item store. A positive lockTimeout
// bounds how long a transaction waits for a row lock before the attempt is
// reported as a write conflict.
func NewItemStore(db *Database, lockTimeout time.Duration, logger *slog.Logger) *ItemStore {
	return &ItemStore{
		db:          db,
		lockTimeout: lockTimeout,
		logger:      logger.With(slog.String("repository", "item_store")),
	}
}

// ReadQuantity returns the committed quantity
func (s *ItemStore) ReadQuantity(ctx context.Context, itemID string) (int64, error) {
	query, args, err := selectQuantityQuery(itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var quantity int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("item %s: %w", itemID, domain.ErrItemNotFound)
		}
		return 0, fmt.Errorf("failed to read quantity: %w", err)
	}
	return quantity, nil
}

// Transact applies fn to the locked row and commits the result
func (s *ItemStore) Transact(ctx context.Context, itemID string, fn ports.QuantityFunc) (ports.TransactResult, error) {
	var result ports.TransactResult

	err := s.db.Transaction(ctx, func(tx pgx.Tx) error {
		if s.lockTimeout > 0 {
			// SET cannot take bind parameters
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}

		query, args, err := lockItemQuery(itemID)
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}

		var item domain.Item
		err = tx.QueryRow(ctx, query, args...).Scan(
			&item.ID, &item.Name, &item.QuantityOnHand,
			&item.MinLevel, &item.MaxLevel, &item.Version, &item.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("item %s: %w", itemID, domain.ErrItemNotFound)
			}
			return fmt.Errorf("failed to lock item: %w", err)
		}

		next, err := fn(item.QuantityOnHand)
		if err != nil {
			return err
		}

		query, args, err = updateQuantityQuery(itemID, next, item.Version)
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}

		previous := item.QuantityOnHand
		if err := tx.QueryRow(ctx, query, args...).Scan(&item.Version, &item.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("item %s changed concurrently: %w", itemID, domain.ErrWriteConflict)
			}
			return fmt.Errorf("failed to update quantity: %w", err)
		}
		item.QuantityOnHand = next

		result = ports.TransactResult{
			Committed: true,
			Previous:  previous,
			NewValue:  next,
			Item:      item,
		}
		return nil
	})
	if err != nil {
		return ports.TransactResult{}, translateError(err)
	}

	return result, nil
}

// AppendRecord inserts the record. Re-inserting an existing id is a no-op,
// which lets the audit retry task be redelivered safely.
func (s *ItemStore) AppendRecord(ctx context.Context, rec *domain.AdjustmentRecord) error {
	query, args, err := insertRecordQuery(rec)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to append adjustment record: %w", translateAppendError(err))
	}
	if tag.RowsAffected() == 0 {
		s.logger.DebugContext(ctx, "adjustment record already stored",
			slog.String("adjustment_id", rec.ID.String()))
	}
	return nil
}

// ListRecords returns one keyset page of an item's records
func (s *ItemStore) ListRecords(ctx context.Context, itemID string, q ports.HistoryQuery) ([]domain.AdjustmentRecord, error) {
	query, args, err := listRecordsQuery(itemID, q)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustment records: %w", err)
	}

	records, err := ScanMany(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to scan adjustment records: %w", err)
	}
	return records, nil
}

// SaveItem inserts an item or updates its descriptive fields. The quantity
// of an existing item is left alone.
func (s *ItemStore) SaveItem(ctx context.Context, item domain.Item) error {
	if item.QuantityOnHand < 0 {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrWouldGoNegative)
	}
	query, args, err := insertItemQuery(item)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return nil
}

func scanRecord(row pgx.Rows) (domain.AdjustmentRecord, error) {
	var (
		rec         domain.AdjustmentRecord
		reason      string
		status      string
		cause       *string
		unitCost    decimal.NullDecimal
		valueChange decimal.NullDecimal
	)

	err := row.Scan(
		&rec.ID, &rec.ItemID, &rec.Delta, &reason, &rec.Notes, &rec.Actor,
		&rec.PreviousQuantity, &rec.ResultingQuantity, &status, &cause,
		&unitCost, &valueChange, &rec.Attempts, &rec.Timestamp,
	)
	if err != nil {
		return rec, err
	}

	rec.Reason = domain.Reason(reason)
	rec.Status = domain.AdjustmentStatus(status)
	if cause != nil {
		rec.RejectionCause = domain.RejectionCause(*cause)
	}
	if unitCost.Valid {
		rec.UnitCost = &unitCost.Decimal
	}
	if valueChange.Valid {
		rec.ValueChange = &valueChange.Decimal
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return rec, nil
}

// translateError maps Postgres contention and constraint failures onto
// domain errors. Anything else is returned as is.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrWriteConflict)
	case pgCheckViolation:
		return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrWouldGoNegative)
	}
	return err
}

// translateAppendError marks records Postgres refused for their contents.
// Those fail the same way on every retry.
func translateAppendError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return err
	}
	switch pgErr.Code[:2] {
	case pgClassDataException, pgClassIntegrityViolated:
		return fmt.Errorf("%s (%s): %w", pgErr.Message, pgErr.Code, domain.ErrUnstorableRecord)
	}
	return err
}
