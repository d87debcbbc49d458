// internal/adapters/db/queries.go
package db

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

const (
	itemsTable       = "items"
	adjustmentsTable = "stock_adjustments"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var recordColumns = []string{
	"id", "item_id", "delta", "reason", "notes", "actor",
	"previous_quantity", "resulting_quantity", "status", "rejection_cause",
	"unit_cost", "value_change", "attempts", "created_at",
}

func selectQuantityQuery(itemID string) (string, []interface{}, error) {
	return psql.Select("quantity_on_hand").
		From(itemsTable).
		Where(squirrel.Eq{"id": itemID}).
		ToSql()
}

func lockItemQuery(itemID string) (string, []interface{}, error) {
	return psql.Select("id", "name", "quantity_on_hand", "min_level", "max_level", "version", "updated_at").
		From(itemsTable).
		Where(squirrel.Eq{"id": itemID}).
		Suffix("FOR UPDATE").
		ToSql()
}

func updateQuantityQuery(itemID string, quantity, expectedVersion int64) (string, []interface{}, error) {
	return psql.Update(itemsTable).
		Set("quantity_on_hand", quantity).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": itemID, "version": expectedVersion}).
		Suffix("RETURNING version, updated_at").
		ToSql()
}

func insertRecordQuery(rec *domain.AdjustmentRecord) (string, []interface{}, error) {
	var cause interface{}
	if rec.RejectionCause != "" {
		cause = string(rec.RejectionCause)
	}

	return psql.Insert(adjustmentsTable).
		Columns(recordColumns...).
		Values(
			rec.ID, rec.ItemID, rec.Delta, string(rec.Reason), rec.Notes, rec.Actor,
			rec.PreviousQuantity, rec.ResultingQuantity, string(rec.Status), cause,
			rec.UnitCost, rec.ValueChange, rec.Attempts, rec.Timestamp,
		).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
}

// listRecordsQuery pages by keyset on (created_at, id), the same order the
// ledger uses to break timestamp ties.
func listRecordsQuery(itemID string, query ports.HistoryQuery) (string, []interface{}, error) {
	direction := "ASC"
	cmp := ">"
	if query.Order == ports.SortDescending {
		direction = "DESC"
		cmp = "<"
	}

	qb := psql.Select(recordColumns...).
		From(adjustmentsTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy(fmt.Sprintf("created_at %s", direction), fmt.Sprintf("id %s", direction))

	if query.After != nil {
		qb = qb.Where(fmt.Sprintf("(created_at, id) %s (?, ?)", cmp), query.After.Timestamp, query.After.ID)
	}
	if query.Limit > 0 {
		qb = qb.Limit(uint64(query.Limit))
	}

	return qb.ToSql()
}

func insertItemQuery(item domain.Item) (string, []interface{}, error) {
	return psql.Insert(itemsTable).
		Columns("id", "name", "quantity_on_hand", "min_level", "max_level").
		Values(item.ID, item.Name, item.QuantityOnHand, item.MinLevel, item.MaxLevel).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, min_level = EXCLUDED.min_level, max_level = EXCLUDED.max_level").
		ToSql()
}
