// internal/core/domain/item.go
package domain

import "time"

// StockStatus is an advisory label derived from an item's thresholds
type StockStatus string

// Status constants
const (
	StockOutOfStock StockStatus = "out_of_stock"
	StockLow        StockStatus = "low_stock"
	StockIn         StockStatus = "in_stock"
	StockOver       StockStatus = "overstock"
)

// Item is a tracked inventory unit. It is owned by the ItemStore; the ledger
// only ever changes QuantityOnHand.
type Item struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	QuantityOnHand int64     `json:"quantity_on_hand"`
	MinLevel       *int64    `json:"min_level,omitempty"`
	MaxLevel       *int64    `json:"max_level,omitempty"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Status classifies the item against its thresholds
func (i *Item) Status() StockStatus {
	return Classify(i.QuantityOnHand, i.MinLevel, i.MaxLevel)
}

// Classify labels a quantity. Thresholds are advisory: quantities above
// maxLevel or at/below minLevel are legal.
func Classify(quantity int64, minLevel, maxLevel *int64) StockStatus {
	switch {
	case quantity <= 0:
		return StockOutOfStock
	case minLevel != nil && quantity <= *minLevel:
		return StockLow
	case maxLevel != nil && quantity > *maxLevel:
		return StockOver
	default:
		return StockIn
	}
}

// NeedsReorder reports whether the status warrants a low-stock alert
func (s StockStatus) NeedsReorder() bool {
	return s == StockOutOfStock || s == StockLow
}
