// cmd/seeder/catalogue.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// catalogueRow is one item line as it appears in a catalogue file
type catalogueRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	MinLevel *int64 `json:"min_level,omitempty"`
	MaxLevel *int64 `json:"max_level,omitempty"`
}

func (r catalogueRow) toItem() (domain.Item, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return domain.Item{}, fmt.Errorf("item id is required")
	}
	if r.Quantity < 0 {
		return domain.Item{}, fmt.Errorf("item %s: opening quantity cannot be negative", id)
	}
	if r.MinLevel != nil && r.MaxLevel != nil && *r.MinLevel > *r.MaxLevel {
		return domain.Item{}, fmt.Errorf("item %s: min_level above max_level", id)
	}
	return domain.Item{
		ID:             id,
		Name:           strings.TrimSpace(r.Name),
		QuantityOnHand: r.Quantity,
		MinLevel:       r.MinLevel,
		MaxLevel:       r.MaxLevel,
	}, nil
}

// loadCatalogue reads items from an .xlsx or .json file
func loadCatalogue(path string) ([]domain.Item, error) {
	var (
		rows []catalogueRow
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readSpreadsheet(path)
	case ".json":
		rows, err = readJSON(path)
	default:
		return nil, fmt.Errorf("unsupported catalogue format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		item, err := row.toItem()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("row %d: duplicate item id %s", i+1, item.ID)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func readJSON(path string) ([]catalogueRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue: %w", err)
	}
	var rows []catalogueRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}
	return rows, nil
}

// readSpreadsheet reads the first sheet. Columns: id, name, quantity,
// min_level, max_level. The first row is a header.
func readSpreadsheet(path string) ([]catalogueRow, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalogue: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in catalogue")
	}
	sheet := file.Sheets[0]

	var rows []catalogueRow
	rowIdx := 0
	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		rowIdx++
		if rowIdx == 1 {
			return nil
		}

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			if s, err := c.FormattedValue(); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(c.String())
		}

		id := get(0)
		if id == "" {
			return nil
		}

		quantity, err := parseCount(get(2))
		if err != nil {
			return fmt.Errorf("row %d quantity: %w", rowIdx, err)
		}
		minLevel, err := parseOptional(get(3))
		if err != nil {
			return fmt.Errorf("row %d min_level: %w", rowIdx, err)
		}
		maxLevel, err := parseOptional(get(4))
		if err != nil {
			return fmt.Errorf("row %d max_level: %w", rowIdx, err)
		}

		rows = append(rows, catalogueRow{
			ID:       id,
			Name:     get(1),
			Quantity: quantity,
			MinLevel: minLevel,
			MaxLevel: maxLevel,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return rows, nil
}

func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	// spreadsheets hand back whole numbers as "12" or "12.0"
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int64(f), nil
	}
	return 0, fmt.Errorf("%q is not a whole number", s)
}

func parseOptional(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseCount(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func int64Ptr(v int64) *int64 {
	return &v
}

// demoCatalogue is loaded when no file is given
func demoCatalogue() []domain.Item {
	return []domain.Item{
		{ID: "sku-widget-blue", Name: "Blue Widget", QuantityOnHand: 120, MinLevel: int64Ptr(20), MaxLevel: int64Ptr(500)},
		{ID: "sku-widget-red", Name: "Red Widget", QuantityOnHand: 8, MinLevel: int64Ptr(10), MaxLevel: int64Ptr(200)},
		{ID: "sku-gear-small", Name: "Small Gear", QuantityOnHand: 0, MinLevel: int64Ptr(5)},
		{ID: "sku-gear-large", Name: "Large Gear", QuantityOnHand: 42},
		{ID: "sku-bolt-m6", Name: "M6 Bolt (box of 100)", QuantityOnHand: 300, MinLevel: int64Ptr(50), MaxLevel: int64Ptr(250)},
	}
}
