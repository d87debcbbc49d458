package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/test/helpers"
)

func writeSpreadsheet(t *testing.T, rows [][]string) string {
	t.Helper()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("items")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}

	path := filepath.Join(t.TempDir(), "catalogue.xlsx")
	require.NoError(t, file.Save(path))
	return path
}

func TestLoadCatalogue_Spreadsheet(t *testing.T) {
	path := writeSpreadsheet(t, [][]string{
		{"id", "name", "quantity", "min_level", "max_level"},
		{"sku-1", "Widget", "12", "2", "50"},
		{"sku-2", "Gear", "0", "", ""},
		{"", "blank rows are skipped", "", "", ""},
		{"sku-3", "Bolt", "7.0", "1", ""},
	})

	items, err := loadCatalogue(path)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "sku-1", items[0].ID)
	assert.Equal(t, int64(12), items[0].QuantityOnHand)
	require.NotNil(t, items[0].MinLevel)
	assert.Equal(t, int64(2), *items[0].MinLevel)
	assert.Equal(t, int64(50), *items[0].MaxLevel)

	assert.Nil(t, items[1].MinLevel)
	assert.Equal(t, domain.StockOutOfStock, items[1].Status())

	assert.Equal(t, int64(7), items[2].QuantityOnHand)
	assert.Nil(t, items[2].MaxLevel)
}

func TestLoadCatalogue_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]string
		wantErr string
	}{
		{
			name:    "fractional_quantity",
			rows:    [][]string{{"id"}, {"sku-1", "Widget", "1.5"}},
			wantErr: "not a whole number",
		},
		{
			name:    "negative_quantity",
			rows:    [][]string{{"id"}, {"sku-1", "Widget", "-3"}},
			wantErr: "cannot be negative",
		},
		{
			name:    "inverted_thresholds",
			rows:    [][]string{{"id"}, {"sku-1", "Widget", "3", "10", "5"}},
			wantErr: "min_level above max_level",
		},
		{
			name:    "duplicate_id",
			rows:    [][]string{{"id"}, {"sku-1", "A", "1"}, {"sku-1", "B", "2"}},
			wantErr: "duplicate item id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadCatalogue(writeSpreadsheet(t, tt.rows))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCatalogue_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "sku-1", "name": "Widget", "quantity": 4, "min_level": 1},
		{"id": "sku-2", "quantity": 0}
	]`), 0o600))

	items, err := loadCatalogue(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(4), items[0].QuantityOnHand)
	assert.Equal(t, int64(1), *items[0].MinLevel)

	_, err = loadCatalogue(filepath.Join(t.TempDir(), "catalogue.csv"))
	assert.ErrorContains(t, err, "unsupported catalogue format")
}

type failingSaver struct {
	failID string
	saved  []string
}

func (f *failingSaver) SaveItem(_ context.Context, item domain.Item) error {
	if item.ID == f.failID {
		return errors.New("constraint violation")
	}
	f.saved = append(f.saved, item.ID)
	return nil
}

func TestSeedItems(t *testing.T) {
	items := demoCatalogue()
	saver := &failingSaver{failID: items[1].ID}

	saved, failed := seedItems(context.Background(), saver, items, helpers.TestLogger())
	assert.Equal(t, len(items)-1, saved)
	assert.Equal(t, []string{items[1].ID}, failed)
	assert.NotContains(t, saver.saved, items[1].ID)
}

func TestDemoCatalogueIsValid(t *testing.T) {
	for _, item := range demoCatalogue() {
		row := catalogueRow{ID: item.ID, Name: item.Name, Quantity: item.QuantityOnHand, MinLevel: item.MinLevel, MaxLevel: item.MaxLevel}
		_, err := row.toItem()
		assert.NoError(t, err, item.ID)
	}
}
