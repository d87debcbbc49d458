package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger/internal/core/domain"
)

func TestParseReason(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Reason
	}{
		{"sale", domain.ReasonSale},
		{" Purchase ", domain.ReasonPurchase},
		{"RETURN", domain.ReasonReturn},
		{"damage", domain.ReasonDamage},
		{"transfer", domain.ReasonTransfer},
		{"adjustment", domain.ReasonAdjustment},
		{"other", domain.ReasonOther},
		{"", domain.ReasonOther},
		{"shrinkage", domain.ReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := domain.ParseReason(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Known())
		})
	}

	assert.False(t, domain.Reason("shrinkage").Known())
}

func TestAdjustmentRequest_Validate(t *testing.T) {
	negative := decimal.NewFromInt(-2)
	zero := decimal.Zero
	ceiling := domain.MaxUnitCost
	overCeiling := domain.MaxUnitCost.Add(decimal.RequireFromString("0.0001"))
	fourPlaces := decimal.RequireFromString("12.3456")
	trailingZeros := decimal.RequireFromString("1.50000")
	fivePlaces := decimal.RequireFromString("12.34567")

	tests := []struct {
		name    string
		req     domain.AdjustmentRequest
		wantErr string
	}{
		{
			name: "valid_sale",
			req:  domain.AdjustmentRequest{ItemID: "sku-1", Delta: -3, Reason: domain.ReasonSale},
		},
		{
			name: "valid_restock_with_cost",
			req:  domain.AdjustmentRequest{ItemID: "sku-1", Delta: 12, UnitCost: &zero},
		},
		{
			name:    "missing_item",
			req:     domain.AdjustmentRequest{Delta: 1},
			wantErr: "item_id is required",
		},
		{
			name:    "whitespace_item",
			req:     domain.AdjustmentRequest{ItemID: "\t ", Delta: 1},
			wantErr: "item_id is required",
		},
		{
			name:    "zero_delta",
			req:     domain.AdjustmentRequest{ItemID: "sku-1"},
			wantErr: "delta must be non-zero",
		},
		{
			name:    "negative_unit_cost",
			req:     domain.AdjustmentRequest{ItemID: "sku-1", Delta: 1, UnitCost: &negative},
			wantErr: "unit_cost cannot be negative",
		},
		{
			name: "unit_cost_at_ceiling",
			req:  domain.AdjustmentRequest{ItemID: "sku-1", Delta: 1, UnitCost: &ceiling},
		},
		{
			name:    "unit_cost_over_ceiling",
			req:     domain.AdjustmentRequest{ItemID: "sku-1", Delta: 1, UnitCost: &overCeiling},
			wantErr: "unit_cost cannot exceed 1000000000",
		},
		{
			name: "unit_cost_four_places",
			req:  domain.AdjustmentRequest{ItemID: "sku-1", Delta: 1, UnitCost: &fourPlaces},
		},
		{
			name: "unit_cost_trailing_zeros",
			req:  domain.AdjustmentRequest{ItemID: "sku-1", Delta: 1, UnitCost: &trailingZeros},
		},
		{
			name:    "unit_cost_five_places",
			req:     domain.AdjustmentRequest{ItemID: "sku-1", Delta: 1, UnitCost: &fivePlaces},
			wantErr: "unit_cost allows at most 4 decimal places",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRecord(t *testing.T) {
	cost := decimal.RequireFromString("4.25")
	req := domain.AdjustmentRequest{
		ItemID:   "sku-1",
		Delta:    -2,
		Reason:   "Sale",
		Notes:    "till 3",
		Actor:    "alex",
		UnitCost: &cost,
	}
	stamp := domain.NewStamp()

	rec := domain.NewRecord(req, stamp)
	assert.Equal(t, stamp.ID, rec.ID)
	assert.Equal(t, stamp.Timestamp, rec.Timestamp)
	assert.Equal(t, domain.ReasonSale, rec.Reason)
	assert.Equal(t, "till 3", rec.Notes)
	require.NotNil(t, rec.ValueChange)
	assert.True(t, rec.ValueChange.Equal(decimal.RequireFromString("-8.5")))

	// the record keeps its own copy of the cost
	cost = decimal.NewFromInt(99)
	assert.True(t, rec.UnitCost.Equal(decimal.RequireFromString("4.25")))

	rec.MarkApplied(10, 8)
	assert.True(t, rec.Applied())
	assert.Equal(t, int64(10), *rec.PreviousQuantity)
	assert.Equal(t, int64(8), *rec.ResultingQuantity)
	assert.Empty(t, rec.RejectionCause)

	observed := int64(1)
	rejected := domain.NewRecord(req, domain.NewStamp())
	rejected.MarkRejected(domain.CauseWouldGoNegative, &observed)
	assert.False(t, rejected.Applied())
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.Nil(t, rejected.ResultingQuantity)
	assert.Nil(t, rejected.ValueChange)
	assert.Equal(t, int64(1), *rejected.PreviousQuantity)
}

func TestNewStamp(t *testing.T) {
	prev := domain.NewStamp()
	for i := 0; i < 1000; i++ {
		next := domain.NewStamp()
		assert.Equal(t, uuid.Version(7), next.ID.Version())
		assert.Equal(t, time.UTC, next.Timestamp.Location())
		assert.Zero(t, next.Timestamp.Nanosecond()%1000)

		a := domain.AdjustmentRecord{ID: prev.ID, Timestamp: prev.Timestamp}
		b := domain.AdjustmentRecord{ID: next.ID, Timestamp: next.Timestamp}
		assert.False(t, b.Before(&a), "stamp %d went backwards", i)
		prev = next
	}
}

func TestAdjustmentRecord_Before(t *testing.T) {
	now := time.Now().UTC()
	low := uuid.MustParse("01900000-0000-7000-8000-000000000001")
	high := uuid.MustParse("01900000-0000-7000-8000-000000000002")

	tests := []struct {
		name string
		a, b domain.AdjustmentRecord
		want bool
	}{
		{
			name: "earlier_timestamp_first",
			a:    domain.AdjustmentRecord{ID: high, Timestamp: now},
			b:    domain.AdjustmentRecord{ID: low, Timestamp: now.Add(time.Microsecond)},
			want: true,
		},
		{
			name: "tie_broken_by_id",
			a:    domain.AdjustmentRecord{ID: low, Timestamp: now},
			b:    domain.AdjustmentRecord{ID: high, Timestamp: now},
			want: true,
		},
		{
			name: "later_id_is_not_before",
			a:    domain.AdjustmentRecord{ID: high, Timestamp: now},
			b:    domain.AdjustmentRecord{ID: low, Timestamp: now},
			want: false,
		},
		{
			name: "identical_is_not_before",
			a:    domain.AdjustmentRecord{ID: low, Timestamp: now},
			b:    domain.AdjustmentRecord{ID: low, Timestamp: now},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Before(&tt.b))
		})
	}
}

func TestAdjustmentError(t *testing.T) {
	tests := []struct {
		name      string
		cause     domain.RejectionCause
		detail    error
		sentinel  error
		retryable bool
	}{
		{name: "invalid_request", cause: domain.CauseInvalidRequest, detail: fmt.Errorf("%w: delta must be non-zero", domain.ErrInvalidRequest), sentinel: domain.ErrInvalidRequest},
		{name: "item_not_found", cause: domain.CauseItemNotFound, detail: errors.New("no row"), sentinel: domain.ErrItemNotFound},
		{name: "would_go_negative", cause: domain.CauseWouldGoNegative, sentinel: domain.ErrWouldGoNegative},
		{name: "conflict_retry_exhausted", cause: domain.CauseConflictRetryExhausted, detail: errors.New("gave up"), sentinel: domain.ErrConflictRetryExhausted, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.NewAdjustmentError(tt.cause, "sku-1", tt.detail)

			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retryable, err.Retryable())
			assert.NotEmpty(t, err.UserMessage())
			assert.Contains(t, err.Error(), "sku-1")
			assert.Contains(t, err.Error(), string(tt.cause))

			wrapped := fmt.Errorf("handler: %w", err)
			cause, ok := domain.CauseOf(wrapped)
			require.True(t, ok)
			assert.Equal(t, tt.cause, cause)
		})
	}
}

func TestCauseOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   domain.RejectionCause
		wantOK bool
	}{
		{name: "bare_sentinel", err: domain.ErrWouldGoNegative, want: domain.CauseWouldGoNegative, wantOK: true},
		{name: "wrapped_sentinel", err: fmt.Errorf("store: %w", domain.ErrItemNotFound), want: domain.CauseItemNotFound, wantOK: true},
		{name: "write_conflict_is_not_a_cause", err: domain.ErrWriteConflict},
		{name: "infrastructure", err: errors.New("connection refused")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := domain.CauseOf(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRejectionCause_Sentinel(t *testing.T) {
	assert.Error(t, domain.RejectionCause("bogus").Sentinel())
	assert.NotEmpty(t, domain.RejectionCause("bogus").Message())
}
