// internal/core/domain/adjustment.go
package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reason categorises why stock changed
type Reason string

// Reason constants
const (
	ReasonPurchase   Reason = "purchase"
	ReasonReturn     Reason = "return"
	ReasonSale       Reason = "sale"
	ReasonDamage     Reason = "damage"
	ReasonTransfer   Reason = "transfer"
	ReasonAdjustment Reason = "adjustment"
	ReasonOther      Reason = "other"
)

var knownReasons = map[Reason]struct{}{
	ReasonPurchase:   {},
	ReasonReturn:     {},
	ReasonSale:       {},
	ReasonDamage:     {},
	ReasonTransfer:   {},
	ReasonAdjustment: {},
	ReasonOther:      {},
}

// ParseReason maps free text onto the closed reason set. Anything
// unrecognised becomes ReasonOther.
func ParseReason(s string) Reason {
	r := Reason(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownReasons[r]; ok {
		return r
	}
	return ReasonOther
}

// Known reports whether r is part of the closed set
func (r Reason) Known() bool {
	_, ok := knownReasons[r]
	return ok
}

// AdjustmentStatus is the outcome recorded for an attempt
type AdjustmentStatus string

const (
	StatusApplied  AdjustmentStatus = "applied"
	StatusRejected AdjustmentStatus = "rejected"
)

// RejectionCause explains a rejected attempt
type RejectionCause string

const (
	CauseInvalidRequest         RejectionCause = "invalid_request"
	CauseItemNotFound           RejectionCause = "item_not_found"
	CauseWouldGoNegative        RejectionCause = "would_go_negative"
	CauseConflictRetryExhausted RejectionCause = "conflict_retry_exhausted"
)

// Sentinel returns the error value matching the cause
func (c RejectionCause) Sentinel() error {
	switch c {
	case CauseInvalidRequest:
		return ErrInvalidRequest
	case CauseItemNotFound:
		return ErrItemNotFound
	case CauseWouldGoNegative:
		return ErrWouldGoNegative
	case CauseConflictRetryExhausted:
		return ErrConflictRetryExhausted
	default:
		return fmt.Errorf("unknown rejection cause %q", string(c))
	}
}

// Message is the user-visible text for the cause
func (c RejectionCause) Message() string {
	switch c {
	case CauseInvalidRequest:
		return "The adjustment is incomplete: choose an item, enter a non-zero quantity and a valid unit cost."
	case CauseItemNotFound:
		return "This item no longer exists. Refresh the list and pick it again."
	case CauseWouldGoNegative:
		return "Not enough stock on hand to remove that quantity."
	case CauseConflictRetryExhausted:
		return "The item is being updated by someone else right now. Please try again."
	default:
		return "The adjustment could not be applied."
	}
}

// Unit cost bounds. Records keep the cost exactly as given, so anything
// finer than UnitCostPlaces is refused rather than rounded.
const UnitCostPlaces = 4

var MaxUnitCost = decimal.New(1, 9)

// AdjustmentRequest is one user action asking to change an item's quantity.
// It is never mutated after creation.
type AdjustmentRequest struct {
	ItemID   string           `json:"item_id"`
	Delta    int64            `json:"delta"`
	Reason   Reason           `json:"reason"`
	Notes    string           `json:"notes,omitempty"`
	Actor    string           `json:"actor,omitempty"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

// Validate checks the request before any store access
func (r AdjustmentRequest) Validate() error {
	if strings.TrimSpace(r.ItemID) == "" {
		return fmt.Errorf("%w: item_id is required", ErrInvalidRequest)
	}
	if r.Delta == 0 {
		return fmt.Errorf("%w: delta must be non-zero", ErrInvalidRequest)
	}
	if r.UnitCost != nil {
		cost := *r.UnitCost
		switch {
		case cost.IsNegative():
			return fmt.Errorf("%w: unit_cost cannot be negative", ErrInvalidRequest)
		case cost.GreaterThan(MaxUnitCost):
			return fmt.Errorf("%w: unit_cost cannot exceed %s", ErrInvalidRequest, MaxUnitCost)
		case !cost.Equal(cost.Round(UnitCostPlaces)):
			return fmt.Errorf("%w: unit_cost allows at most %d decimal places", ErrInvalidRequest, UnitCostPlaces)
		}
	}
	return nil
}

// AdjustmentRecord is the immutable audit entry for one attempt
type AdjustmentRecord struct {
	ID                uuid.UUID        `json:"id"`
	ItemID            string           `json:"item_id"`
	Delta             int64            `json:"delta"`
	Reason            Reason           `json:"reason"`
	Notes             string           `json:"notes,omitempty"`
	Actor             string           `json:"actor,omitempty"`
	PreviousQuantity  *int64           `json:"previous_quantity,omitempty"`
	ResultingQuantity *int64           `json:"resulting_quantity,omitempty"`
	Status            AdjustmentStatus `json:"status"`
	RejectionCause    RejectionCause   `json:"rejection_cause,omitempty"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
	ValueChange       *decimal.Decimal `json:"value_change,omitempty"`
	Attempts          int              `json:"attempts"`
	Timestamp         time.Time        `json:"timestamp"`
}

// Stamp is the identity and time of a record. Stamps are taken while the
// item is held by the store transaction so that record order follows commit order.
type Stamp struct {
	ID        uuid.UUID
	Timestamp time.Time
}

// NewStamp generates a time-ordered record id and its timestamp. The
// timestamp is truncated to the microsecond precision Postgres stores.
func NewStamp() Stamp {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Stamp{ID: id, Timestamp: time.Now().UTC().Truncate(time.Microsecond)}
}

// NewRecord starts a record for req with the given stamp
func NewRecord(req AdjustmentRequest, stamp Stamp) AdjustmentRecord {
	rec := AdjustmentRecord{
		ID:        stamp.ID,
		ItemID:    req.ItemID,
		Delta:     req.Delta,
		Reason:    ParseReason(string(req.Reason)),
		Notes:     req.Notes,
		Actor:     req.Actor,
		Timestamp: stamp.Timestamp,
	}
	if req.UnitCost != nil {
		cost := *req.UnitCost
		value := cost.Mul(decimal.NewFromInt(req.Delta))
		rec.UnitCost = &cost
		rec.ValueChange = &value
	}
	return rec
}

// MarkApplied completes the record for a committed change
func (r *AdjustmentRecord) MarkApplied(previous, resulting int64) {
	r.Status = StatusApplied
	r.RejectionCause = ""
	r.PreviousQuantity = &previous
	r.ResultingQuantity = &resulting
}

// MarkRejected completes the record for a rejected attempt
func (r *AdjustmentRecord) MarkRejected(cause RejectionCause, observed *int64) {
	r.Status = StatusRejected
	r.RejectionCause = cause
	r.PreviousQuantity = observed
	r.ResultingQuantity = nil
	r.ValueChange = nil
}

// Applied reports whether the record changed stock
func (r *AdjustmentRecord) Applied() bool {
	return r.Status == StatusApplied
}

// Before orders records by timestamp, breaking ties with the time-ordered id
func (r *AdjustmentRecord) Before(other *AdjustmentRecord) bool {
	if !r.Timestamp.Equal(other.Timestamp) {
		return r.Timestamp.Before(other.Timestamp)
	}
	return bytes.Compare(r.ID[:], other.ID[:]) < 0
}
