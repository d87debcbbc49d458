// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Adjustment outcomes. These four make up the complete rejection taxonomy
// reported to callers of the ledger.
var (
	ErrInvalidRequest         = errors.New("invalid adjustment request")
	ErrItemNotFound           = errors.New("item not found")
	ErrWouldGoNegative        = errors.New("adjustment would take quantity below zero")
	ErrConflictRetryExhausted = errors.New("adjustment kept conflicting with concurrent updates")
)

// ErrWriteConflict is reported by an ItemStore when another transaction
// committed against the same item between read and write.
var ErrWriteConflict = errors.New("write conflict")

// ErrUnstorableRecord is reported by an ItemStore that refused a record's
// contents. Retrying the same record cannot succeed.
var ErrUnstorableRecord = errors.New("adjustment record refused by store")

// AdjustmentError is the typed outcome for a rejected adjustment
type AdjustmentError struct {
	Cause  RejectionCause
	ItemID string
	Err    error
}

func (e *AdjustmentError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("adjustment rejected (%s): %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("adjustment on item %s rejected (%s): %v", e.ItemID, e.Cause, e.Err)
}

func (e *AdjustmentError) Unwrap() error {
	return e.Err
}

// UserMessage returns the message shown to the person who asked for the change
func (e *AdjustmentError) UserMessage() string {
	return e.Cause.Message()
}

// Retryable reports whether the caller may resubmit the same change as a fresh request
func (e *AdjustmentError) Retryable() bool {
	return e.Cause == CauseConflictRetryExhausted
}

// NewAdjustmentError builds the typed error for a cause
func NewAdjustmentError(cause RejectionCause, itemID string, detail error) *AdjustmentError {
	base := cause.Sentinel()
	err := base
	if detail != nil && !errors.Is(detail, base) {
		err = fmt.Errorf("%w: %v", base, detail)
	}
	return &AdjustmentError{Cause: cause, ItemID: itemID, Err: err}
}

// CauseOf extracts the rejection cause from an error returned by the ledger
func CauseOf(err error) (RejectionCause, bool) {
	var adjErr *AdjustmentError
	if errors.As(err, &adjErr) {
		return adjErr.Cause, true
	}
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return CauseInvalidRequest, true
	case errors.Is(err, ErrItemNotFound):
		return CauseItemNotFound, true
	case errors.Is(err, ErrWouldGoNegative):
		return CauseWouldGoNegative, true
	case errors.Is(err, ErrConflictRetryExhausted):
		return CauseConflictRetryExhausted, true
	}
	return "", false
}
