// internal/workers/tasks.go
package workers

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
)

const (
	TypeLowStockAlert = "stock:low_alert"
	TypeAuditAppend   = "audit:append"
)

// Queue names, matching ASYNQ_QUEUES
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// AuditAppendPayload carries a record whose synchronous append failed
type AuditAppendPayload struct {
	Record domain.AdjustmentRecord `json:"record"`
}

// NewLowStockTask builds the alert task for an event
func NewLowStockTask(event domain.LowStockEvent) (*asynq.Task, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal low stock event: %w", err)
	}
	return asynq.NewTask(TypeLowStockAlert, b), nil
}

// NewAuditAppendTask builds the task that re-appends a record
func NewAuditAppendTask(record *domain.AdjustmentRecord) (*asynq.Task, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record is required", domain.ErrInvalidRequest)
	}
	b, err := json.Marshal(AuditAppendPayload{Record: *record})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit payload: %w", err)
	}
	return asynq.NewTask(TypeAuditAppend, b), nil
}
