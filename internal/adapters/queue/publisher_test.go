package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger/internal/adapters/queue"
	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/workers"
	"github.com/ammerola/stockledger/test/helpers"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Type: task.Type()}, nil
}

func TestPublisher_PublishLowStock(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "enqueues_alert"},
		{name: "propagates_enqueue_error", err: errors.New("redis down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enq := &fakeEnqueuer{err: tt.err}
			pub := queue.NewPublisher(enq, 5, helpers.TestLogger())

			event := domain.LowStockEvent{
				ItemID:       "sku-1",
				Quantity:     1,
				MinLevel:     helpers.Int64(2),
				Status:       domain.StockLow,
				AdjustmentID: uuid.New(),
				OccurredAt:   time.Now().UTC(),
			}

			err := pub.PublishLowStock(context.Background(), event)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, enq.tasks)
				return
			}
			require.NoError(t, err)
			require.Len(t, enq.tasks, 1)
			assert.Equal(t, workers.TypeLowStockAlert, enq.tasks[0].Type())

			var got domain.LowStockEvent
			require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &got))
			assert.Equal(t, event.ItemID, got.ItemID)
			assert.Equal(t, event.AdjustmentID, got.AdjustmentID)
		})
	}
}

func TestPublisher_PublishAuditRetry(t *testing.T) {
	enq := &fakeEnqueuer{}
	pub := queue.NewPublisher(enq, 5, helpers.TestLogger())

	req := helpers.CreateTestRequest("sku-1")
	rec := domain.NewRecord(req, domain.NewStamp())
	rec.MarkApplied(10, 5)

	require.NoError(t, pub.PublishAuditRetry(context.Background(), &rec))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, workers.TypeAuditAppend, enq.tasks[0].Type())

	var payload workers.AuditAppendPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, rec.ID, payload.Record.ID)
	assert.Equal(t, domain.StatusApplied, payload.Record.Status)
	require.NotNil(t, payload.Record.ResultingQuantity)
	assert.Equal(t, int64(5), *payload.Record.ResultingQuantity)
}

func TestPublisher_PublishAuditRetry_NilRecord(t *testing.T) {
	pub := queue.NewPublisher(&fakeEnqueuer{}, 5, helpers.TestLogger())
	err := pub.PublishAuditRetry(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
