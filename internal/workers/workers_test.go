// internal/workers/workers_test.go
package workers_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/workers"
	"github.com/ammerola/stockledger/test/helpers"
	"github.com/ammerola/stockledger/test/mocks"
)

func appliedRecord(itemID string) domain.AdjustmentRecord {
	rec := domain.NewRecord(helpers.CreateTestRequest(itemID), domain.NewStamp())
	rec.Attempts = 1
	rec.MarkApplied(10, 5)
	return rec
}

func TestAuditProcessor_AppendRecord(t *testing.T) {
	rec := appliedRecord("sku-1")
	validTask, err := workers.NewAuditAppendTask(&rec)
	require.NoError(t, err)

	tests := []struct {
		name       string
		task       *asynq.Task
		setupMocks func(*mocks.MockItemStore)
		wantErr    bool
		skipRetry  bool
	}{
		{
			name: "appends_record",
			task: validTask,
			setupMocks: func(store *mocks.MockItemStore) {
				store.EXPECT().
					AppendRecord(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, got *domain.AdjustmentRecord) error {
						assert.Equal(t, rec.ID, got.ID)
						assert.Equal(t, rec.Delta, got.Delta)
						assert.True(t, got.Applied())
						return nil
					})
			},
		},
		{
			name: "store_failure_is_retried",
			task: validTask,
			setupMocks: func(store *mocks.MockItemStore) {
				store.EXPECT().
					AppendRecord(gomock.Any(), gomock.Any()).
					Return(errors.New("connection refused"))
			},
			wantErr: true,
		},
		{
			name: "refused_record_skips_retry",
			task: validTask,
			setupMocks: func(store *mocks.MockItemStore) {
				store.EXPECT().
					AppendRecord(gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("numeric field overflow (22003): %w", domain.ErrUnstorableRecord))
			},
			wantErr:   true,
			skipRetry: true,
		},
		{
			name:       "malformed_payload_skips_retry",
			task:       asynq.NewTask(workers.TypeAuditAppend, []byte("{not json")),
			setupMocks: func(*mocks.MockItemStore) {},
			wantErr:    true,
			skipRetry:  true,
		},
		{
			name:       "missing_item_skips_retry",
			task:       asynq.NewTask(workers.TypeAuditAppend, []byte(`{"record":{}}`)),
			setupMocks: func(*mocks.MockItemStore) {},
			wantErr:    true,
			skipRetry:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockItemStore(ctrl)
			tt.setupMocks(store)

			processor := workers.NewAuditProcessor(store, helpers.TestLogger())
			err := processor.AppendRecord(context.Background(), tt.task)

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestAuditProcessor_RedeliveryIsIdempotent(t *testing.T) {
	item := helpers.CreateTestItem()
	store := helpers.NewMemoryStore(t, item)
	processor := workers.NewAuditProcessor(store, helpers.TestLogger())

	rec := appliedRecord(item.ID)
	task, err := workers.NewAuditAppendTask(&rec)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, processor.AppendRecord(ctx, task))
	require.NoError(t, processor.AppendRecord(ctx, task))

	records, err := store.ListRecords(ctx, item.ID, ports.HistoryQuery{Order: ports.SortAscending})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestNotificationProcessor_LowStockAlert(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		itemID   string
		wantErr  bool
	}{
		{name: "alerts_when_still_low", quantity: 1},
		{name: "drops_stale_alert", quantity: 50},
		{name: "unknown_item_is_retried", itemID: "missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := helpers.CreateTestItem(func(i *domain.Item) {
				i.QuantityOnHand = tt.quantity
			})
			store := helpers.NewMemoryStore(t, item)
			processor := workers.NewNotificationProcessor(store, helpers.TestLogger())

			itemID := item.ID
			if tt.itemID != "" {
				itemID = tt.itemID
			}
			task, err := workers.NewLowStockTask(domain.LowStockEvent{
				ItemID:       itemID,
				Quantity:     1,
				MinLevel:     item.MinLevel,
				Status:       domain.StockLow,
				AdjustmentID: uuid.New(),
				OccurredAt:   time.Now().UTC(),
			})
			require.NoError(t, err)

			err = processor.LowStockAlert(context.Background(), task)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrItemNotFound)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNotificationProcessor_MalformedPayload(t *testing.T) {
	processor := workers.NewNotificationProcessor(helpers.NewMemoryStore(t), helpers.TestLogger())
	err := processor.LowStockAlert(context.Background(), asynq.NewTask(workers.TypeLowStockAlert, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
