//go:build integration
// +build integration

package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ammerola/stockledger/internal/adapters/db"
	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/core/services"
	"github.com/ammerola/stockledger/test/helpers"
)

type ItemStoreSuite struct {
	suite.Suite
	testDB *helpers.TestDB
	store  *db.ItemStore
	ctx    context.Context
}

func (s *ItemStoreSuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.store = db.NewItemStore(s.testDB.Database, time.Second, helpers.TestLogger())
	s.ctx = context.Background()
}

func (s *ItemStoreSuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.Database)
}

func (s *ItemStoreSuite) seed(overrides ...func(*domain.Item)) domain.Item {
	item := helpers.CreateTestItem(overrides...)
	s.Require().NoError(s.store.SaveItem(s.ctx, item))
	return item
}

func (s *ItemStoreSuite) TestSaveItemKeepsQuantity() {
	item := s.seed()

	item.Name = "Renamed"
	item.QuantityOnHand = 99
	s.Require().NoError(s.store.SaveItem(s.ctx, item))

	qty, err := s.store.ReadQuantity(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(int64(10), qty)

	s.ErrorIs(s.store.SaveItem(s.ctx, domain.Item{ID: "neg", QuantityOnHand: -1}), domain.ErrWouldGoNegative)
}

func (s *ItemStoreSuite) TestReadQuantityUnknown() {
	_, err := s.store.ReadQuantity(s.ctx, "missing")
	s.ErrorIs(err, domain.ErrItemNotFound)
}

func (s *ItemStoreSuite) TestTransact() {
	item := s.seed()

	result, err := s.store.Transact(s.ctx, item.ID, func(current int64) (int64, error) {
		return current - 4, nil
	})
	s.Require().NoError(err)
	s.True(result.Committed)
	s.Equal(int64(10), result.Previous)
	s.Equal(int64(6), result.NewValue)
	s.Equal(int64(1), result.Item.Version)
	s.Require().NotNil(result.Item.MinLevel)
	s.Equal(int64(2), *result.Item.MinLevel)

	_, err = s.store.Transact(s.ctx, item.ID, func(int64) (int64, error) {
		return 0, domain.ErrWouldGoNegative
	})
	s.ErrorIs(err, domain.ErrWouldGoNegative)

	// the CHECK constraint backs up the ledger's own check
	_, err = s.store.Transact(s.ctx, item.ID, func(int64) (int64, error) { return -1, nil })
	s.ErrorIs(err, domain.ErrWouldGoNegative)

	_, err = s.store.Transact(s.ctx, "missing", func(c int64) (int64, error) { return c, nil })
	s.ErrorIs(err, domain.ErrItemNotFound)

	qty, err := s.store.ReadQuantity(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(int64(6), qty)
}

func (s *ItemStoreSuite) TestRecordsRoundTrip() {
	item := s.seed()
	ledger := services.NewLedgerService(s.store, nil, nil, services.DefaultLedgerOptions(), helpers.TestLogger())

	_, err := ledger.ApplyAdjustment(s.ctx, helpers.CreateTestRequest(item.ID))
	s.Require().NoError(err)
	_, err = ledger.ApplyAdjustment(s.ctx, helpers.CreateTestRequest(item.ID, func(r *domain.AdjustmentRequest) { r.Delta = -8 }))
	s.Require().ErrorIs(err, domain.ErrWouldGoNegative)

	recs, err := ledger.GetHistory(s.ctx, item.ID, ports.SortAscending, 0)
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal(domain.StatusApplied, recs[0].Status)
	s.Equal(int64(5), *recs[0].ResultingQuantity)
	s.Equal(domain.CauseWouldGoNegative, recs[1].RejectionCause)
	s.Nil(recs[1].ResultingQuantity)
	s.True(recs[0].Before(&recs[1]))

	// redelivered records are ignored
	dup := recs[0]
	s.Require().NoError(s.store.AppendRecord(s.ctx, &dup))
	again, err := ledger.GetHistory(s.ctx, item.ID, ports.SortDescending, 0)
	s.Require().NoError(err)
	s.Len(again, 2)
	s.Equal(recs[1].ID, again[0].ID)
}

func (s *ItemStoreSuite) TestRecordsAreAppendOnly() {
	item := s.seed()
	rec := domain.NewRecord(helpers.CreateTestRequest(item.ID), domain.NewStamp())
	rec.MarkApplied(10, 5)
	s.Require().NoError(s.store.AppendRecord(s.ctx, &rec))

	_, err := s.testDB.Database.Exec(s.ctx, "UPDATE stock_adjustments SET delta = 1 WHERE id = $1", rec.ID)
	s.Error(err)
	_, err = s.testDB.Database.Exec(s.ctx, "DELETE FROM stock_adjustments WHERE id = $1", rec.ID)
	s.Error(err)
}

func (s *ItemStoreSuite) TestHistoryPaging() {
	item := s.seed(func(i *domain.Item) { i.QuantityOnHand = 0 })
	opts := services.DefaultLedgerOptions()
	opts.HistoryPageSize = 3
	ledger := services.NewLedgerService(s.store, nil, nil, opts, helpers.TestLogger())

	for i := 0; i < 10; i++ {
		_, err := ledger.ApplyAdjustment(s.ctx, helpers.CreateTestRequest(item.ID, func(r *domain.AdjustmentRequest) {
			r.Delta = 1
			r.Reason = domain.ReasonPurchase
		}))
		s.Require().NoError(err)
	}

	for _, order := range []ports.SortOrder{ports.SortAscending, ports.SortDescending} {
		recs, err := ledger.GetHistory(s.ctx, item.ID, order, 0)
		s.Require().NoError(err)
		s.Require().Len(recs, 10)
		for i := 1; i < len(recs); i++ {
			if order == ports.SortAscending {
				s.True(recs[i-1].Before(&recs[i]))
				s.Equal(*recs[i-1].ResultingQuantity+1, *recs[i].ResultingQuantity)
			} else {
				s.True(recs[i].Before(&recs[i-1]))
			}
		}
	}
}

func (s *ItemStoreSuite) TestConcurrentOversell() {
	item := s.seed()
	ledger := services.NewLedgerService(s.store, nil, nil, services.DefaultLedgerOptions(), helpers.TestLogger())

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = ledger.ApplyAdjustment(s.ctx, helpers.CreateTestRequest(item.ID, func(r *domain.AdjustmentRequest) {
				r.Delta = -3
			}))
		}()
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
			continue
		}
		cause, ok := domain.CauseOf(err)
		s.Require().True(ok, "unexpected error: %v", err)
		s.Contains([]domain.RejectionCause{domain.CauseWouldGoNegative, domain.CauseConflictRetryExhausted}, cause)
	}
	s.Equal(3, applied)

	qty, err := s.store.ReadQuantity(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), qty)

	recs, err := ledger.GetHistory(s.ctx, item.ID, ports.SortAscending, 0)
	s.Require().NoError(err)
	s.Len(recs, workers)

	running := int64(10)
	for _, rec := range recs {
		if !rec.Applied() {
			continue
		}
		s.Equal(running, *rec.PreviousQuantity)
		running += rec.Delta
		s.Equal(running, *rec.ResultingQuantity)
	}
}

func TestItemStoreSuite(t *testing.T) {
	suite.Run(t, new(ItemStoreSuite))
}
