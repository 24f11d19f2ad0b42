//go:build integration

package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"linkmart/internal/order"
	"linkmart/pkg/domain"
	"linkmart/pkg/platform/sentinel"
	txcontext "linkmart/pkg/platform/tx"
	"linkmart/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *order.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = order.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "order_status_history", "order_line_items", "orders")
	s.Require().NoError(err)
}

func newTestOrder() *order.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	perLink := int64(17500)
	return &order.Order{
		ID:                    domain.OrderID(uuid.New()),
		AccountID:             domain.AccountID(uuid.New()),
		Status:                order.StatusPendingConfirmation,
		State:                 order.StateAwaitingReview,
		SubtotalRetail:        35000,
		TotalRetail:           35000,
		TotalWholesale:        19200,
		ProfitMargin:          45,
		EstimatedPricePerLink: &perLink,
		EstimatedLinksCount:   2,
		Preferences:           order.Preferences{DomainRatingMin: 50, TrafficMin: 10000},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	o := newTestOrder()

	s.Require().NoError(s.store.Create(ctx, o))

	got, err := s.store.Get(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(o.ID, got.ID)
	s.Equal(o.AccountID, got.AccountID)
	s.Equal(o.Status, got.Status)
	s.Equal(o.SubtotalRetail, got.SubtotalRetail)
	s.Require().NotNil(got.EstimatedPricePerLink)
	s.Equal(*o.EstimatedPricePerLink, *got.EstimatedPricePerLink)
	s.Equal(o.Preferences, got.Preferences)
	s.WithinDuration(o.CreatedAt, got.CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestNullablePricePerLink() {
	ctx := context.Background()
	o := newTestOrder()
	o.EstimatedPricePerLink = nil
	o.EstimatedLinksCount = 0

	s.Require().NoError(s.store.Create(ctx, o))

	got, err := s.store.Get(ctx, o.ID)
	s.Require().NoError(err)
	s.Nil(got.EstimatedPricePerLink)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	o := newTestOrder()
	s.Require().NoError(s.store.Create(ctx, o))

	o.Status = order.StatusConfirmed
	o.State = order.StateAnalyzing
	o.ResubmissionCount = 2
	o.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Update(ctx, o))

	got, err := s.store.Get(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(order.StatusConfirmed, got.Status)
	s.Equal(order.StateAnalyzing, got.State)
	s.Equal(2, got.ResubmissionCount)
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.Get(ctx, domain.OrderID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	ghost := newTestOrder()
	s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestStatusHistory() {
	ctx := context.Background()
	o := newTestOrder()
	s.Require().NoError(s.store.Create(ctx, o))

	actorID := domain.UserID(uuid.New())
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, to := range []order.Status{order.StatusPendingConfirmation, order.StatusConfirmed} {
		entry := &order.StatusHistoryEntry{
			OrderID:   o.ID,
			ToStatus:  to,
			ToState:   order.StateAnalyzing,
			ActorID:   actorID,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		s.Require().NoError(s.store.AppendStatusHistory(ctx, entry))
	}

	entries, err := s.store.ListStatusHistory(ctx, o.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(order.StatusPendingConfirmation, entries[0].ToStatus)
	s.Equal(order.StatusConfirmed, entries[1].ToStatus)
	s.Equal(actorID, entries[0].ActorID)
}

// TestTransactionRollback verifies that an order insert and its history row
// vanish together when the surrounding transaction rolls back.
func (s *PostgresStoreSuite) TestTransactionRollback() {
	ctx := context.Background()
	o := newTestOrder()

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx := txcontext.WithTx(ctx, tx)

	s.Require().NoError(s.store.Create(txCtx, o))
	s.Require().NoError(s.store.AppendStatusHistory(txCtx, &order.StatusHistoryEntry{
		OrderID:   o.ID,
		ToStatus:  order.StatusPendingConfirmation,
		ToState:   order.StateAwaitingReview,
		ActorID:   domain.UserID(uuid.New()),
		CreatedAt: time.Now().UTC(),
	}))

	// Inside the transaction the row is visible.
	_, err = s.store.Get(txCtx, o.ID)
	s.Require().NoError(err)

	s.Require().NoError(tx.Rollback())

	_, err = s.store.Get(ctx, o.ID)
	s.True(errors.Is(err, sentinel.ErrNotFound))
	entries, err := s.store.ListStatusHistory(ctx, o.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}
