package order

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"linkmart/internal/benchmark"
	"linkmart/internal/events"
	"linkmart/internal/lineitem"
	"linkmart/internal/platform/metrics"
	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	txcontext "linkmart/pkg/platform/tx"
	"linkmart/pkg/requestcontext"
)

// =============================================================================
// Order Service Test Suite
// =============================================================================
// Exercises the state machine over in-memory stores. Transactional rollback
// is covered separately by the postgres integration tests; here we pin the
// transition rules, authorization, and aggregation wiring.

type OrderServiceSuite struct {
	suite.Suite
	orders     *InMemoryStore
	lineItems  *lineitem.InMemoryStore
	outbox     *events.InMemoryStore
	benchmarks *benchmark.InMemoryStore
	service    *Service

	systemUser domain.UserID
	internal   domain.Actor
	account    domain.Actor
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(nil)

	s.orders = NewInMemoryStore()
	s.lineItems = lineitem.NewInMemoryStore()
	s.outbox = events.NewInMemoryStore()
	s.benchmarks = benchmark.NewInMemoryStore()

	s.systemUser = domain.UserID(uuid.New())
	benchmarkSvc := benchmark.NewService(s.benchmarks, s.systemUser, logger, m)
	publisher := events.NewPublisher(s.outbox)

	s.service = NewService(
		s.orders, s.lineItems, benchmarkSvc, publisher,
		txcontext.PassthroughRunner{}, 7900, logger, m,
	)

	accountID := domain.AccountID(uuid.New())
	s.internal = domain.Actor{UserID: domain.UserID(uuid.New()), UserType: domain.UserTypeInternal}
	s.account = domain.Actor{UserID: domain.UserID(uuid.New()), UserType: domain.UserTypeAccount, AccountID: accountID}
}

func (s *OrderServiceSuite) ctxFor(actor domain.Actor) context.Context {
	return requestcontext.WithActor(context.Background(), actor)
}

func (s *OrderServiceSuite) createOrder(actor domain.Actor) *Result {
	result, err := s.service.Create(s.ctxFor(actor), CreateInput{
		AccountID: s.account.AccountID,
		LineItems: []LineItemInput{
			{TargetPageURL: "https://buyer.example/landing", EstimatedPrice: 15000},
			{TargetPageURL: "https://buyer.example/pricing", EstimatedPrice: 20000},
		},
	})
	s.Require().NoError(err)
	return result
}

// =============================================================================
// Create Tests
// =============================================================================

func (s *OrderServiceSuite) TestCreate() {
	s.Run("opens order in pending_confirmation with aggregated totals", func() {
		result := s.createOrder(s.internal)

		s.Equal(StatusPendingConfirmation, result.Order.Status)
		s.Equal(StateAwaitingReview, result.Order.State)
		s.Equal(int64(35000), result.Order.SubtotalRetail)
		s.Equal(int64(35000), result.Order.TotalRetail)
		s.Len(result.LineItems, 2)
		for _, item := range result.LineItems {
			s.Equal(lineitem.StatusPending, item.Status)
		}

		history, err := s.orders.ListStatusHistory(context.Background(), result.Order.ID)
		s.Require().NoError(err)
		s.Len(history, 1)
		s.Equal(StatusPendingConfirmation, history[0].ToStatus)
	})

	s.Run("account user is pinned to its own account", func() {
		foreign := domain.AccountID(uuid.New())
		result, err := s.service.Create(s.ctxFor(s.account), CreateInput{
			AccountID: foreign,
			LineItems: []LineItemInput{{TargetPageURL: "https://buyer.example/a", EstimatedPrice: 100}},
		})
		s.Require().NoError(err)
		s.Equal(s.account.AccountID, result.Order.AccountID)
	})

	s.Run("rejects order without line items", func() {
		_, err := s.service.Create(s.ctxFor(s.internal), CreateInput{AccountID: s.account.AccountID})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects negative price", func() {
		_, err := s.service.Create(s.ctxFor(s.internal), CreateInput{
			AccountID: s.account.AccountID,
			LineItems: []LineItemInput{{TargetPageURL: "https://buyer.example/a", EstimatedPrice: -1}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("migrates legacy note counters into the column", func() {
		result, err := s.service.Create(s.ctxFor(s.internal), CreateInput{
			AccountID:     s.account.AccountID,
			InternalNotes: "imported from old system [RESUBMISSIONS: 3] handle with care",
			LineItems:     []LineItemInput{{TargetPageURL: "https://buyer.example/a", EstimatedPrice: 100}},
		})
		s.Require().NoError(err)

		s.Equal(3, result.Order.ResubmissionCount)
		s.NotContains(result.Order.InternalNotes, "[RESUBMISSIONS")
		s.Contains(result.Order.InternalNotes, "imported from old system")
	})

	s.Run("plain notes pass through untouched", func() {
		result, err := s.service.Create(s.ctxFor(s.internal), CreateInput{
			AccountID:     s.account.AccountID,
			InternalNotes: "rush order",
			LineItems:     []LineItemInput{{TargetPageURL: "https://buyer.example/a", EstimatedPrice: 100}},
		})
		s.Require().NoError(err)

		s.Zero(result.Order.ResubmissionCount)
		s.Equal("rush order", result.Order.InternalNotes)
	})

	s.Run("emits order.created", func() {
		before := len(s.outbox.All())
		s.createOrder(s.internal)
		all := s.outbox.All()
		s.Require().Greater(len(all), before)
		s.Equal(events.ActionOrderCreated, all[len(all)-1].Action)
	})
}

// =============================================================================
// Authorization Tests
// =============================================================================

func (s *OrderServiceSuite) TestAuthorization() {
	result := s.createOrder(s.internal)

	s.Run("owner reads own order", func() {
		_, err := s.service.Get(s.ctxFor(s.account), result.Order.ID)
		s.NoError(err)
	})

	s.Run("other account is forbidden", func() {
		other := domain.Actor{
			UserID:    domain.UserID(uuid.New()),
			UserType:  domain.UserTypeAccount,
			AccountID: domain.AccountID(uuid.New()),
		}
		_, err := s.service.Get(s.ctxFor(other), result.Order.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("internal reads any order", func() {
		_, err := s.service.Get(s.ctxFor(s.internal), result.Order.ID)
		s.NoError(err)
	})

	s.Run("unknown order is not found", func() {
		_, err := s.service.Get(s.ctxFor(s.internal), domain.OrderID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("account user cannot complete", func() {
		_, err := s.service.Complete(s.ctxFor(s.account), result.Order.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// =============================================================================
// Transition Tests
// =============================================================================

func (s *OrderServiceSuite) TestConfirm() {
	result := s.createOrder(s.internal)

	o, err := s.service.Confirm(s.ctxFor(s.account), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(StatusConfirmed, o.Status)
	s.Equal(StateAnalyzing, o.State)

	_, err = s.service.Confirm(s.ctxFor(s.account), result.Order.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *OrderServiceSuite) TestComplete() {
	result := s.createOrder(s.internal)

	o, err := s.service.Complete(s.ctxFor(s.internal), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, o.Status)

	_, err = s.service.Complete(s.ctxFor(s.internal), result.Order.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

// =============================================================================
// Resubmit Tests
// =============================================================================

func (s *OrderServiceSuite) TestResubmit() {
	s.Run("increments counter, recomputes totals, snapshots", func() {
		result := s.createOrder(s.account)

		// Buyer changed a line item before resubmitting.
		item := result.LineItems[0]
		item.ApprovedPrice = cents(12000)
		s.Require().NoError(s.lineItems.Update(context.Background(), item))

		res, err := s.service.Resubmit(s.ctxFor(s.account), result.Order.ID, "swapped anchor")
		s.Require().NoError(err)

		s.Equal(1, res.ResubmissionCount)
		s.Equal(StatusPendingConfirmation, res.Order.Status)
		s.Equal(StateAwaitingReview, res.Order.State)
		s.Equal(int64(32000), res.Order.SubtotalRetail)

		// Account-triggered snapshot is attributed to the system user.
		s.Require().NotNil(res.Benchmark)
		s.Equal(s.systemUser, res.Benchmark.CapturedBy)
		s.Equal(benchmark.TypeResubmission, res.Benchmark.Type)
		s.NotEmpty(res.Benchmark.Snapshot)
	})

	s.Run("counter keeps climbing", func() {
		result := s.createOrder(s.account)

		for i := 1; i <= 3; i++ {
			res, err := s.service.Resubmit(s.ctxFor(s.account), result.Order.ID, "")
			s.Require().NoError(err)
			s.Equal(i, res.ResubmissionCount)
		}
	})

	s.Run("invalid from completed", func() {
		result := s.createOrder(s.internal)
		_, err := s.service.Complete(s.ctxFor(s.internal), result.Order.ID)
		s.Require().NoError(err)

		_, err = s.service.Resubmit(s.ctxFor(s.internal), result.Order.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("snapshot skipped without system user never fails resubmit", func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		m := metrics.NewWith(nil)
		noSystemUser := benchmark.NewService(s.benchmarks, domain.UserID{}, logger, m)
		svc := NewService(s.orders, s.lineItems, noSystemUser, events.NewPublisher(s.outbox),
			txcontext.PassthroughRunner{}, 7900, logger, m)

		result := s.createOrder(s.account)
		res, err := svc.Resubmit(s.ctxFor(s.account), result.Order.ID, "")
		s.Require().NoError(err)
		s.Nil(res.Benchmark)
	})
}
