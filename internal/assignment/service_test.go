package assignment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"linkmart/internal/benchmark"
	"linkmart/internal/events"
	"linkmart/internal/lineitem"
	"linkmart/internal/negotiation"
	"linkmart/internal/order"
	"linkmart/internal/platform/metrics"
	"linkmart/internal/pricing"
	"linkmart/internal/website"
	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	txcontext "linkmart/pkg/platform/tx"
	"linkmart/pkg/requestcontext"
)

const testFeeCents = 7900

// stubResolver returns a fixed quote, or an error to simulate a degraded
// catalog.
type stubResolver struct {
	quote pricing.Quote
	err   error
}

func (r *stubResolver) GetWebsitePrice(_ context.Context, _ domain.WebsiteID, _ string, _ pricing.Options) (pricing.Quote, error) {
	return r.quote, r.err
}

// racingItemStore hands the service a pre-assignment snapshot, then lands a
// rival's assignment before the service writes its own. That is the
// interleaving read committed allows across two transactions.
type racingItemStore struct {
	lineitem.Store
	rival *lineitem.LineItem
}

func (r *racingItemStore) Get(ctx context.Context, id domain.LineItemID) (*lineitem.LineItem, error) {
	item, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.rival != nil {
		rival := r.rival
		r.rival = nil
		if err := r.Store.Assign(ctx, rival); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// racingSubmissionStore does the same for submission consumption.
type racingSubmissionStore struct {
	negotiation.SubmissionStore
	rival *negotiation.OrderSiteSubmission
}

func (r *racingSubmissionStore) Get(ctx context.Context, id domain.SubmissionID) (*negotiation.OrderSiteSubmission, error) {
	sub, err := r.SubmissionStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.rival != nil {
		rival := r.rival
		r.rival = nil
		if err := r.SubmissionStore.Consume(ctx, rival); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// =============================================================================
// Assignment Service Test Suite
// =============================================================================

type AssignmentSuite struct {
	suite.Suite
	orders      *order.InMemoryStore
	lineItems   *lineitem.InMemoryStore
	submissions *negotiation.InMemorySubmissionStore
	websites    *website.InMemoryStore
	resolver    *stubResolver
	orderSvc    *order.Service
	publisher   *events.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	service     *Service

	actor      domain.Actor
	orderID    domain.OrderID
	lineItemID domain.LineItemID
	site       *website.Website
	submission *negotiation.OrderSiteSubmission
}

func TestAssignmentSuite(t *testing.T) {
	suite.Run(t, new(AssignmentSuite))
}

func (s *AssignmentSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(nil)

	s.orders = order.NewInMemoryStore()
	s.lineItems = lineitem.NewInMemoryStore()
	s.submissions = negotiation.NewInMemorySubmissionStore()
	s.websites = website.NewInMemoryStore()
	s.resolver = &stubResolver{quote: pricing.Quote{WholesaleCents: 40000, RetailCents: 55000}}

	outbox := events.NewInMemoryStore()
	s.publisher = events.NewPublisher(outbox)
	s.logger = logger
	s.metrics = m
	benchmarkSvc := benchmark.NewService(benchmark.NewInMemoryStore(), domain.UserID(uuid.New()), logger, m)
	s.orderSvc = order.NewService(s.orders, s.lineItems, benchmarkSvc, s.publisher,
		txcontext.PassthroughRunner{}, testFeeCents, logger, m)

	s.service = NewService(s.orderSvc, s.lineItems, s.submissions, s.websites, s.resolver,
		s.publisher, txcontext.PassthroughRunner{}, testFeeCents, logger, m)

	s.actor = domain.Actor{UserID: domain.UserID(uuid.New()), UserType: domain.UserTypeInternal}

	now := time.Now()
	s.orderID = domain.OrderID(uuid.New())
	s.Require().NoError(s.orders.Create(context.Background(), &order.Order{
		ID:        s.orderID,
		AccountID: domain.AccountID(uuid.New()),
		Status:    order.StatusConfirmed,
		State:     order.StateSitesReady,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	s.lineItemID = domain.LineItemID(uuid.New())
	s.Require().NoError(s.lineItems.Create(context.Background(), &lineitem.LineItem{
		ID:             s.lineItemID,
		OrderID:        s.orderID,
		TargetPageURL:  "https://buyer.example/landing",
		EstimatedPrice: 30000,
		Status:         lineitem.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}))

	s.site = &website.Website{
		ID:            domain.WebsiteID(uuid.New()),
		Domain:        "publisher.example.com",
		DomainRating:  72,
		TotalTraffic:  180000,
		GuestPostCost: 35000,
		UpdatedAt:     now,
	}
	s.Require().NoError(s.websites.Upsert(context.Background(), s.site))

	groupID := domain.GroupID(uuid.New())
	s.submission = &negotiation.OrderSiteSubmission{
		ID:               domain.SubmissionID(uuid.New()),
		GroupID:          groupID,
		OrderID:          s.orderID,
		WebsiteID:        s.site.ID,
		Domain:           s.site.Domain,
		SubmissionStatus: negotiation.SubmissionClientApproved,
		InclusionStatus:  negotiation.InclusionIncluded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.Require().NoError(s.submissions.Create(context.Background(), s.submission))
}

func (s *AssignmentSuite) ctx() context.Context {
	return requestcontext.WithActor(context.Background(), s.actor)
}

func (s *AssignmentSuite) assign() error {
	return s.service.AssignDomain(s.ctx(), s.orderID, s.lineItemID, s.submission.ID, s.site.ID)
}

// =============================================================================
// AssignDomain Tests
// =============================================================================

func (s *AssignmentSuite) TestAssignDomain() {
	s.Require().NoError(s.assign())

	item, err := s.lineItems.Get(context.Background(), s.lineItemID)
	s.Require().NoError(err)
	s.Require().NotNil(item.AssignedDomainID)
	s.Equal(s.site.ID, *item.AssignedDomainID)
	s.Equal(s.site.Domain, item.AssignedDomain)
	s.Equal(lineitem.StatusAssigned, item.Status)
	s.Equal(int64(40000), item.WholesalePrice)
	s.Equal(int64(55000), item.EstimatedPrice)
	s.Equal(72, item.Metadata.DomainRating)
	s.Equal(int64(180000), item.Metadata.TotalTraffic)

	sub, err := s.submissions.Get(context.Background(), s.submission.ID)
	s.Require().NoError(err)
	s.True(sub.IsConsumed())
	s.Equal(s.lineItemID, *sub.AssignedToLineItemID)

	o, err := s.orders.Get(context.Background(), s.orderID)
	s.Require().NoError(err)
	s.Equal(int64(55000), o.SubtotalRetail)
}

func (s *AssignmentSuite) TestAssignDomainFallbackPricing() {
	s.resolver.err = errors.New("catalog unreachable")

	s.Require().NoError(s.assign())

	item, err := s.lineItems.Get(context.Background(), s.lineItemID)
	s.Require().NoError(err)
	s.Equal(s.site.GuestPostCost, item.WholesalePrice)
	s.Equal(s.site.GuestPostCost+testFeeCents, item.EstimatedPrice)
}

func (s *AssignmentSuite) TestAssignDomainErrors() {
	s.Run("already assigned line item conflicts", func() {
		s.Require().NoError(s.assign())
		err := s.assign()
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("consumed submission conflicts", func() {
		s.SetupTest()
		other := domain.LineItemID(uuid.New())
		s.submission.AssignedToLineItemID = &other
		s.Require().NoError(s.submissions.Update(context.Background(), s.submission))

		err := s.assign()
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown website", func() {
		s.SetupTest()
		err := s.service.AssignDomain(s.ctx(), s.orderID, s.lineItemID, s.submission.ID, domain.WebsiteID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("line item of a different order", func() {
		s.SetupTest()
		err := s.service.AssignDomain(s.ctx(), s.orderID, domain.LineItemID(uuid.New()), s.submission.ID, s.site.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("submission of a different order", func() {
		s.SetupTest()
		foreign := &negotiation.OrderSiteSubmission{
			ID:      domain.SubmissionID(uuid.New()),
			GroupID: domain.GroupID(uuid.New()),
			OrderID: domain.OrderID(uuid.New()),
		}
		s.Require().NoError(s.submissions.Create(context.Background(), foreign))

		err := s.service.AssignDomain(s.ctx(), s.orderID, s.lineItemID, foreign.ID, s.site.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AssignmentSuite) TestAssignDomainConcurrentLineItemWriters() {
	rival, err := s.lineItems.Get(context.Background(), s.lineItemID)
	s.Require().NoError(err)
	rivalSite := domain.WebsiteID(uuid.New())
	rival.AssignedDomainID = &rivalSite
	rival.AssignedDomain = "rival.example.com"
	rival.Status = lineitem.StatusAssigned

	store := &racingItemStore{Store: s.lineItems, rival: rival}
	svc := NewService(s.orderSvc, store, s.submissions, s.websites, s.resolver,
		s.publisher, txcontext.PassthroughRunner{}, testFeeCents, s.logger, s.metrics)

	err = svc.AssignDomain(s.ctx(), s.orderID, s.lineItemID, s.submission.ID, s.site.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	item, err := s.lineItems.Get(context.Background(), s.lineItemID)
	s.Require().NoError(err)
	s.Equal("rival.example.com", item.AssignedDomain, "the first writer's assignment must survive")

	sub, err := s.submissions.Get(context.Background(), s.submission.ID)
	s.Require().NoError(err)
	s.False(sub.IsConsumed(), "the losing assignment must not consume the submission")
}

func (s *AssignmentSuite) TestAssignDomainConcurrentSubmissionConsumers() {
	rival, err := s.submissions.Get(context.Background(), s.submission.ID)
	s.Require().NoError(err)
	rivalItem := domain.LineItemID(uuid.New())
	rival.AssignedToLineItemID = &rivalItem

	store := &racingSubmissionStore{SubmissionStore: s.submissions, rival: rival}
	svc := NewService(s.orderSvc, s.lineItems, store, s.websites, s.resolver,
		s.publisher, txcontext.PassthroughRunner{}, testFeeCents, s.logger, s.metrics)

	err = svc.AssignDomain(s.ctx(), s.orderID, s.lineItemID, s.submission.ID, s.site.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	sub, err := s.submissions.Get(context.Background(), s.submission.ID)
	s.Require().NoError(err)
	s.Require().NotNil(sub.AssignedToLineItemID)
	s.Equal(rivalItem, *sub.AssignedToLineItemID, "the first consumer must keep the submission")
}

// =============================================================================
// UnassignDomain Tests
// =============================================================================

func (s *AssignmentSuite) TestUnassignDomain() {
	s.Require().NoError(s.assign())

	s.Require().NoError(s.service.UnassignDomain(s.ctx(), s.orderID, s.lineItemID))

	item, err := s.lineItems.Get(context.Background(), s.lineItemID)
	s.Require().NoError(err)
	s.Nil(item.AssignedDomainID)
	s.Empty(item.AssignedDomain)
	s.Equal(lineitem.StatusPending, item.Status)
	s.Equal(int64(0), item.WholesalePrice)
	s.Zero(item.Metadata.DomainRating)
	// The last quoted retail price is deliberately retained so totals stay
	// stable while a replacement site is negotiated.
	s.Equal(int64(55000), item.EstimatedPrice)

	sub, err := s.submissions.Get(context.Background(), s.submission.ID)
	s.Require().NoError(err)
	s.False(sub.IsConsumed())

	o, err := s.orders.Get(context.Background(), s.orderID)
	s.Require().NoError(err)
	s.Equal(int64(55000), o.SubtotalRetail)
}

func (s *AssignmentSuite) TestUnassignDomainWithoutAssignment() {
	err := s.service.UnassignDomain(s.ctx(), s.orderID, s.lineItemID)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
