//go:build integration

package negotiation_test

import (
	"context"
	"database/sql"
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
	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	txcontext "linkmart/pkg/platform/tx"
	"linkmart/pkg/requestcontext"
	"linkmart/pkg/testutil/containers"
)

// sqlRunner gives the service real transaction semantics in place of the
// passthrough runner the unit tests use.
type sqlRunner struct{ db *sql.DB }

func (r sqlRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// =============================================================================
// Negotiation Atomicity Suite
// =============================================================================
// Runs RequestMoreSites against postgres to pin its all-or-nothing property:
// the group's round log, the rejected submissions, the order status, and the
// outbox entry commit together or not at all.

type NegotiationAtomicitySuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	orders      *order.PostgresStore
	groups      *negotiation.PostgresGroupStore
	submissions *negotiation.PostgresSubmissionStore
	service     *negotiation.Service

	actor   domain.Actor
	orderID domain.OrderID
	groupID domain.GroupID
	pending *negotiation.OrderSiteSubmission
}

func TestNegotiationAtomicitySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(NegotiationAtomicitySuite))
}

func (s *NegotiationAtomicitySuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	db := s.postgres.DB

	s.orders = order.NewPostgresStore(db)
	s.groups = negotiation.NewPostgresGroupStore(db)
	s.submissions = negotiation.NewPostgresSubmissionStore(db)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(nil)
	runner := sqlRunner{db: db}
	publisher := events.NewPublisher(events.NewPostgresStore(db))
	benchmarkSvc := benchmark.NewService(benchmark.NewInMemoryStore(), domain.UserID(uuid.New()), logger, m)
	orderSvc := order.NewService(s.orders, lineitem.NewPostgresStore(db), benchmarkSvc, publisher,
		runner, 7900, logger, m)

	s.service = negotiation.NewService(orderSvc, s.groups, s.submissions, runner, publisher, logger, m)
	s.actor = domain.Actor{UserID: domain.UserID(uuid.New()), UserType: domain.UserTypeInternal}
}

func (s *NegotiationAtomicitySuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"outbox", "order_site_submissions", "order_groups", "order_status_history", "order_line_items", "orders"))

	now := time.Now().UTC().Truncate(time.Microsecond)
	s.orderID = domain.OrderID(uuid.New())
	s.Require().NoError(s.orders.Create(ctx, &order.Order{
		ID:        s.orderID,
		AccountID: domain.AccountID(uuid.New()),
		Status:    order.StatusConfirmed,
		State:     order.StateSitesReady,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	s.groupID = domain.GroupID(uuid.New())
	s.Require().NoError(s.groups.Create(ctx, &negotiation.OrderGroup{
		ID:        s.groupID,
		OrderID:   s.orderID,
		ClientID:  domain.ClientID(uuid.New()),
		LinkCount: 5,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	s.pending = &negotiation.OrderSiteSubmission{
		ID:               domain.SubmissionID(uuid.New()),
		GroupID:          s.groupID,
		OrderID:          s.orderID,
		WebsiteID:        domain.WebsiteID(uuid.New()),
		Domain:           "candidate.example.com",
		SubmissionStatus: negotiation.SubmissionPending,
		InclusionStatus:  negotiation.InclusionIncluded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.Require().NoError(s.submissions.Create(ctx, s.pending))
}

func (s *NegotiationAtomicitySuite) ctx() context.Context {
	return requestcontext.WithActor(context.Background(), s.actor)
}

func (s *NegotiationAtomicitySuite) outboxCount() int {
	var count int
	err := s.postgres.DB.QueryRow("SELECT COUNT(*) FROM outbox").Scan(&count)
	s.Require().NoError(err)
	return count
}

func (s *NegotiationAtomicitySuite) TestFeedbackRoundCommitsTogether() {
	result, err := s.service.RequestMoreSites(s.ctx(), s.orderID, s.groupID, negotiation.MoreSitesInput{
		ShortfallCount: 2,
		ApprovedCount:  3,
		RequestedTotal: 5,
		RejectionReasons: map[domain.SubmissionID]negotiation.RejectionReason{
			s.pending.ID: {Reason: "domain rating too low", Category: "quality"},
		},
	})
	s.Require().NoError(err)
	s.Equal(2, result.NextRound)

	ctx := context.Background()
	group, err := s.groups.Get(ctx, s.groupID)
	s.Require().NoError(err)
	s.Require().Len(group.RequirementOverrides.SuggestionRounds, 1)
	s.True(group.RequirementOverrides.NeedsMoreSuggestions)

	sub, err := s.submissions.Get(ctx, s.pending.ID)
	s.Require().NoError(err)
	s.Equal(negotiation.SubmissionClientRejected, sub.SubmissionStatus)
	s.Equal(1, sub.Metadata.FeedbackRound)

	o, err := s.orders.Get(ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(order.StatusAnalyzing, o.Status)

	s.Equal(1, s.outboxCount())
}

// An unknown submission in the rejection batch must undo everything,
// including whichever valid rejections happened to be processed before the
// failing one.
func (s *NegotiationAtomicitySuite) TestUnknownSubmissionRollsBackEverything() {
	_, err := s.service.RequestMoreSites(s.ctx(), s.orderID, s.groupID, negotiation.MoreSitesInput{
		ShortfallCount: 2,
		ApprovedCount:  3,
		RequestedTotal: 5,
		RejectionReasons: map[domain.SubmissionID]negotiation.RejectionReason{
			s.pending.ID:                    {Reason: "domain rating too low", Category: "quality"},
			domain.SubmissionID(uuid.New()): {Reason: "never existed"},
		},
	})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))

	ctx := context.Background()
	group, err := s.groups.Get(ctx, s.groupID)
	s.Require().NoError(err)
	s.Empty(group.RequirementOverrides.SuggestionRounds)
	s.False(group.RequirementOverrides.NeedsMoreSuggestions)

	sub, err := s.submissions.Get(ctx, s.pending.ID)
	s.Require().NoError(err)
	s.Equal(negotiation.SubmissionPending, sub.SubmissionStatus)
	s.Empty(sub.Metadata.RejectionReason)
	s.Zero(sub.Metadata.FeedbackRound)

	o, err := s.orders.Get(ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(order.StatusConfirmed, o.Status)

	entries, err := s.orders.ListStatusHistory(ctx, s.orderID)
	s.Require().NoError(err)
	s.Empty(entries)

	s.Zero(s.outboxCount())
}
