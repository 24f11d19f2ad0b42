package negotiation

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"linkmart/internal/events"
	"linkmart/internal/order"
	"linkmart/internal/platform/metrics"
	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	"linkmart/pkg/platform/sentinel"
	txcontext "linkmart/pkg/platform/tx"
	"linkmart/pkg/requestcontext"
)

// Service runs the multi-round site negotiation between client and platform.
type Service struct {
	orders      *order.Service
	groups      GroupStore
	submissions SubmissionStore
	runner      txcontext.Runner
	publisher   *events.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

func NewService(
	orders *order.Service,
	groups GroupStore,
	submissions SubmissionStore,
	runner txcontext.Runner,
	publisher *events.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		orders:      orders,
		groups:      groups,
		submissions: submissions,
		runner:      runner,
		publisher:   publisher,
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer("linkmart/negotiation"),
	}
}

// MoreSitesInput is the client's feedback batch closing one suggestion round.
type MoreSitesInput struct {
	ShortfallCount   int
	RequestedTotal   int
	ApprovedCount    int
	GeneralFeedback  string
	RejectionReasons map[domain.SubmissionID]RejectionReason
}

// MoreSitesResult reports the round that was recorded and the round the next
// batch of suggestions will open.
type MoreSitesResult struct {
	NextRound  int
	OrderState string
}

// RequestMoreSites records one feedback round: the order drops back to
// analyzing, a new suggestion round is appended to the group, and each
// rejected submission gets its reason attached. The whole operation is one
// transaction; a failure in any sub-update rolls back all of it. Valid at any
// order state, it is idempotent record-keeping, not a guarded transition.
func (s *Service) RequestMoreSites(ctx context.Context, orderID domain.OrderID, groupID domain.GroupID, in MoreSitesInput) (*MoreSitesResult, error) {
	ctx, span := s.tracer.Start(ctx, "negotiation.RequestMoreSites")
	defer span.End()

	var result MoreSitesResult
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.Load(ctx, orderID)
		if err != nil {
			return err
		}

		group, err := s.loadGroup(ctx, orderID, groupID)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		actor := requestcontext.Actor(ctx)

		round := SuggestionRound{
			Round:           len(group.RequirementOverrides.SuggestionRounds) + 1,
			Timestamp:       now,
			RequestedTotal:  in.RequestedTotal,
			ApprovedCount:   in.ApprovedCount,
			ShortfallCount:  in.ShortfallCount,
			RequestedBy:     actor.UserID.String(),
			GeneralFeedback: in.GeneralFeedback,
		}
		group.RequirementOverrides.SuggestionRounds = append(group.RequirementOverrides.SuggestionRounds, round)
		group.RequirementOverrides.NeedsMoreSuggestions = true
		group.RequirementOverrides.TotalRequestedLinks = in.RequestedTotal
		group.RequirementOverrides.TotalApprovedLinks = in.ApprovedCount
		group.UpdatedAt = now
		if err := s.groups.Update(ctx, group); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update group")
		}

		for submissionID, reason := range in.RejectionReasons {
			sub, err := s.submissions.Get(ctx, submissionID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "submission "+submissionID.String()+" not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "load submission")
			}
			if sub.GroupID != groupID {
				return dErrors.New(dErrors.CodeNotFound, "submission "+submissionID.String()+" not found")
			}
			sub.SubmissionStatus = SubmissionClientRejected
			sub.Metadata.RejectionReason = reason.Reason
			sub.Metadata.RejectionCategory = reason.Category
			sub.Metadata.FeedbackRound = round.Round
			sub.UpdatedAt = now
			if err := s.submissions.Update(ctx, sub); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "update submission")
			}
		}

		if err := s.orders.MarkAnalyzing(ctx, o); err != nil {
			return err
		}

		result.NextRound = round.Round + 1
		result.OrderState = string(o.State)
		return s.publisher.Emit(ctx, events.ActionMoreSitesRequested, orderID, map[string]any{
			"groupId":        groupID.String(),
			"round":          round.Round,
			"shortfallCount": in.ShortfallCount,
			"approvedCount":  in.ApprovedCount,
			"requestedTotal": in.RequestedTotal,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SuggestionRoundsOpened.Inc()
	return &result, nil
}

// GetStatus reports how the negotiation stands for one group.
func (s *Service) GetStatus(ctx context.Context, orderID domain.OrderID, groupID domain.GroupID) (*Status, error) {
	ctx, span := s.tracer.Start(ctx, "negotiation.GetStatus")
	defer span.End()

	if _, err := s.orders.Load(ctx, orderID); err != nil {
		return nil, err
	}
	group, err := s.loadGroup(ctx, orderID, groupID)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list submissions")
	}

	status := &Status{
		RequestedLinks:   group.LinkCount,
		TotalSuggestions: len(subs),
		SuggestionRounds: group.RequirementOverrides.SuggestionRounds,
		CurrentRound:     group.RequirementOverrides.CurrentRound(),
	}
	if status.SuggestionRounds == nil {
		status.SuggestionRounds = []SuggestionRound{}
	}
	for _, sub := range subs {
		switch sub.SubmissionStatus {
		case SubmissionClientApproved:
			status.ApprovedCount++
		case SubmissionClientRejected:
			status.RejectedCount++
		}
	}
	if shortfall := status.RequestedLinks - status.ApprovedCount; shortfall > 0 {
		status.Shortfall = shortfall
	}
	return status, nil
}

func (s *Service) loadGroup(ctx context.Context, orderID domain.OrderID, groupID domain.GroupID) (*OrderGroup, error) {
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "order group not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load group")
	}
	if group.OrderID != orderID {
		return nil, dErrors.New(dErrors.CodeNotFound, "order group not found")
	}
	return group, nil
}
