// Package assignment wires a client-approved site submission to a line item:
// it resolves the website record and catalog pricing, copies qualification
// metrics onto the line item, marks the submission consumed, and recomputes
// the order's totals, all in one transaction.
package assignment

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"linkmart/internal/events"
	"linkmart/internal/lineitem"
	"linkmart/internal/negotiation"
	"linkmart/internal/order"
	"linkmart/internal/platform/metrics"
	"linkmart/internal/pricing"
	"linkmart/internal/website"
	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	"linkmart/pkg/platform/sentinel"
	txcontext "linkmart/pkg/platform/tx"
	"linkmart/pkg/requestcontext"
)

type Service struct {
	orders          *order.Service
	lineItems       lineitem.Store
	submissions     negotiation.SubmissionStore
	websites        website.Store
	resolver        pricing.Resolver
	publisher       *events.Publisher
	runner          txcontext.Runner
	serviceFeeCents int64
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
}

func NewService(
	orders *order.Service,
	lineItems lineitem.Store,
	submissions negotiation.SubmissionStore,
	websites website.Store,
	resolver pricing.Resolver,
	publisher *events.Publisher,
	runner txcontext.Runner,
	serviceFeeCents int64,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		orders:          orders,
		lineItems:       lineItems,
		submissions:     submissions,
		websites:        websites,
		resolver:        resolver,
		publisher:       publisher,
		runner:          runner,
		serviceFeeCents: serviceFeeCents,
		logger:          logger,
		metrics:         m,
		tracer:          otel.Tracer("linkmart/assignment"),
	}
}

// AssignDomain places a website on a line item. Fails with a conflict when
// the line item already has a domain or the submission already feeds another
// line item. The early checks give precise errors; the conditional Assign and
// Consume store writes make the guard hold under concurrent callers, where
// both transactions can pass the checks before either commits.
func (s *Service) AssignDomain(ctx context.Context, orderID domain.OrderID, lineItemID domain.LineItemID, submissionID domain.SubmissionID, websiteID domain.WebsiteID) error {
	ctx, span := s.tracer.Start(ctx, "assignment.AssignDomain")
	defer span.End()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.orders.Load(ctx, orderID); err != nil {
			return err
		}

		item, err := s.loadLineItem(ctx, orderID, lineItemID)
		if err != nil {
			return err
		}
		if item.IsAssigned() {
			return dErrors.New(dErrors.CodeConflict, "line item already has an assigned domain")
		}

		sub, err := s.submissions.Get(ctx, submissionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "submission not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load submission")
		}
		if sub.OrderID != orderID {
			return dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		if sub.IsConsumed() {
			return dErrors.New(dErrors.CodeConflict, "submission already assigned to a line item")
		}

		site, quote, err := s.fetchSiteAndQuote(ctx, websiteID)
		if err != nil {
			return err
		}

		// Degraded catalog: price directly off the publisher's cost.
		if quote.IsZero() {
			quote.WholesaleCents = site.GuestPostCost
			quote.RetailCents = site.GuestPostCost + s.serviceFeeCents
		}

		now := requestcontext.Now(ctx)
		item.AssignedDomainID = &site.ID
		item.AssignedDomain = site.Domain
		item.WholesalePrice = quote.WholesaleCents
		item.EstimatedPrice = quote.RetailCents
		item.Status = lineitem.StatusAssigned
		item.Metadata.DomainRating = site.DomainRating
		item.Metadata.TotalTraffic = site.TotalTraffic
		item.UpdatedAt = now
		if err := s.lineItems.Assign(ctx, item); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "line item already has an assigned domain")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "assign line item")
		}

		sub.AssignedToLineItemID = &item.ID
		sub.UpdatedAt = now
		if err := s.submissions.Consume(ctx, sub); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "submission already assigned to a line item")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "consume submission")
		}

		if _, err := s.orders.RecomputeTotals(ctx, orderID); err != nil {
			return err
		}
		return s.publisher.Emit(ctx, events.ActionDomainAssigned, orderID, map[string]any{
			"lineItemId":   item.ID.String(),
			"submissionId": sub.ID.String(),
			"domain":       site.Domain,
		})
	})
	if err != nil {
		return err
	}

	s.metrics.DomainsAssigned.Inc()
	return nil
}

// UnassignDomain is the exact inverse: clears the assignment, resets the line
// item to pending, and releases any submissions referencing it via the
// reverse index, then recomputes totals.
func (s *Service) UnassignDomain(ctx context.Context, orderID domain.OrderID, lineItemID domain.LineItemID) error {
	ctx, span := s.tracer.Start(ctx, "assignment.UnassignDomain")
	defer span.End()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.orders.Load(ctx, orderID); err != nil {
			return err
		}

		item, err := s.loadLineItem(ctx, orderID, lineItemID)
		if err != nil {
			return err
		}
		if !item.IsAssigned() {
			return dErrors.New(dErrors.CodeBadRequest, "line item has no assigned domain")
		}

		now := requestcontext.Now(ctx)
		releasedDomain := item.AssignedDomain
		item.AssignedDomainID = nil
		item.AssignedDomain = ""
		item.WholesalePrice = 0
		item.Status = lineitem.StatusPending
		item.Metadata.DomainRating = 0
		item.Metadata.TotalTraffic = 0
		item.UpdatedAt = now
		if err := s.lineItems.Update(ctx, item); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update line item")
		}

		subs, err := s.submissions.ListByAssignedLineItem(ctx, lineItemID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "list submissions for line item")
		}
		for _, sub := range subs {
			sub.AssignedToLineItemID = nil
			sub.UpdatedAt = now
			if err := s.submissions.Update(ctx, sub); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "release submission")
			}
		}

		if _, err := s.orders.RecomputeTotals(ctx, orderID); err != nil {
			return err
		}
		return s.publisher.Emit(ctx, events.ActionDomainUnassigned, orderID, map[string]any{
			"lineItemId": item.ID.String(),
			"domain":     releasedDomain,
		})
	})
	if err != nil {
		return err
	}

	s.metrics.DomainsUnassigned.Inc()
	return nil
}

func (s *Service) loadLineItem(ctx context.Context, orderID domain.OrderID, lineItemID domain.LineItemID) (*lineitem.LineItem, error) {
	item, err := s.lineItems.Get(ctx, lineItemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "line item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load line item")
	}
	if item.OrderID != orderID {
		return nil, dErrors.New(dErrors.CodeNotFound, "line item not found")
	}
	return item, nil
}

// fetchSiteAndQuote resolves the website record and the catalog quote in
// parallel. A missing website fails the assignment; a degraded catalog does
// not, it just yields a zero quote for the caller's fallback.
func (s *Service) fetchSiteAndQuote(ctx context.Context, websiteID domain.WebsiteID) (*website.Website, pricing.Quote, error) {
	var (
		site  *website.Website
		quote pricing.Quote
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		found, err := s.websites.FindByID(gctx, websiteID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "website not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load website")
		}
		site = found
		return nil
	})

	g.Go(func() error {
		q, err := s.resolver.GetWebsitePrice(gctx, websiteID, "", pricing.Options{Quantity: 1})
		if err != nil {
			// Resolver failures degrade to defaults, never fail assignment.
			s.logger.WarnContext(gctx, "price resolution failed, using direct cost", "website_id", websiteID.String(), "error", err)
			return nil
		}
		quote = q
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, pricing.Quote{}, err
	}
	return site, quote, nil
}
