package order

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"linkmart/internal/benchmark"
	"linkmart/internal/events"
	"linkmart/internal/lineitem"
	"linkmart/internal/platform/metrics"
	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	"linkmart/pkg/platform/sentinel"
	txcontext "linkmart/pkg/platform/tx"
	"linkmart/pkg/requestcontext"
)

// Service drives the order state machine. Every multi-row transition runs in
// one transaction; totals are recomputed inside the same transaction as any
// line-item mutation that could change them.
type Service struct {
	orders          Store
	lineItems       lineitem.Store
	benchmarks      *benchmark.Service
	publisher       *events.Publisher
	runner          txcontext.Runner
	serviceFeeCents int64
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
}

func NewService(
	orders Store,
	lineItems lineitem.Store,
	benchmarks *benchmark.Service,
	publisher *events.Publisher,
	runner txcontext.Runner,
	serviceFeeCents int64,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		orders:          orders,
		lineItems:       lineItems,
		benchmarks:      benchmarks,
		publisher:       publisher,
		runner:          runner,
		serviceFeeCents: serviceFeeCents,
		logger:          logger,
		metrics:         m,
		tracer:          otel.Tracer("linkmart/order"),
	}
}

// LineItemInput is one requested placement on a new order.
type LineItemInput struct {
	ClientID       domain.ClientID
	TargetPageURL  string
	AnchorText     string
	EstimatedPrice int64
}

// CreateInput is the payload for opening a new order.
type CreateInput struct {
	AccountID     domain.AccountID
	Preferences   Preferences
	InternalNotes string
	LineItems     []LineItemInput
}

// Result bundles the order with the line items most callers need alongside it.
type Result struct {
	Order     *Order
	LineItems []*lineitem.LineItem
}

// ResubmitResult carries what the resubmit endpoint returns. Benchmark is nil
// when the snapshot was skipped or failed; resubmission never depends on it.
type ResubmitResult struct {
	Order             *Order
	ResubmissionCount int
	Benchmark         *benchmark.Benchmark
}

// Create opens an order in pending_confirmation with its initial line items
// and aggregated totals.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	accountID := in.AccountID
	if !actor.IsInternal() {
		// Account users can only open orders on their own account.
		accountID = actor.AccountID
	}
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "order requires an account")
	}
	if len(in.LineItems) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "order requires at least one line item")
	}
	for _, item := range in.LineItems {
		if item.TargetPageURL == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "line item requires a target page URL")
		}
		if item.EstimatedPrice < 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "line item price must not be negative")
		}
	}

	now := requestcontext.Now(ctx)
	// Imported orders may still carry counter markers in their notes; they
	// migrate into the dedicated column on the way in.
	resubmissions, _ := parseLegacyCounters(in.InternalNotes)
	o := &Order{
		ID:                domain.OrderID(uuid.New()),
		AccountID:         accountID,
		Status:            StatusPendingConfirmation,
		State:             StateAwaitingReview,
		ResubmissionCount: resubmissions,
		InternalNotes:     stripLegacyCounters(in.InternalNotes),
		Preferences:       in.Preferences,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	items := make([]*lineitem.LineItem, 0, len(in.LineItems))
	for _, input := range in.LineItems {
		items = append(items, &lineitem.LineItem{
			ID:             domain.LineItemID(uuid.New()),
			OrderID:        o.ID,
			ClientID:       input.ClientID,
			TargetPageURL:  input.TargetPageURL,
			AnchorText:     input.AnchorText,
			EstimatedPrice: input.EstimatedPrice,
			Status:         lineitem.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	o.Apply(ComputeTotals(items, o.Discount, s.serviceFeeCents))

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, o); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create order")
		}
		for _, item := range items {
			if err := s.lineItems.Create(ctx, item); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "create line item")
			}
		}
		entry := &StatusHistoryEntry{
			OrderID:   o.ID,
			ToStatus:  o.Status,
			ToState:   o.State,
			ActorID:   actor.UserID,
			CreatedAt: now,
		}
		if err := s.orders.AppendStatusHistory(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append status history")
		}
		return s.publisher.Emit(ctx, events.ActionOrderCreated, o.ID, map[string]any{
			"lineItemCount": len(items),
			"totalRetail":   o.TotalRetail,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Inc()
	return &Result{Order: o, LineItems: items}, nil
}

// Get returns an order with its line items. Account users can only read
// orders on their own account.
func (s *Service) Get(ctx context.Context, orderID domain.OrderID) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "order.Get")
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.lineItems.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list line items")
	}
	return &Result{Order: o, LineItems: items}, nil
}

// History returns the order's append-only status transition log.
func (s *Service) History(ctx context.Context, orderID domain.OrderID) ([]*StatusHistoryEntry, error) {
	if _, err := s.load(ctx, orderID); err != nil {
		return nil, err
	}
	entries, err := s.orders.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list status history")
	}
	return entries, nil
}

// Benchmarks returns the order's snapshot history, oldest first.
func (s *Service) Benchmarks(ctx context.Context, orderID domain.OrderID) ([]*benchmark.Benchmark, error) {
	if _, err := s.load(ctx, orderID); err != nil {
		return nil, err
	}
	return s.benchmarks.History(ctx, orderID)
}

// Confirm moves pending_confirmation to confirmed and starts fulfillment.
func (s *Service) Confirm(ctx context.Context, orderID domain.OrderID) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Confirm")
	defer span.End()

	return s.transition(ctx, orderID, events.ActionOrderConfirmed, func(o *Order) error {
		if o.Status != StatusPendingConfirmation {
			return dErrors.New(dErrors.CodeInvalidState, "order can only be confirmed from pending_confirmation")
		}
		o.Status = StatusConfirmed
		o.State = StateAnalyzing
		return nil
	})
}

// Complete marks a fulfilled order as done. Internal users only.
func (s *Service) Complete(ctx context.Context, orderID domain.OrderID) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Complete")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if !actor.IsInternal() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only internal users can complete orders")
	}
	return s.transition(ctx, orderID, events.ActionOrderCompleted, func(o *Order) error {
		if o.Status.IsTerminal() {
			return dErrors.New(dErrors.CodeInvalidState, "order already reached a final status")
		}
		o.Status = StatusCompleted
		o.State = StateCompleted
		return nil
	})
}

// Resubmit re-opens review after the buyer changed line items. Valid only
// from pending_confirmation or confirmed. Totals are recomputed from current
// line items in the same transaction; a benchmark snapshot is attempted after
// commit and never fails the transition.
func (s *Service) Resubmit(ctx context.Context, orderID domain.OrderID, notes string) (*ResubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.Resubmit")
	defer span.End()

	var (
		o     *Order
		items []*lineitem.LineItem
	)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.load(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanResubmit() {
			return dErrors.New(dErrors.CodeInvalidState, "order cannot be resubmitted from status "+string(o.Status))
		}

		items, err = s.lineItems.ListByOrder(ctx, orderID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "list line items")
		}

		now := requestcontext.Now(ctx)
		fromStatus, fromState := o.Status, o.State
		o.ResubmissionCount++
		o.Apply(ComputeTotals(items, o.Discount, s.serviceFeeCents))
		o.Status = StatusPendingConfirmation
		o.State = StateAwaitingReview
		if notes != "" {
			o.InternalNotes = notes
		}
		o.UpdatedAt = now
		if err := s.orders.Update(ctx, o); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update order")
		}

		entry := &StatusHistoryEntry{
			OrderID:    o.ID,
			FromStatus: fromStatus,
			ToStatus:   o.Status,
			FromState:  fromState,
			ToState:    o.State,
			ActorID:    requestcontext.Actor(ctx).UserID,
			Notes:      notes,
			CreatedAt:  now,
		}
		if err := s.orders.AppendStatusHistory(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append status history")
		}
		return s.publisher.Emit(ctx, events.ActionOrderResubmitted, o.ID, map[string]any{
			"resubmissionCount": o.ResubmissionCount,
			"totalRetail":       o.TotalRetail,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersResubmitted.Inc()
	b := s.captureBenchmark(ctx, o, items, benchmark.TypeResubmission)
	return &ResubmitResult{Order: o, ResubmissionCount: o.ResubmissionCount, Benchmark: b}, nil
}

// RecomputeTotals re-derives and persists the order's totals from its current
// line items. Called by assignment paths inside their own transaction.
func (s *Service) RecomputeTotals(ctx context.Context, orderID domain.OrderID) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errorsIsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load order")
	}
	items, err := s.lineItems.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list line items")
	}
	o.Apply(ComputeTotals(items, o.Discount, s.serviceFeeCents))
	o.UpdatedAt = requestcontext.Now(ctx)
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update order totals")
	}
	return o, nil
}

// transition loads, authorizes, mutates, persists, and records one status
// change in a single transaction.
func (s *Service) transition(ctx context.Context, orderID domain.OrderID, action events.Action, mutate func(*Order) error) (*Order, error) {
	var o *Order
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.load(ctx, orderID)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		fromStatus, fromState := o.Status, o.State
		if err := mutate(o); err != nil {
			return err
		}
		o.UpdatedAt = now
		if err := s.orders.Update(ctx, o); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update order")
		}

		entry := &StatusHistoryEntry{
			OrderID:    o.ID,
			FromStatus: fromStatus,
			ToStatus:   o.Status,
			FromState:  fromState,
			ToState:    o.State,
			ActorID:    requestcontext.Actor(ctx).UserID,
			CreatedAt:  now,
		}
		if err := s.orders.AppendStatusHistory(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append status history")
		}
		return s.publisher.Emit(ctx, action, o.ID, map[string]any{
			"status": string(o.Status),
			"state":  string(o.State),
		})
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// MarkAnalyzing drops the order back into analyzing and records the
// transition. Used by the negotiation flow inside its own transaction; safe
// to call from any status because a feedback round is record-keeping, not a
// guarded transition.
func (s *Service) MarkAnalyzing(ctx context.Context, o *Order) error {
	now := requestcontext.Now(ctx)
	fromStatus, fromState := o.Status, o.State
	o.Status = StatusAnalyzing
	o.State = StateAnalyzing
	o.UpdatedAt = now
	if err := s.orders.Update(ctx, o); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update order")
	}
	entry := &StatusHistoryEntry{
		OrderID:    o.ID,
		FromStatus: fromStatus,
		ToStatus:   o.Status,
		FromState:  fromState,
		ToState:    o.State,
		ActorID:    requestcontext.Actor(ctx).UserID,
		CreatedAt:  now,
	}
	if err := s.orders.AppendStatusHistory(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append status history")
	}
	return nil
}

// Load fetches an order and enforces ownership, without its line items.
// Collaborating services use it as their authorization gate.
func (s *Service) Load(ctx context.Context, orderID domain.OrderID) (*Order, error) {
	return s.load(ctx, orderID)
}

// load fetches an order and enforces ownership. Internal users see every
// order; account users only their own.
func (s *Service) load(ctx context.Context, orderID domain.OrderID) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errorsIsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load order")
	}

	actor := requestcontext.Actor(ctx)
	if actor.IsInternal() {
		return o, nil
	}
	if !actor.OwnsAccount(o.AccountID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "order belongs to a different account")
	}
	return o, nil
}

// captureBenchmark snapshots order and line items after a transition. Errors
// are logged, never propagated; a missed snapshot must not undo a committed
// transition.
func (s *Service) captureBenchmark(ctx context.Context, o *Order, items []*lineitem.LineItem, benchmarkType benchmark.Type) *benchmark.Benchmark {
	snapshot, err := json.Marshal(buildSnapshot(o, items))
	if err != nil {
		s.logger.WarnContext(ctx, "benchmark snapshot marshal failed", "order_id", o.ID.String(), "error", err)
		return nil
	}
	b, err := s.benchmarks.Capture(ctx, benchmark.CaptureInput{
		OrderID:  o.ID,
		Actor:    requestcontext.Actor(ctx),
		Type:     benchmarkType,
		Snapshot: snapshot,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "benchmark capture failed", "order_id", o.ID.String(), "error", err)
		return nil
	}
	if b != nil {
		if err := s.publisher.Emit(ctx, events.ActionBenchmarkCaptured, o.ID, map[string]any{
			"benchmarkId":   b.ID.String(),
			"benchmarkType": string(b.Type),
		}); err != nil {
			s.logger.WarnContext(ctx, "benchmark event emit failed", "order_id", o.ID.String(), "error", err)
		}
	}
	return b
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound)
}
