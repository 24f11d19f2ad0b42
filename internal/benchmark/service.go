package benchmark

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"linkmart/internal/platform/metrics"
	"linkmart/pkg/domain"
	dErrors "linkmart/pkg/domain-errors"
	"linkmart/pkg/requestcontext"
)

// Service captures audit snapshots. Snapshots must always be attributable to
// an internal identity; when an account user triggers one, the configured
// system user is recorded as the creator instead. With no system user
// configured the capture is skipped, not failed, because snapshotting is a
// best-effort side effect of order transitions.
type Service struct {
	store        Store
	systemUserID domain.UserID
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func NewService(store Store, systemUserID domain.UserID, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:        store,
		systemUserID: systemUserID,
		logger:       logger,
		metrics:      m,
	}
}

// CaptureInput carries everything needed to record a snapshot. Snapshot is
// built by the caller so this package stays ignorant of order internals.
type CaptureInput struct {
	OrderID  domain.OrderID
	Actor    domain.Actor
	Type     Type
	Snapshot json.RawMessage
}

// Capture records a snapshot and returns it. A nil benchmark with a nil
// error means the capture was deliberately skipped.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (*Benchmark, error) {
	capturedBy := in.Actor.UserID
	if !in.Actor.IsInternal() {
		if s.systemUserID.IsNil() {
			s.logger.WarnContext(ctx, "benchmark capture skipped: no system user configured",
				"order_id", in.OrderID.String(),
				"actor_id", in.Actor.UserID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			s.metrics.BenchmarksSkipped.Inc()
			return nil, nil
		}
		capturedBy = s.systemUserID
	}

	b := &Benchmark{
		ID:         domain.BenchmarkID(uuid.New()),
		OrderID:    in.OrderID,
		CapturedBy: capturedBy,
		Type:       in.Type,
		Snapshot:   in.Snapshot,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.Insert(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store benchmark")
	}
	s.metrics.BenchmarksCaptured.Inc()
	return b, nil
}

// History returns all snapshots for an order, oldest first.
func (s *Service) History(ctx context.Context, orderID domain.OrderID) ([]*Benchmark, error) {
	benchmarks, err := s.store.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list benchmarks")
	}
	return benchmarks, nil
}

// Latest returns the most recent snapshot of the given type.
func (s *Service) Latest(ctx context.Context, orderID domain.OrderID, benchmarkType Type) (*Benchmark, error) {
	b, err := s.store.Latest(ctx, orderID, benchmarkType)
	if err != nil {
		return nil, err
	}
	return b, nil
}
