package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linkmart/internal/platform/metrics"
	txcontext "linkmart/pkg/platform/tx"
)

const drainBatchSize = 100

// Worker drains the outbox to a sink on a fixed interval. Each drain runs in
// a transaction so row locks taken by ListUnpublished are held until the
// batch is marked published; two workers never ship the same event.
type Worker struct {
	store    Store
	sink     Sink
	runner   txcontext.Runner
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewWorker(store Store, sink Sink, runner txcontext.Runner, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		store:    store,
		sink:     sink,
		runner:   runner,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	return w.runner.RunInTx(ctx, func(ctx context.Context) error {
		batch, err := w.store.ListUnpublished(ctx, drainBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		published := make([]uuid.UUID, 0, len(batch))
		for _, event := range batch {
			if err := w.sink.Publish(ctx, event); err != nil {
				// Leave the rest of the batch for the next tick. Events
				// already produced are marked below; at-least-once delivery.
				w.logger.WarnContext(ctx, "event publish failed",
					"event_id", event.ID.String(),
					"action", string(event.Action),
					"error", err,
				)
				w.metrics.OutboxPublishFailures.Inc()
				break
			}
			published = append(published, event.ID)
			w.metrics.OutboxPublished.Inc()
		}
		return w.store.MarkPublished(ctx, published)
	})
}
