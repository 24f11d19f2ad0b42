package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkmart/internal/platform/metrics"
	"linkmart/pkg/domain"
	txcontext "linkmart/pkg/platform/tx"
)

// fakeSink records published events and can be told to fail after n publishes.
type fakeSink struct {
	published []*Event
	failAfter int
}

func (f *fakeSink) Publish(_ context.Context, event *Event) error {
	if f.failAfter > 0 && len(f.published) >= f.failAfter {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, event)
	return nil
}

func (f *fakeSink) Close() {}

func newTestWorker(store Store, sink Sink) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(store, sink, txcontext.PassthroughRunner{}, time.Minute, logger, metrics.NewWith(nil))
}

func appendEvents(t *testing.T, store Store, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		event := &Event{
			ID:        uuid.New(),
			Action:    ActionOrderCreated,
			OrderID:   domain.OrderID(uuid.New()),
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.Append(context.Background(), event))
		ids = append(ids, event.ID)
	}
	return ids
}

func TestWorkerDrainsOutbox(t *testing.T) {
	store := NewInMemoryStore()
	sink := &fakeSink{}
	worker := newTestWorker(store, sink)
	appendEvents(t, store, 3)

	require.NoError(t, worker.drainOnce(context.Background()))

	assert.Len(t, sink.published, 3)
	for _, event := range store.All() {
		assert.NotNil(t, event.PublishedAt)
	}

	// A second drain finds nothing new.
	require.NoError(t, worker.drainOnce(context.Background()))
	assert.Len(t, sink.published, 3)
}

func TestWorkerStopsBatchOnPublishFailure(t *testing.T) {
	store := NewInMemoryStore()
	sink := &fakeSink{failAfter: 2}
	worker := newTestWorker(store, sink)
	appendEvents(t, store, 4)

	require.NoError(t, worker.drainOnce(context.Background()))

	// The two shipped events are marked, the rest stay queued for next tick.
	assert.Len(t, sink.published, 2)
	remaining, err := store.ListUnpublished(context.Background(), drainBatchSize)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	// Broker recovers; the next drain finishes the backlog.
	sink.failAfter = 0
	require.NoError(t, worker.drainOnce(context.Background()))
	remaining, err = store.ListUnpublished(context.Background(), drainBatchSize)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
