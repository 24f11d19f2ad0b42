package events

import (
	"context"

	"github.com/google/uuid"
)

// Store persists outbox rows. Append participates in an ambient transaction
// when one is present on the context, which is what makes the outbox
// transactional: the event commits or rolls back with the state change.
type Store interface {
	Append(ctx context.Context, event *Event) error
	ListUnpublished(ctx context.Context, limit int) ([]*Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}
