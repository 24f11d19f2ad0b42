package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"linkmart/pkg/domain"
	"linkmart/pkg/requestcontext"
)

// Publisher appends order events to the outbox. Emit is synchronous and
// fail-closed: if the outbox write fails the caller must fail its operation,
// otherwise a committed state change would be invisible to consumers.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit records an event. Actor, request ID, and client app are taken from
// the request context so call sites only name the action and payload.
func (p *Publisher) Emit(ctx context.Context, action Action, orderID domain.OrderID, payload any) error {
	if action == "" {
		return fmt.Errorf("event requires an action")
	}
	if orderID.IsNil() {
		return fmt.Errorf("event requires an order id")
	}

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		raw = b
	}

	event := &Event{
		ID:        uuid.New(),
		Action:    action,
		OrderID:   orderID,
		RequestID: requestcontext.RequestID(ctx),
		ClientApp: requestcontext.ClientApp(ctx),
		Payload:   raw,
		CreatedAt: requestcontext.Now(ctx),
	}
	actor := requestcontext.Actor(ctx)
	event.ActorID = actor.UserID
	event.ActorType = actor.UserType

	if err := p.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append order event: %w", err)
	}
	return nil
}
