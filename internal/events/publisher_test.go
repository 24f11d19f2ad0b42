package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkmart/pkg/domain"
	"linkmart/pkg/requestcontext"
)

func TestPublisherEmit(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)
	orderID := domain.OrderID(uuid.New())
	actor := domain.Actor{UserID: domain.UserID(uuid.New()), UserType: domain.UserTypeAccount}
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	ctx := requestcontext.WithActor(context.Background(), actor)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "", "Chrome 120 / Linux")
	ctx = requestcontext.WithTime(ctx, at)

	err := publisher.Emit(ctx, ActionOrderConfirmed, orderID, map[string]any{"status": "confirmed"})
	require.NoError(t, err)

	all := store.All()
	require.Len(t, all, 1)
	event := all[0]
	assert.Equal(t, ActionOrderConfirmed, event.Action)
	assert.Equal(t, orderID, event.OrderID)
	assert.Equal(t, actor.UserID, event.ActorID)
	assert.Equal(t, domain.UserTypeAccount, event.ActorType)
	assert.Equal(t, "req-42", event.RequestID)
	assert.Equal(t, "Chrome 120 / Linux", event.ClientApp)
	assert.Equal(t, at, event.CreatedAt)
	assert.JSONEq(t, `{"status":"confirmed"}`, string(event.Payload))
	assert.Nil(t, event.PublishedAt)
}

func TestPublisherEmitValidation(t *testing.T) {
	publisher := NewPublisher(NewInMemoryStore())

	err := publisher.Emit(context.Background(), "", domain.OrderID(uuid.New()), nil)
	assert.Error(t, err)

	err = publisher.Emit(context.Background(), ActionOrderCreated, domain.OrderID{}, nil)
	assert.Error(t, err)
}
