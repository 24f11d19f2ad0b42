// Package events implements a transactional outbox for order lifecycle
// events. Producers append events in the same database transaction as the
// state change they describe; a background worker drains the outbox to Kafka.
// Kafka is the integration surface for downstream consumers (notifications,
// analytics), the outbox table is the delivery guarantee.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"linkmart/pkg/domain"
)

// Action identifies what happened. Downstream consumers route on this.
type Action string

const (
	ActionOrderCreated       Action = "order.created"
	ActionOrderConfirmed     Action = "order.confirmed"
	ActionOrderResubmitted   Action = "order.resubmitted"
	ActionOrderCompleted     Action = "order.completed"
	ActionMoreSitesRequested Action = "sites.more_requested"
	ActionDomainAssigned     Action = "domain.assigned"
	ActionDomainUnassigned   Action = "domain.unassigned"
	ActionBenchmarkCaptured  Action = "benchmark.captured"
)

// Event is one outbox row. Payload carries action-specific detail as JSON so
// the table schema never changes when a new action is added.
type Event struct {
	ID          uuid.UUID
	Action      Action
	OrderID     domain.OrderID
	ActorID     domain.UserID
	ActorType   domain.UserType
	RequestID   string
	ClientApp   string
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
}
