package order

import (
	"context"

	"linkmart/pkg/domain"
)

// Store persists orders and their status history. Implementations must be
// transaction-aware: when the context carries an open transaction, writes
// join it.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id domain.OrderID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	AppendStatusHistory(ctx context.Context, entry *StatusHistoryEntry) error
	ListStatusHistory(ctx context.Context, orderID domain.OrderID) ([]*StatusHistoryEntry, error)
}
