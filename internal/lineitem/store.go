package lineitem

import (
	"context"

	"linkmart/pkg/domain"
)

// Store persists line items. Implementations must be transaction-aware: when
// the context carries an open transaction, writes join it.
type Store interface {
	Create(ctx context.Context, item *LineItem) error
	Get(ctx context.Context, id domain.LineItemID) (*LineItem, error)
	ListByOrder(ctx context.Context, orderID domain.OrderID) ([]*LineItem, error)
	Update(ctx context.Context, item *LineItem) error
	// Assign writes item only while the stored row has no assigned domain.
	// A row that gained a domain since the caller read it yields
	// sentinel.ErrConflict, which keeps two concurrent assignments from
	// both landing on the same line item.
	Assign(ctx context.Context, item *LineItem) error
}
