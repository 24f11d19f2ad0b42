package negotiation

import (
	"context"

	"linkmart/pkg/domain"
)

// GroupStore persists order groups. Implementations are transaction-aware.
type GroupStore interface {
	Create(ctx context.Context, group *OrderGroup) error
	Get(ctx context.Context, id domain.GroupID) (*OrderGroup, error)
	ListByOrder(ctx context.Context, orderID domain.OrderID) ([]*OrderGroup, error)
	Update(ctx context.Context, group *OrderGroup) error
}

// SubmissionStore persists candidate-site submissions. ListByAssignedLineItem
// gives unassign an indexed reverse lookup instead of a full-table scan.
type SubmissionStore interface {
	Create(ctx context.Context, sub *OrderSiteSubmission) error
	Get(ctx context.Context, id domain.SubmissionID) (*OrderSiteSubmission, error)
	ListByGroup(ctx context.Context, groupID domain.GroupID) ([]*OrderSiteSubmission, error)
	ListByAssignedLineItem(ctx context.Context, lineItemID domain.LineItemID) ([]*OrderSiteSubmission, error)
	Update(ctx context.Context, sub *OrderSiteSubmission) error
	// Consume writes sub only while the stored row is not yet assigned to a
	// line item, returning sentinel.ErrConflict otherwise. Each submission
	// funds at most one assignment even under concurrent callers.
	Consume(ctx context.Context, sub *OrderSiteSubmission) error
}
