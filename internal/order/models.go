package order

import (
	"time"

	"linkmart/pkg/domain"
)

// Status is the business lifecycle of an order.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusAnalyzing           Status = "analyzing"
	StatusInProgress          Status = "in_progress"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
)

// State is the fulfillment-stage detail, advanced alongside Status but not
// strictly 1:1 with it.
type State string

const (
	StateAwaitingReview  State = "awaiting_review"
	StateAnalyzing       State = "analyzing"
	StateSitesReady      State = "sites_ready"
	StateClientReviewing State = "client_reviewing"
	StateInProgress      State = "in_progress"
	StateCompleted       State = "completed"
)

// CanResubmit reports whether a resubmission is a legal transition.
func (s Status) CanResubmit() bool {
	return s == StatusPendingConfirmation || s == StatusConfirmed
}

// IsTerminal reports whether the order reached a final status. Orders are
// never hard-deleted; terminal statuses are the only end states.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Preferences are the buyer's qualification ranges for suggested sites.
type Preferences struct {
	DomainRatingMin int   `json:"drMin,omitempty"`
	DomainRatingMax int   `json:"drMax,omitempty"`
	TrafficMin      int64 `json:"trafficMin,omitempty"`
	BudgetMinCents  int64 `json:"budgetMin,omitempty"`
	BudgetMaxCents  int64 `json:"budgetMax,omitempty"`
}

// Order is one buyer request for a batch of link placements. Financial totals
// are integer cents and always equal the deterministic aggregation over the
// order's line items; they are never hand-edited outside repair tooling.
type Order struct {
	ID            domain.OrderID
	AccountID     domain.AccountID
	Status        Status
	State         State
	InternalNotes string

	SubtotalRetail        int64
	Discount              int64
	TotalRetail           int64
	TotalWholesale        int64
	ProfitMargin          int
	EstimatedPricePerLink *int64
	EstimatedLinksCount   int

	ResubmissionCount int
	Preferences       Preferences

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusHistoryEntry is one append-only audit row for a status transition.
type StatusHistoryEntry struct {
	OrderID    domain.OrderID
	FromStatus Status
	ToStatus   Status
	FromState  State
	ToState    State
	ActorID    domain.UserID
	Notes      string
	CreatedAt  time.Time
}

// Totals is the output of the aggregator, written back onto the order.
type Totals struct {
	SubtotalRetail        int64
	TotalRetail           int64
	TotalWholesale        int64
	ProfitMargin          int
	EstimatedPricePerLink *int64
	EstimatedLinksCount   int
}

// Apply writes the aggregation result onto the order.
func (o *Order) Apply(t Totals) {
	o.SubtotalRetail = t.SubtotalRetail
	o.TotalRetail = t.TotalRetail
	o.TotalWholesale = t.TotalWholesale
	o.ProfitMargin = t.ProfitMargin
	o.EstimatedPricePerLink = t.EstimatedPricePerLink
	o.EstimatedLinksCount = t.EstimatedLinksCount
}
