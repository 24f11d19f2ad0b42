package lineitem

import (
	"time"

	"linkmart/pkg/domain"
)

// Status is the fulfillment stage of a single link placement.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Metadata carries qualification data copied from the assigned website at
// assignment time. The engine treats it as opaque except for display.
type Metadata struct {
	DomainRating  int    `json:"domainRating,omitempty"`
	TotalTraffic  int64  `json:"totalTraffic,omitempty"`
	Qualification string `json:"qualification,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// LineItem is one requested link placement owned by exactly one order.
// All price fields are integer cents. Rows are never deleted once the order
// is confirmed; history is preserved by rewriting fields.
type LineItem struct {
	ID               domain.LineItemID
	OrderID          domain.OrderID
	ClientID         domain.ClientID
	TargetPageURL    string
	AnchorText       string
	AssignedDomainID *domain.WebsiteID
	AssignedDomain   string
	WholesalePrice   int64
	EstimatedPrice   int64
	ApprovedPrice    *int64
	Status           Status
	Metadata         Metadata
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EffectivePrice returns the approved price when set, else the estimate.
func (li *LineItem) EffectivePrice() int64 {
	if li.ApprovedPrice != nil {
		return *li.ApprovedPrice
	}
	return li.EstimatedPrice
}

// IsAssigned reports whether a site has been chosen for this placement.
func (li *LineItem) IsAssigned() bool {
	return li.AssignedDomainID != nil && !li.AssignedDomainID.IsNil()
}
