package order

import (
	"time"

	"linkmart/internal/lineitem"
)

// OrderView is the JSON shape of an order, shared by the HTTP handlers and
// benchmark snapshots so a snapshot diff reads the same as an API response.
type OrderView struct {
	ID                    string      `json:"id"`
	AccountID             string      `json:"accountId"`
	Status                string      `json:"status"`
	State                 string      `json:"state"`
	InternalNotes         string      `json:"internalNotes,omitempty"`
	SubtotalRetail        int64       `json:"subtotalRetail"`
	Discount              int64       `json:"discount"`
	TotalRetail           int64       `json:"totalRetail"`
	TotalWholesale        int64       `json:"totalWholesale"`
	ProfitMargin          int         `json:"profitMargin"`
	EstimatedPricePerLink *int64      `json:"estimatedPricePerLink"`
	EstimatedLinksCount   int         `json:"estimatedLinksCount"`
	ResubmissionCount     int         `json:"resubmissionCount"`
	Preferences           Preferences `json:"preferences"`
	CreatedAt             time.Time   `json:"createdAt"`
	UpdatedAt             time.Time   `json:"updatedAt"`
}

// LineItemView is the JSON shape of a line item.
type LineItemView struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"orderId"`
	ClientID         string            `json:"clientId,omitempty"`
	TargetPageURL    string            `json:"targetPageUrl"`
	AnchorText       string            `json:"anchorText,omitempty"`
	AssignedDomainID *string           `json:"assignedDomainId"`
	AssignedDomain   string            `json:"assignedDomain,omitempty"`
	WholesalePrice   int64             `json:"wholesalePrice"`
	EstimatedPrice   int64             `json:"estimatedPrice"`
	ApprovedPrice    *int64            `json:"approvedPrice"`
	Status           string            `json:"status"`
	Metadata         lineitem.Metadata `json:"metadata"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Snapshot is the payload frozen into a benchmark row.
type Snapshot struct {
	Order     OrderView      `json:"order"`
	LineItems []LineItemView `json:"lineItems"`
}

// NewOrderView converts an order to its wire shape.
func NewOrderView(o *Order) OrderView {
	return OrderView{
		ID:                    o.ID.String(),
		AccountID:             o.AccountID.String(),
		Status:                string(o.Status),
		State:                 string(o.State),
		InternalNotes:         o.InternalNotes,
		SubtotalRetail:        o.SubtotalRetail,
		Discount:              o.Discount,
		TotalRetail:           o.TotalRetail,
		TotalWholesale:        o.TotalWholesale,
		ProfitMargin:          o.ProfitMargin,
		EstimatedPricePerLink: o.EstimatedPricePerLink,
		EstimatedLinksCount:   o.EstimatedLinksCount,
		ResubmissionCount:     o.ResubmissionCount,
		Preferences:           o.Preferences,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

// NewLineItemView converts a line item to its wire shape.
func NewLineItemView(li *lineitem.LineItem) LineItemView {
	view := LineItemView{
		ID:             li.ID.String(),
		OrderID:        li.OrderID.String(),
		TargetPageURL:  li.TargetPageURL,
		AnchorText:     li.AnchorText,
		AssignedDomain: li.AssignedDomain,
		WholesalePrice: li.WholesalePrice,
		EstimatedPrice: li.EstimatedPrice,
		ApprovedPrice:  li.ApprovedPrice,
		Status:         string(li.Status),
		Metadata:       li.Metadata,
		CreatedAt:      li.CreatedAt,
		UpdatedAt:      li.UpdatedAt,
	}
	if !li.ClientID.IsNil() {
		view.ClientID = li.ClientID.String()
	}
	if li.AssignedDomainID != nil {
		id := li.AssignedDomainID.String()
		view.AssignedDomainID = &id
	}
	return view
}

func buildSnapshot(o *Order, items []*lineitem.LineItem) Snapshot {
	snap := Snapshot{Order: NewOrderView(o), LineItems: make([]LineItemView, 0, len(items))}
	for _, item := range items {
		snap.LineItems = append(snap.LineItems, NewLineItemView(item))
	}
	return snap
}
