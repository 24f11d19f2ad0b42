// Package pricing is the boundary to the external offering/price-rule
// catalog. The engine only ever asks for a quote; rule evaluation happens on
// the catalog side. A degraded catalog yields a zero quote, never an error,
// so callers fall back to direct cost calculation.
package pricing

import (
	"context"

	"linkmart/pkg/domain"
)

// Quote is a wholesale/retail price pair in cents.
type Quote struct {
	WholesaleCents int64 `json:"wholesalePrice"`
	RetailCents    int64 `json:"retailPrice"`
}

// IsZero reports whether the catalog produced no usable price.
func (q Quote) IsZero() bool { return q.WholesaleCents == 0 && q.RetailCents == 0 }

// Options qualify a price lookup.
type Options struct {
	Quantity   int    `json:"quantity"`
	ClientType string `json:"clientType,omitempty"`
	Urgency    string `json:"urgency,omitempty"`
}

// Resolver returns the catalog price for a website. websiteID may be nil
// (zero) when only the domain is known.
type Resolver interface {
	GetWebsitePrice(ctx context.Context, websiteID domain.WebsiteID, domainName string, opts Options) (Quote, error)
}
