package website

import (
	"strings"
	"time"

	"linkmart/pkg/domain"
)

// Website is one publisher site in the marketplace catalog. Qualification
// metrics are synced from external tooling; this service only reads them.
type Website struct {
	ID           domain.WebsiteID
	Domain       string
	DomainRating int
	TotalTraffic int64
	// GuestPostCost is the publisher's asking price in cents, used as the
	// wholesale fallback when the pricing catalog yields no quote.
	GuestPostCost int64
	Categories    []string
	UpdatedAt     time.Time
}

// NormalizeDomain lowercases a domain and strips a leading "www." so lookups
// tolerate the common spelling variants buyers paste in.
func NormalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimSuffix(d, "/")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return d
}

// Matches reports whether the website's domain equals d after normalization.
func (w Website) Matches(d string) bool {
	return NormalizeDomain(w.Domain) == NormalizeDomain(d)
}
