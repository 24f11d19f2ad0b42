package website

import (
	"context"

	"linkmart/pkg/domain"
)

// Store looks up catalog websites. Writes happen through the external sync
// pipeline; Upsert exists for seeding and tests.
type Store interface {
	FindByID(ctx context.Context, id domain.WebsiteID) (*Website, error)
	FindByDomain(ctx context.Context, domainName string) (*Website, error)
	Upsert(ctx context.Context, site *Website) error
}
