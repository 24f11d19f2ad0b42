package website

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"linkmart/pkg/domain"
	"linkmart/pkg/platform/sentinel"
	txcontext "linkmart/pkg/platform/tx"
)

// PostgresStore reads the websites table the sync pipeline maintains.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const websiteColumns = `id, domain, domain_rating, total_traffic, guest_post_cost, categories, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, id domain.WebsiteID) (*Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE id = $1`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id))
	return scanWebsite(row)
}

func (s *PostgresStore) FindByDomain(ctx context.Context, domainName string) (*Website, error) {
	// Stored domains are normalized at sync time; normalize the probe the
	// same way so "WWW.Example.com" still matches.
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE domain = $1`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, NormalizeDomain(domainName))
	return scanWebsite(row)
}

func (s *PostgresStore) Upsert(ctx context.Context, site *Website) error {
	query := `
		INSERT INTO websites (id, domain, domain_rating, total_traffic, guest_post_cost, categories, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			domain = EXCLUDED.domain,
			domain_rating = EXCLUDED.domain_rating,
			total_traffic = EXCLUDED.total_traffic,
			guest_post_cost = EXCLUDED.guest_post_cost,
			categories = EXCLUDED.categories,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(site.ID),
		NormalizeDomain(site.Domain),
		site.DomainRating,
		site.TotalTraffic,
		site.GuestPostCost,
		pq.Array(site.Categories),
		site.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert website: %w", err)
	}
	return nil
}

func scanWebsite(row *sql.Row) (*Website, error) {
	var site Website
	var id uuid.UUID
	err := row.Scan(
		&id,
		&site.Domain,
		&site.DomainRating,
		&site.TotalTraffic,
		&site.GuestPostCost,
		pq.Array(&site.Categories),
		&site.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan website: %w", err)
	}
	site.ID = domain.WebsiteID(id)
	return &site, nil
}
