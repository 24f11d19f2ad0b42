package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"linkmart/internal/platform/metrics"
	"linkmart/internal/website"
	"linkmart/pkg/domain"
)

// CachedResolver decorates a Resolver with a Redis cache. Zero quotes are not
// cached so a recovered catalog is consulted again immediately.
type CachedResolver struct {
	next    Resolver
	redis   *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCachedResolver(next Resolver, client *redis.Client, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *CachedResolver {
	return &CachedResolver{next: next, redis: client, ttl: ttl, logger: logger, metrics: m}
}

// cacheKey prefers the website ID; lookups by bare domain use the normalized
// name so "www.Example.com" and "example.com" share an entry.
func cacheKey(websiteID domain.WebsiteID, domainName string, opts Options) string {
	subject := website.NormalizeDomain(domainName)
	if !websiteID.IsNil() {
		subject = websiteID.String()
	}
	return fmt.Sprintf("pricing:%s:q%d:%s:%s", subject, opts.Quantity, opts.ClientType, opts.Urgency)
}

func (r *CachedResolver) GetWebsitePrice(ctx context.Context, websiteID domain.WebsiteID, domainName string, opts Options) (Quote, error) {
	key := cacheKey(websiteID, domainName, opts)

	if cached, err := r.redis.Get(ctx, key).Bytes(); err == nil {
		var quote Quote
		if err := json.Unmarshal(cached, &quote); err == nil {
			if r.metrics != nil {
				r.metrics.PricingCacheHits.Inc()
			}
			return quote, nil
		}
		// Corrupt entry; fall through to the catalog and overwrite it.
	}
	if r.metrics != nil {
		r.metrics.PricingCacheMisses.Inc()
	}

	quote, err := r.next.GetWebsitePrice(ctx, websiteID, domainName, opts)
	if err != nil || quote.IsZero() {
		return quote, err
	}

	encoded, err := json.Marshal(quote)
	if err == nil {
		if err := r.redis.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
			r.logger.WarnContext(ctx, "failed to cache price quote",
				"domain", domainName,
				"error", err,
			)
		}
	}
	return quote, nil
}
