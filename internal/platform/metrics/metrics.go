package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	OrdersCreated          prometheus.Counter
	OrdersResubmitted      prometheus.Counter
	SuggestionRoundsOpened prometheus.Counter
	DomainsAssigned        prometheus.Counter
	DomainsUnassigned      prometheus.Counter
	BenchmarksCaptured     prometheus.Counter
	BenchmarksSkipped      prometheus.Counter
	OutboxPublished        prometheus.Counter
	OutboxPublishFailures  prometheus.Counter
	PricingCacheHits       prometheus.Counter
	PricingCacheMisses     prometheus.Counter
	RequestDuration        *prometheus.HistogramVec
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics against a specific registerer. Pass nil for
// unregistered metrics; tests use this to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_orders_created_total",
			Help: "Total number of orders submitted",
		}),
		OrdersResubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_orders_resubmitted_total",
			Help: "Total number of order resubmissions",
		}),
		SuggestionRoundsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_suggestion_rounds_opened_total",
			Help: "Total number of site suggestion rounds opened",
		}),
		DomainsAssigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_domains_assigned_total",
			Help: "Total number of domain assignments to line items",
		}),
		DomainsUnassigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_domains_unassigned_total",
			Help: "Total number of domain unassignments",
		}),
		BenchmarksCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_benchmarks_captured_total",
			Help: "Total number of order benchmarks captured",
		}),
		BenchmarksSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_benchmarks_skipped_total",
			Help: "Total number of benchmark captures skipped or failed",
		}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_outbox_published_total",
			Help: "Total number of outbox events published to Kafka",
		}),
		OutboxPublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_outbox_publish_failures_total",
			Help: "Total number of outbox publish attempts that failed",
		}),
		PricingCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_pricing_cache_hits_total",
			Help: "Total number of pricing cache hits",
		}),
		PricingCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkmart_pricing_cache_misses_total",
			Help: "Total number of pricing cache misses",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkmart_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}
