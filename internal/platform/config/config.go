package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultServiceFeeCents is the flat per-link service fee charged on top of
// the publisher wholesale price when no catalog price rule applies.
const DefaultServiceFeeCents = 7900

// PricingCacheTTL enforces retention for cached catalog quotes.
var PricingCacheTTL = 5 * time.Minute

// Server captures process level configuration.
type Server struct {
	Addr               string
	DatabaseURL        string
	RedisURL           string
	KafkaBrokers       []string
	KafkaTopic         string
	JWTSigningKey      string
	PricingBaseURL     string
	ServiceFeeCents    int64
	SystemUserID       string
	OutboxPollInterval time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("LINKMART_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	serviceFee := int64(DefaultServiceFeeCents)
	if raw := os.Getenv("SERVICE_FEE_CENTS"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed >= 0 {
			serviceFee = parsed
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("KAFKA_ORDER_EVENTS_TOPIC")
	if topic == "" {
		topic = "linkmart.order-events"
	}

	pollInterval := 2 * time.Second
	if raw := os.Getenv("OUTBOX_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			pollInterval = d
		}
	}

	return Server{
		Addr:               addr,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       brokers,
		KafkaTopic:         topic,
		JWTSigningKey:      jwtSigningKey,
		PricingBaseURL:     os.Getenv("PRICING_CATALOG_URL"),
		ServiceFeeCents:    serviceFee,
		SystemUserID:       os.Getenv("SYSTEM_USER_ID"),
		OutboxPollInterval: pollInterval,
	}
}
