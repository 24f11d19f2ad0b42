package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"linkmart/pkg/requestcontext"
)

// ClientMetadata extracts client IP and User-Agent from the request and adds
// them to the context. The parsed browser/OS summary ends up on outbox events
// so the audit trail records what client drove a transition.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawUA := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(),
			clientIPFromRequest(r),
			rawUA,
			summarizeUserAgent(rawUA),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For may carry a comma-separated chain; first hop is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func summarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	if ua.OS() != "" {
		return fmt.Sprintf("%s %s / %s", name, version, ua.OS())
	}
	return fmt.Sprintf("%s %s", name, version)
}
