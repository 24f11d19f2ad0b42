package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"linkmart/pkg/requestcontext"
)

func TestClientMetadata(t *testing.T) {
	const chromeUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	capture := func(req *http.Request) (ip, ua, app string) {
		handler := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			ip = requestcontext.ClientIP(r.Context())
			ua = requestcontext.UserAgent(r.Context())
			app = requestcontext.ClientApp(r.Context())
		}))
		handler.ServeHTTP(httptest.NewRecorder(), req)
		return
	}

	t.Run("remote addr fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:51234"
		req.Header.Set("User-Agent", chromeUA)

		ip, ua, app := capture(req)
		assert.Equal(t, "203.0.113.9", ip)
		assert.Equal(t, chromeUA, ua)
		assert.Contains(t, app, "Chrome")
		assert.Contains(t, app, "/")
	})

	t.Run("x-forwarded-for takes the first hop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

		ip, _, _ := capture(req)
		assert.Equal(t, "198.51.100.7", ip)
	})

	t.Run("empty user agent yields empty summary", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Del("User-Agent")

		_, _, app := capture(req)
		assert.Empty(t, app)
	})
}
