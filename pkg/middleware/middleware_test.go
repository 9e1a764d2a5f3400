package middleware_test

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"purrform/pkg/middleware"
)

func TestPanic(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	h := middleware.Panic(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Internal server error")
}

func TestRequestLog(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	h := middleware.RequestLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	t.Run("new id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusAccepted, rr.Code)
		_, err := uuid.Parse(rr.Header().Get(middleware.RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("keeps caller id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, id)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, id, rr.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("replaces junk id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "<script>")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.NotEqual(t, "<script>", rr.Header().Get(middleware.RequestIDHeader))
	})
}

func TestIPRateLimiter(t *testing.T) {
	rl := middleware.NewIPRateLimiter(2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimit(t *testing.T) {
	rl := middleware.NewIPRateLimiter(1)
	h := middleware.RateLimit(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.7:51000"

	rr := httptest.NewRecorder()
	h(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestRateLimit_IgnoresSpoofedForwarding(t *testing.T) {
	rl := middleware.NewIPRateLimiter(1)
	h := middleware.RateLimit(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	throttled := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.7:51000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))

		rr := httptest.NewRecorder()
		h(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	assert.Equal(t, 19, throttled)
}

func TestRateLimit_TrustedProxy(t *testing.T) {
	proxy := netip.MustParsePrefix("10.0.0.0/8")
	rl := middleware.NewIPRateLimiter(1, proxy)
	h := middleware.RateLimit(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.2:443"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		h(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("127.0.0.1/32"),
	}

	tests := []struct {
		name    string
		remote  string
		xff     string
		realIP  string
		trusted []netip.Prefix
		want    string
	}{
		{"peer only", "192.0.2.7:51000", "", "", nil, "192.0.2.7"},
		{"untrusted peer ignores xff", "192.0.2.7:51000", "203.0.113.9", "198.51.100.4", trusted, "192.0.2.7"},
		{"no trusted list ignores xff", "10.0.0.1:51000", "203.0.113.9", "", nil, "10.0.0.1"},
		{"trusted peer xff", "10.0.0.1:51000", "203.0.113.9", "", trusted, "203.0.113.9"},
		{"client cannot prepend", "10.0.0.1:51000", "1.2.3.4, 203.0.113.9", "", trusted, "203.0.113.9"},
		{"skips trusted hops", "127.0.0.1:51000", "203.0.113.9, 10.1.1.1", "", trusted, "203.0.113.9"},
		{"all hops trusted", "10.0.0.1:51000", "10.2.2.2, 10.1.1.1", "", trusted, "10.2.2.2"},
		{"trusted peer real ip", "10.0.0.1:51000", "", "198.51.100.4", trusted, "198.51.100.4"},
		{"junk header", "10.0.0.1:51000", "not-an-ip", "also junk", trusted, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, middleware.ClientIP(req, tt.trusted))
		})
	}
}
