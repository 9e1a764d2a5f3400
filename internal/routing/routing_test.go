package routing_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purrform/internal/routing"
	"purrform/pkg/backend"
	"purrform/pkg/handlers"
	"purrform/pkg/middleware"
	"purrform/pkg/role"
	"purrform/pkg/session"
	"purrform/pkg/token"
	"purrform/pkg/user"
)

type stubUsers map[string]role.Role

func (s stubUsers) Login(username, password string) (*user.User, error) {
	rl, ok := s[username]
	if !ok || password != "pw" {
		return nil, user.ErrInvalidCredentials
	}
	return &user.User{ID: username, Username: username, Role: rl}, nil
}

type stubBackend struct {
	handlers.Backend
}

func (stubBackend) ListBreederCertificates(ctx context.Context, status backend.CertificateStatus) ([]backend.BreederCertificate, error) {
	return []backend.BreederCertificate{{ID: "c1", Status: status}}, nil
}

func (stubBackend) TraderCreditReport(ctx context.Context, from, to string) (*backend.TraderCreditReport, error) {
	return &backend.TraderCreditReport{From: from, To: to}, nil
}

func newServer(t *testing.T, loginsPerMinute int) http.Handler {
	codec, err := token.New([]byte("routing-test-secret-routing-test"))
	require.NoError(t, err)
	logger := slog.New(slog.DiscardHandler)

	return routing.NewHandler(routing.Deps{
		Users:        stubUsers{"ann": role.Admin, "bob": role.Bookkeeper},
		Sessions:     session.NewManager(codec),
		Backend:      stubBackend{},
		LoginLimiter: middleware.NewIPRateLimiter(loginsPerMinute),
		Logger:       logger,
	})
}

func do(h http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	var found []*http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			found = append(found, c)
		}
	}
	require.Len(t, found, 1)
	return found[0]
}

func login(t *testing.T, h http.Handler, username string) *http.Cookie {
	rr := do(h, http.MethodPost, "/login", `{"username":"`+username+`","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return sessionCookie(t, rr)
}

func TestAdminFlow(t *testing.T) {
	h := newServer(t, 100)

	rr := do(h, http.MethodGet, "/dashboard/recall-products", "", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	cookie := login(t, h, "ann")

	rr = do(h, http.MethodGet, "/login", "", cookie)
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	rr = do(h, http.MethodGet, "/", "", cookie)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	rr = do(h, http.MethodGet, "/dashboard", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pendingCertificates":1`)
	refreshed := sessionCookie(t, rr)
	assert.Equal(t, cookie.Value, refreshed.Value)

	rr = do(h, http.MethodPost, "/api/logout", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, sessionCookie(t, rr).Value)
}

func TestBookkeeperFlow(t *testing.T) {
	h := newServer(t, 100)
	cookie := login(t, h, "bob")

	rr := do(h, http.MethodGet, "/dashboard/trader-credit?from=2024-01-01&to=2024-01-31", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"from":"2024-01-01"`)

	for _, path := range []string{"/dashboard", "/dashboard/recall-products", "/dashboard/ingredients", "/login", "/"} {
		rr = do(h, http.MethodGet, path, "", cookie)
		assert.Equal(t, http.StatusTemporaryRedirect, rr.Code, path)
		assert.Equal(t, "/dashboard/trader-credit", rr.Header().Get("Location"), path)
	}

	rr = do(h, http.MethodPost, "/api/logout", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPublicRoutes(t *testing.T) {
	h := newServer(t, 100)

	rr := do(h, http.MethodGet, "/breeder-certificate", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"page":"breeder-certificate"`)
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))

	rr = do(h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(h, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestBadLoginAndRateLimit(t *testing.T) {
	h := newServer(t, 2)

	rr := do(h, http.MethodPost, "/login", `{"username":"ann","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Header().Values("Set-Cookie"))

	rr = do(h, http.MethodPost, "/login", `{"username":"ann","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodPost, "/login", `{"username":"ann","password":"pw"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRateLimit_SpoofedForwardedFor(t *testing.T) {
	h := newServer(t, 1)

	throttled := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"ann","password":"nope"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.50:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	assert.Equal(t, 19, throttled)
}
