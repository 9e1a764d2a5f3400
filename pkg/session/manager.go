package session

import (
	"log/slog"
	"net/http"
	"time"

	"purrform/pkg/token"
)

const (
	CookieName = "session"

	// TTL is how long the browser keeps the cookie after each write.
	TTL = 48 * time.Hour
)

type Codec interface {
	Encode(p token.Payload) (string, error)
	Decode(raw string) (token.Payload, bool)
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager owns the session cookie. It holds no per-request state; Bind
// returns the request-scoped view.
type Manager struct {
	codec  Codec
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewManager(codec Codec, opts ...Option) *Manager {
	m := &Manager{
		codec:  codec,
		ttl:    TTL,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Bind(w http.ResponseWriter, r *http.Request) *Session {
	return &Session{m: m, w: w, r: r}
}

func (m *Manager) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
