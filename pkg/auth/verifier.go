package auth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"purrform/pkg/role"
	"purrform/pkg/session"
)

// Outcome is the result of VerifySession: Authorized or RedirectRequired.
type Outcome interface {
	outcome()
}

type Authorized struct {
	Role role.Role
}

// RedirectRequired means the caller must stop and send the client to Target.
type RedirectRequired struct {
	Target string
}

func (Authorized) outcome()       {}
func (RedirectRequired) outcome() {}

type memoKey struct{}

type memo struct {
	once sync.Once
	out  Outcome
}

// Scope gives each request its own VerifySession memo.
func Scope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), memoKey{}, &memo{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type Verifier struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewVerifier(sessions *session.Manager, logger *slog.Logger) *Verifier {
	return &Verifier{sessions: sessions, logger: logger}
}

// VerifySession resolves the request's session role and refreshes the
// cookie when one is found. Inside Scope, repeated calls on the same request
// return the first outcome and refresh only once.
func (v *Verifier) VerifySession(w http.ResponseWriter, r *http.Request) Outcome {
	m, ok := r.Context().Value(memoKey{}).(*memo)
	if !ok {
		return v.verify(w, r)
	}
	m.once.Do(func() {
		m.out = v.verify(w, r)
	})
	return m.out
}

func (v *Verifier) verify(w http.ResponseWriter, r *http.Request) Outcome {
	s := v.sessions.Bind(w, r)

	rl, ok := s.Role()
	if !ok {
		v.logger.Debug("no valid session", "path", r.URL.Path)
		return RedirectRequired{Target: role.LoginPath}
	}

	s.Refresh()
	return Authorized{Role: rl}
}
