package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"purrform/pkg/role"
	"purrform/pkg/token"
)

// Session is the cookie adapter bound to one request. Cookies written
// through it are visible to its later reads, so a Destroy followed by Role
// in the same request sees no session.
type Session struct {
	m       *Manager
	w       http.ResponseWriter
	r       *http.Request
	pending *http.Cookie
}

// Create signs a new token for rl and sets it as the session cookie.
func (s *Session) Create(rl role.Role) error {
	expires := s.m.now().Add(s.m.ttl)

	raw, err := s.m.codec.Encode(token.Payload{Role: rl, ExpiresAt: expires})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	s.write(s.m.cookie(raw, expires))
	return nil
}

// Refresh re-sets the current token with a later cookie expiry. The token
// itself is not re-signed, so its signed expiry does not move. Missing or
// invalid cookies are left alone.
func (s *Session) Refresh() {
	raw, ok := s.value()
	if !ok {
		return
	}
	if _, ok := s.m.codec.Decode(raw); !ok {
		return
	}
	s.write(s.m.cookie(raw, s.m.now().Add(s.m.ttl)))
}

func (s *Session) Destroy() {
	c := s.m.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	s.write(c)
}

// Role returns the session role when the cookie decodes to a recognized one.
func (s *Session) Role() (role.Role, bool) {
	raw, ok := s.value()
	if !ok {
		return "", false
	}
	p, ok := s.m.codec.Decode(raw)
	if !ok {
		return "", false
	}
	rl, ok := role.Parse(string(p.Role))
	if !ok {
		s.m.logger.Debug("session carries unknown role", "role", p.Role)
		return "", false
	}
	return rl, true
}

func (s *Session) value() (string, bool) {
	if s.pending != nil {
		if s.pending.MaxAge < 0 || s.pending.Value == "" {
			return "", false
		}
		return s.pending.Value, true
	}

	c, err := s.r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// write replaces any session cookie already queued on the response.
func (s *Session) write(c *http.Cookie) {
	s.pending = c

	h := s.w.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, CookieName+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(s.w, c)
}
