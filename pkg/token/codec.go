package token

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jwt "github.com/dgrijalva/jwt-go"

	"purrform/pkg/claims"
	"purrform/pkg/role"
)

// Lifetime is the signed validity window of every token, counted from issuance.
const Lifetime = 48 * time.Hour

var ErrNoSecret = errors.New("session secret is not set")

// Payload is what a session token carries.
type Payload struct {
	Role      role.Role
	ExpiresAt time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now for both signing and verification.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) { c.logger = logger }
}

// Codec signs and verifies HS256 session tokens with one process-wide key.
type Codec struct {
	secret []byte
	now    func() time.Time
	logger *slog.Logger
}

func New(secret []byte, opts ...Option) (*Codec, error) {
	if len(bytes.TrimSpace(secret)) == 0 {
		return nil, ErrNoSecret
	}
	c := &Codec{
		secret: secret,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode signs p. The exp claim is always issuance + Lifetime, whatever
// p.ExpiresAt says.
func (c *Codec) Encode(p Payload) (string, error) {
	now := c.now()
	body := claims.Claims{
		Role:    p.Role,
		Expires: p.ExpiresAt,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(Lifetime).Unix(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, body).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies raw and returns its payload. Every failure collapses to
// false; the reason is only logged.
func (c *Codec) Decode(raw string) (Payload, bool) {
	if raw == "" {
		return Payload{}, false
	}

	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	body := &claims.Claims{}
	if _, err := parser.ParseWithClaims(raw, body, c.key); err != nil {
		c.logger.Debug("session token rejected", "error", err)
		return Payload{}, false
	}

	now := c.now().Unix()
	if !body.VerifyExpiresAt(now, true) {
		c.logger.Debug("session token expired", "exp", body.StandardClaims.ExpiresAt)
		return Payload{}, false
	}
	if !body.VerifyIssuedAt(now, true) {
		c.logger.Debug("session token issued in the future", "iat", body.IssuedAt)
		return Payload{}, false
	}

	return Payload{Role: body.Role, ExpiresAt: body.Expires}, true
}

func (c *Codec) key(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return c.secret, nil
}
