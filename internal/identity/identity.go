package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrNoIdentity   = errors.New("no signed-in identity")
)

const issuer = "mahjong-club"

// NewVerifier creates an HS256 token verifier.
func NewVerifier(secret string) Verifier {
	return &verifier{secret: []byte(secret), issuer: issuer}
}

func (v *verifier) Verify(token string) (Identity, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(v.issuer))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: c.Subject, Attributes: c.Attributes}, nil
}

func (v *verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	if id.ID == "" {
		return "", ErrNoIdentity
	}
	now := time.Now()
	c := claims{
		Attributes: id.Attributes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// NewEvents creates an empty session event hub.
func NewEvents() Events {
	return &events{}
}

func (e *events) Listen(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Emit calls every listener synchronously in registration order.
func (e *events) Emit(ctx context.Context, ev Event) {
	e.mu.RLock()
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.RUnlock()
	log.Debug("Session event", "type", ev.Type, "userID", ev.Identity.ID, "listeners", len(listeners))
	for _, l := range listeners {
		l(ctx, ev)
	}
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.ID != ""
}
