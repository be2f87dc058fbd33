package identity

import (
	"context"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the signed-in user as reported by the session token.
type Identity struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Nickname returns the user's chosen display name, if any.
func (i Identity) Nickname() string {
	if v := i.Attributes["custom:nickname"]; v != "" {
		return v
	}
	return i.Attributes["nickname"]
}

// LoginID returns the login identifier, usually an e-mail address.
func (i Identity) LoginID() string {
	if v := i.Attributes["email"]; v != "" {
		return v
	}
	return i.Attributes["login_id"]
}

// Email returns the e-mail attribute.
func (i Identity) Email() string {
	return i.Attributes["email"]
}

type claims struct {
	Attributes map[string]string `json:"attrs,omitempty"`
	jwt.RegisteredClaims
}

type verifier struct {
	secret []byte
	issuer string
}

// EventType distinguishes session notifications.
type EventType string

const (
	SignedIn  EventType = "signedIn"
	SignedOut EventType = "signedOut"
)

// Event is a session notification.
type Event struct {
	Type     EventType
	Identity Identity
}

// Listener handles a session event.
type Listener func(ctx context.Context, ev Event)

type events struct {
	mu        sync.RWMutex
	listeners []Listener
}

type ctxKey struct{}
