package identity

import (
	"context"
	"time"
)

// Verifier validates session tokens.
type Verifier interface {
	Verify(token string) (Identity, error)
	Issue(id Identity, ttl time.Duration) (string, error)
}

// Events notifies listeners about sign-in and sign-out.
type Events interface {
	Listen(l Listener)
	Emit(ctx context.Context, ev Event)
}
