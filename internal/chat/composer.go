package chat

import "sync"

// ComposerState is the send state of one player's composer.
type ComposerState string

const (
	Idle    ComposerState = "idle"
	Sending ComposerState = "sending"
)

// Composer tracks which players have a send in flight and refuses a second
// one until the first finishes.
type Composer struct {
	mu      sync.Mutex
	sending map[string]bool
}

// NewComposer creates a composer with every player idle.
func NewComposer() *Composer {
	return &Composer{sending: make(map[string]bool)}
}

// State returns the player's current state.
func (c *Composer) State(playerID string) ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending[playerID] {
		return Sending
	}
	return Idle
}

// Send runs fn while the player is in the Sending state.
func (c *Composer) Send(playerID string, fn func() error) error {
	c.mu.Lock()
	if c.sending[playerID] {
		c.mu.Unlock()
		return ErrSendInProgress
	}
	c.sending[playerID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.sending, playerID)
		c.mu.Unlock()
	}()
	return fn()
}
