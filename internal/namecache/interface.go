package namecache

import "context"

// Cache stores resolved player display names keyed by player id.
type Cache interface {
	Get(ctx context.Context, playerID string) (string, bool)
	Set(ctx context.Context, playerID, name string)
	Delete(ctx context.Context, playerID string)
	Close()
}
