package namecache

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mahjong:player_name:"

// layered checks a short-lived memory cache before Redis, so names are
// shared across instances without a round trip on every lookup.
type layered struct {
	local Cache
	rdb   *redis.Client
	ttl   time.Duration
}

// NewRedis creates a cache backed by Redis with a local memory layer in front.
func NewRedis(rdb *redis.Client, ttl time.Duration) Cache {
	return &layered{
		local: NewMemory(ttl / 4),
		rdb:   rdb,
		ttl:   ttl,
	}
}

func (l *layered) Get(ctx context.Context, playerID string) (string, bool) {
	if name, ok := l.local.Get(ctx, playerID); ok {
		return name, true
	}
	name, err := l.rdb.Get(ctx, keyPrefix+playerID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn("Failed to read player name from redis", "error", err, "playerID", playerID)
		}
		return "", false
	}
	l.local.Set(ctx, playerID, name)
	return name, true
}

func (l *layered) Set(ctx context.Context, playerID, name string) {
	l.local.Set(ctx, playerID, name)
	if err := l.rdb.Set(ctx, keyPrefix+playerID, name, l.ttl).Err(); err != nil {
		log.Warn("Failed to write player name to redis", "error", err, "playerID", playerID)
	}
}

func (l *layered) Delete(ctx context.Context, playerID string) {
	l.local.Delete(ctx, playerID)
	if err := l.rdb.Del(ctx, keyPrefix+playerID).Err(); err != nil {
		log.Warn("Failed to delete player name from redis", "error", err, "playerID", playerID)
	}
}

func (l *layered) Close() {
	l.local.Close()
}
