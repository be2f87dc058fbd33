package player

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
	"github.com/mauv0809/mahjong-club/internal/namecache"
)

const (
	// DefaultName is used when neither a preferred name nor a login id is available.
	DefaultName = "Player"
	// UnknownName is shown for player ids that cannot be resolved.
	UnknownName = "Unknown player"
)

var (
	ErrNotFound    = errors.New("player not found")
	ErrEmptyName   = errors.New("player name must not be empty")
	ErrEmptyUserID = errors.New("user id must not be empty")
)

// Player is the application profile of an authenticated user.
type Player struct {
	ID        string    `json:"id" msgpack:"id"`
	UserID    string    `json:"userId" msgpack:"user_id"`
	Name      string    `json:"name" msgpack:"name"`
	CreatedAt time.Time `json:"createdAt" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updated_at"`
}

type store struct {
	db *sql.DB
	mu sync.RWMutex
}

type directory struct {
	store   Store
	names   namecache.Cache
	broker  livequery.Broker
	metrics metrics.Metrics
}
