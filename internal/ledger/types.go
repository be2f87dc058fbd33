package ledger

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
)

// GameType is the length of a recorded game.
type GameType string

const (
	// EastRound is a half-table game played over the east round only.
	EastRound GameType = "east_round"
	// FullMatch is a full east and south game.
	FullMatch GameType = "full_match"
)

// Valid reports whether g is a known game type.
func (g GameType) Valid() bool {
	return g == EastRound || g == FullMatch
}

// Status tells confirmed records apart from ones still waiting to be written.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
)

const (
	FourPlayerStake  = 30000
	ThreePlayerStake = 35000
	resultDivisor    = 1000
)

var (
	ErrInvalidMatch = errors.New("invalid match")
	ErrNotFound     = errors.New("match not found")
)

// ScoreInput is one player's final score as submitted.
type ScoreInput struct {
	PlayerID string `json:"playerId" msgpack:"player_id"`
	Score    int    `json:"score" msgpack:"score"`
}

// RecordRequest describes a finished game to be recorded.
type RecordRequest struct {
	Date        string       `json:"date" msgpack:"date"`
	PlayerCount int          `json:"playerCount" msgpack:"player_count"`
	GameType    GameType     `json:"gameType" msgpack:"game_type"`
	Scores      []ScoreInput `json:"scores" msgpack:"scores"`
	// DryRun skips announcements.
	DryRun bool `json:"-" msgpack:"-"`
}

// Match is a recorded game.
type Match struct {
	ID          string    `json:"id" msgpack:"id"`
	Date        string    `json:"date" msgpack:"date"`
	PlayerCount int       `json:"playerCount" msgpack:"player_count"`
	GameType    GameType  `json:"gameType" msgpack:"game_type"`
	CreatedAt   time.Time `json:"createdAt" msgpack:"created_at"`
}

// ScoreEntry links a player's score to a match.
type ScoreEntry struct {
	ID       string `json:"id"`
	MatchID  string `json:"matchId"`
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

// Standing is one row of a match result table.
type Standing struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Score      int     `json:"score"`
	Result     float64 `json:"result"`
}

// MatchStandings is a match together with its result table.
type MatchStandings struct {
	Match     Match      `json:"match"`
	Standings []Standing `json:"standings"`
}

// RecordResult is the outcome of RecordMatch. Exactly one of Match and
// PendingID is set, depending on Status.
type RecordResult struct {
	Status    Status `json:"status"`
	Match     *Match `json:"match,omitempty"`
	PendingID string `json:"pendingId,omitempty"`
}

// PendingRecord is a match that could not be written yet.
type PendingRecord struct {
	ID        string        `json:"id"`
	Request   RecordRequest `json:"request"`
	Attempts  int           `json:"attempts"`
	LastError string        `json:"lastError"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ReconcileReport summarises one pass over the pending queue.
type ReconcileReport struct {
	Confirmed []string `json:"confirmed"`
	Retrying  []string `json:"retrying"`
	Discarded []string `json:"discarded"`
}

type store struct {
	db *sql.DB
	mu sync.RWMutex
}

type service struct {
	store       Store
	names       NameResolver
	announcer   Announcer
	broker      livequery.Broker
	metrics     metrics.Metrics
	maxAttempts int

	pendingMu sync.Mutex
	pending   []*PendingRecord
}
