package ledger

import "context"

// Store persists matches and their score entries.
type Store interface {
	// CreateMatch writes the match and all entries atomically.
	CreateMatch(ctx context.Context, m Match, entries []ScoreEntry) error
	GetMatch(ctx context.Context, id string) (*Match, error)
	ListMatches(ctx context.Context) ([]Match, error)
	// ScoreEntries returns entries in the order they were written.
	ScoreEntries(ctx context.Context, matchID string) ([]ScoreEntry, error)
}

// NameResolver turns player ids into display names.
type NameResolver interface {
	ResolveName(ctx context.Context, playerID string) string
}

// Announcer publishes confirmed results outside the application.
type Announcer interface {
	SendStandings(standings MatchStandings, dryRun bool) error
}

// Ledger records matches and computes standings.
type Ledger interface {
	RecordMatch(ctx context.Context, req RecordRequest) (*RecordResult, error)
	Standings(ctx context.Context, matchID string) (*MatchStandings, error)
	History(ctx context.Context) ([]MatchStandings, error)
	Pending() []PendingRecord
	ReconcilePending(ctx context.Context) ReconcileReport
}
