package notifier

import "github.com/mauv0809/mahjong-club/internal/ledger"

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For freshly recorded matches
	SendStandings(standings ledger.MatchStandings, dryRun bool) error
	// For the CLI and API previews
	FormatStandingsResponse(standings ledger.MatchStandings) (any, error)
}

var _ ledger.Announcer = (Notifier)(nil)
