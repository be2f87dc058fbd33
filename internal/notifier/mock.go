package notifier

import (
	"sync"

	"github.com/mauv0809/mahjong-club/internal/ledger"
)

var _ Notifier = (*Mock)(nil)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies
	SendStandingsFunc           func(standings ledger.MatchStandings, dryRun bool) error
	FormatStandingsResponseFunc func(standings ledger.MatchStandings) (any, error)

	// Call records
	SendStandingsCalls []SendStandingsCall
}

// SendStandingsCall holds the arguments for a call to SendStandings.
type SendStandingsCall struct {
	Standings ledger.MatchStandings
	DryRun    bool
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendStandingsCalls = nil
}

func (m *Mock) SendStandings(standings ledger.MatchStandings, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendStandingsCalls = append(m.SendStandingsCalls, SendStandingsCall{Standings: standings, DryRun: dryRun})
	if m.SendStandingsFunc != nil {
		return m.SendStandingsFunc(standings, dryRun)
	}
	return nil
}

func (m *Mock) FormatStandingsResponse(standings ledger.MatchStandings) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatStandingsResponseFunc != nil {
		return m.FormatStandingsResponseFunc(standings)
	}
	return "formatted_standings", nil
}

// Calls returns a copy of the recorded SendStandings calls.
func (m *Mock) Calls() []SendStandingsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SendStandingsCall(nil), m.SendStandingsCalls...)
}
