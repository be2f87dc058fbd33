package ledger

import (
	"context"
	"sync"
)

var _ Store = (*MockStore)(nil)

// MockStore is a mock implementation of the Store interface for testing.
// Without spies it keeps matches in memory.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	CreateMatchFunc  func(m Match, entries []ScoreEntry) error
	GetMatchFunc     func(id string) (*Match, error)
	ListMatchesFunc  func() ([]Match, error)
	ScoreEntriesFunc func(matchID string) ([]ScoreEntry, error)

	// Call records
	CreateMatchCalls []CreateMatchCall

	matches []Match
	entries map[string][]ScoreEntry
}

// CreateMatchCall holds the arguments for a call to CreateMatch.
type CreateMatchCall struct {
	Match   Match
	Entries []ScoreEntry
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{entries: make(map[string][]ScoreEntry)}
}

func (m *MockStore) CreateMatch(_ context.Context, match Match, entries []ScoreEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateMatchCalls = append(m.CreateMatchCalls, CreateMatchCall{Match: match, Entries: entries})
	if m.CreateMatchFunc != nil {
		if err := m.CreateMatchFunc(match, entries); err != nil {
			return err
		}
	}
	m.matches = append(m.matches, match)
	m.entries[match.ID] = append([]ScoreEntry(nil), entries...)
	return nil
}

func (m *MockStore) GetMatch(_ context.Context, id string) (*Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(id)
	}
	for _, match := range m.matches {
		if match.ID == id {
			found := match
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStore) ListMatches(_ context.Context) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListMatchesFunc != nil {
		return m.ListMatchesFunc()
	}
	out := make([]Match, 0, len(m.matches))
	for i := len(m.matches) - 1; i >= 0; i-- {
		out = append(out, m.matches[i])
	}
	return out, nil
}

func (m *MockStore) ScoreEntries(_ context.Context, matchID string) ([]ScoreEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ScoreEntriesFunc != nil {
		return m.ScoreEntriesFunc(matchID)
	}
	return append([]ScoreEntry(nil), m.entries[matchID]...), nil
}
