package player

import (
	"context"
	"sync"
)

var _ Directory = (*MockDirectory)(nil)

// MockDirectory is a mock implementation of the Directory interface for testing.
// It is safe for concurrent use.
type MockDirectory struct {
	mu sync.Mutex

	// Spies for method calls
	EnsureProfileFunc func(userID, preferredName, loginID string) (string, error)
	FindByUserIDFunc  func(userID string) (*Player, error)
	FindByIDFunc      func(id string) (*Player, error)
	RenameFunc        func(id, newName string) (*Player, error)
	ListFunc          func() ([]Player, error)
	ResolveNameFunc   func(id string) string

	// Call records
	EnsureProfileCalls []EnsureProfileCall
	RenameCalls        []RenameCall
	ResolveNameCalls   []string
}

// EnsureProfileCall holds the arguments for a call to EnsureProfile.
type EnsureProfileCall struct {
	UserID        string
	PreferredName string
	LoginID       string
}

// RenameCall holds the arguments for a call to Rename.
type RenameCall struct {
	ID      string
	NewName string
}

// NewMock creates a new mock directory.
func NewMock() *MockDirectory {
	return &MockDirectory{}
}

// Reset clears all call records.
func (m *MockDirectory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureProfileCalls = nil
	m.RenameCalls = nil
	m.ResolveNameCalls = nil
}

func (m *MockDirectory) EnsureProfile(_ context.Context, userID, preferredName, loginID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureProfileCalls = append(m.EnsureProfileCalls, EnsureProfileCall{UserID: userID, PreferredName: preferredName, LoginID: loginID})
	if m.EnsureProfileFunc != nil {
		return m.EnsureProfileFunc(userID, preferredName, loginID)
	}
	return "player-" + userID, nil
}

func (m *MockDirectory) FindByUserID(_ context.Context, userID string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(userID)
	}
	return nil, ErrNotFound
}

func (m *MockDirectory) FindByID(_ context.Context, id string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, ErrNotFound
}

func (m *MockDirectory) Rename(_ context.Context, id, newName string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RenameCalls = append(m.RenameCalls, RenameCall{ID: id, NewName: newName})
	if m.RenameFunc != nil {
		return m.RenameFunc(id, newName)
	}
	return &Player{ID: id, Name: newName}, nil
}

func (m *MockDirectory) List(_ context.Context) ([]Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return nil, nil
}

func (m *MockDirectory) ResolveName(_ context.Context, id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResolveNameCalls = append(m.ResolveNameCalls, id)
	if m.ResolveNameFunc != nil {
		return m.ResolveNameFunc(id)
	}
	return UnknownName
}
