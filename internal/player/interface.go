package player

import "context"

// Store persists player profiles.
type Store interface {
	FindByUserID(ctx context.Context, userID string) (*Player, error)
	FindByID(ctx context.Context, id string) (*Player, error)
	// CreateIfAbsent inserts a profile unless one already exists for userID.
	// It returns the stored profile and whether this call created it.
	CreateIfAbsent(ctx context.Context, userID, name string) (*Player, bool, error)
	UpdateName(ctx context.Context, id, name string) (*Player, error)
	List(ctx context.Context) ([]Player, error)
}

// Directory is the profile lookup used by the rest of the application.
type Directory interface {
	EnsureProfile(ctx context.Context, userID, preferredName, loginID string) (string, error)
	FindByUserID(ctx context.Context, userID string) (*Player, error)
	FindByID(ctx context.Context, id string) (*Player, error)
	Rename(ctx context.Context, id, newName string) (*Player, error)
	List(ctx context.Context) ([]Player, error)
	// ResolveName never fails; unknown ids resolve to UnknownName.
	ResolveName(ctx context.Context, id string) string
}
