package player

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewStore creates a SQL backed player store.
func NewStore(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) FindByUserID(ctx context.Context, userID string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, name, created_at, updated_at FROM players WHERE user_id = ?`, userID)
	return scanPlayer(row)
}

func (s *store) FindByID(ctx context.Context, id string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, name, created_at, updated_at FROM players WHERE id = ?`, id)
	return scanPlayer(row)
}

// CreateIfAbsent relies on the unique user_id index so that concurrent
// callers for the same user converge on a single row.
func (s *store) CreateIfAbsent(ctx context.Context, userID, name string) (*Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, user_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, uuid.NewString(), userID, name, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert player for user %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, name, created_at, updated_at FROM players WHERE user_id = ?`, userID)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, false, err
	}
	return p, affected == 1, nil
}

func (s *store) UpdateName(ctx context.Context, id, name string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE players SET name = ?, updated_at = ? WHERE id = ?`, name, time.Now().UTC().UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to rename player %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, name, created_at, updated_at FROM players WHERE id = ?`, id)
	return scanPlayer(row)
}

func (s *store) List(ctx context.Context) ([]Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, name, created_at, updated_at FROM players ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			log.Error("Failed to scan player row", "error", err)
			continue
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// scanPlayer is a helper function to scan a single player row.
func scanPlayer(scanner interface{ Scan(...any) error }) (*Player, error) {
	var p Player
	var createdAt, updatedAt int64
	if err := scanner.Scan(&p.ID, &p.UserID, &p.Name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}
