package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// NewStore creates a SQL backed ledger store.
func NewStore(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) CreateMatch(ctx context.Context, m Match, entries []ScoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, date, player_count, game_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Date, m.PlayerCount, m.GameType, m.CreatedAt.UnixMilli())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_scores (id, match_id, player_id, score, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, m.ID, e.PlayerID, e.Score, m.CreatedAt.UnixMilli()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert score for player %s: %w", e.PlayerID, err)
		}
	}

	return tx.Commit()
}

func (s *store) GetMatch(ctx context.Context, id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, date, player_count, game_type, created_at FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// ListMatches returns matches newest first.
func (s *store) ListMatches(ctx context.Context) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, player_count, game_type, created_at
		FROM matches
		ORDER BY date DESC, created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			log.Error("Failed to scan match row", "error", err)
			continue
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func (s *store) ScoreEntries(ctx context.Context, matchID string) ([]ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, player_id, score
		FROM match_scores
		WHERE match_id = ?
		ORDER BY rowid ASC
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		if err := rows.Scan(&e.ID, &e.MatchID, &e.PlayerID, &e.Score); err != nil {
			log.Error("Failed to scan score row", "error", err, "matchID", matchID)
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scanMatch is a helper function to scan a single match row.
func scanMatch(scanner interface{ Scan(...any) error }) (*Match, error) {
	var m Match
	var createdAt int64
	if err := scanner.Scan(&m.ID, &m.Date, &m.PlayerCount, &m.GameType, &createdAt); err != nil {
		return nil, err
	}
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &m, nil
}
