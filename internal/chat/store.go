package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// NewStore creates a SQL backed chat store.
func NewStore(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) CreateMessage(ctx context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, player_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.PlayerID, m.Content, m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *store) GetMessage(ctx context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, player_id, content, created_at, updated_at FROM chat_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// ListMessages returns messages newest first.
func (s *store) ListMessages(ctx context.Context) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, content, created_at, updated_at
		FROM chat_messages
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			log.Error("Failed to scan message row", "error", err)
			continue
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (s *store) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteByID(ctx, s.db, "chat_messages", id)
}

func (s *store) CreateReply(ctx context.Context, r Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_replies (id, chat_message_id, player_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.MessageID, r.PlayerID, r.Content, r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert reply: %w", err)
	}
	return nil
}

func (s *store) GetReply(ctx context.Context, id string) (*Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, chat_message_id, player_id, content, created_at, updated_at FROM chat_replies WHERE id = ?`, id)
	r, err := scanReply(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListReplies returns the replies to a message oldest first.
func (s *store) ListReplies(ctx context.Context, messageID string) ([]Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_message_id, player_id, content, created_at, updated_at
		FROM chat_replies
		WHERE chat_message_id = ?
		ORDER BY created_at ASC, id ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := []Reply{}
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			log.Error("Failed to scan reply row", "error", err, "messageID", messageID)
			continue
		}
		replies = append(replies, *r)
	}
	return replies, rows.Err()
}

func (s *store) DeleteReply(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteByID(ctx, s.db, "chat_replies", id)
}

// CreateLike stores the target in whichever of the two nullable columns it names.
func (s *store) CreateLike(ctx context.Context, l Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	messageID, replyID := targetColumns(l.Target)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_likes (id, chat_message_id, chat_reply_id, player_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.ID, messageID, replyID, l.PlayerID, l.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert like: %w", err)
	}
	return nil
}

func (s *store) FindLikes(ctx context.Context, target LikeTarget, playerID string) ([]Like, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	column := "chat_message_id"
	if target.Kind == TargetReply {
		column = "chat_reply_id"
	}
	query := `SELECT id, chat_message_id, chat_reply_id, player_id, created_at FROM chat_likes WHERE ` + column + ` = ?`
	args := []any{target.ID}
	if playerID != "" {
		query += ` AND player_id = ?`
		args = append(args, playerID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	likes := []Like{}
	for rows.Next() {
		var l Like
		var messageID, replyID sql.NullString
		var createdAt int64
		if err := rows.Scan(&l.ID, &messageID, &replyID, &l.PlayerID, &createdAt); err != nil {
			log.Error("Failed to scan like row", "error", err, "target", target.String())
			continue
		}
		l.Target = targetFromColumns(messageID, replyID)
		l.CreatedAt = time.UnixMilli(createdAt).UTC()
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

func (s *store) DeleteLike(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteByID(ctx, s.db, "chat_likes", id)
}

func targetColumns(t LikeTarget) (messageID, replyID sql.NullString) {
	switch t.Kind {
	case TargetMessage:
		messageID = sql.NullString{String: t.ID, Valid: true}
	case TargetReply:
		replyID = sql.NullString{String: t.ID, Valid: true}
	}
	return messageID, replyID
}

func targetFromColumns(messageID, replyID sql.NullString) LikeTarget {
	if messageID.Valid {
		return MessageTarget(messageID.String)
	}
	return ReplyTarget(replyID.String)
}

func deleteByID(ctx context.Context, db *sql.DB, table, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanMessage is a helper function to scan a single message row.
func scanMessage(scanner interface{ Scan(...any) error }) (*Message, error) {
	var m Message
	var createdAt, updatedAt int64
	if err := scanner.Scan(&m.ID, &m.PlayerID, &m.Content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	m.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &m, nil
}

// scanReply is a helper function to scan a single reply row.
func scanReply(scanner interface{ Scan(...any) error }) (*Reply, error) {
	var r Reply
	var createdAt, updatedAt int64
	if err := scanner.Scan(&r.ID, &r.MessageID, &r.PlayerID, &r.Content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	r.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &r, nil
}
