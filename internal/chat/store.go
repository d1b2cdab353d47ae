package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/notexe/companion/internal/database"
)

// Store provides SQLite-backed storage for chat transcripts.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertBatch stores msgs for deviceID in one transaction, all stamped with
// serverTS (milliseconds).
func (s *Store) InsertBatch(ctx context.Context, deviceID int64, msgs []Incoming, serverTS int64, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_messages (device_id, user_text, ai_text, server_timestamp, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	created := 0
	ts := database.FormatTime(now)
	for _, m := range msgs {
		if !m.complete() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, deviceID, *m.UserText, *m.AIText, serverTS, ts); err != nil {
			return 0, fmt.Errorf("failed to insert chat message: %w", err)
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit chat messages: %w", err)
	}
	return created, nil
}

// Between returns a device's messages with fromMS <= server_timestamp < toMS,
// oldest first.
func (s *Store) Between(ctx context.Context, deviceID, fromMS, toMS int64) ([]Message, error) {
	return s.query(ctx, `
		SELECT id, device_id, user_text, ai_text, server_timestamp, created_at
		FROM chat_messages
		WHERE device_id = ? AND server_timestamp >= ? AND server_timestamp < ?
		ORDER BY server_timestamp ASC, id ASC
	`, deviceID, fromMS, toMS)
}

// Recent returns a device's messages newest first.
func (s *Store) Recent(ctx context.Context, deviceID int64, limit, offset int) ([]Message, error) {
	return s.query(ctx, `
		SELECT id, device_id, user_text, ai_text, server_timestamp, created_at
		FROM chat_messages
		WHERE device_id = ?
		ORDER BY server_timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`, deviceID, limit, offset)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var (
			m         Message
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.DeviceID, &m.UserText, &m.AIText, &m.ServerTimestamp, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.CreatedAt = database.ParseTime(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Count returns the number of messages, restricted to [fromMS, toMS) when
// toMS is positive.
func (s *Store) Count(ctx context.Context, fromMS, toMS int64) (int, error) {
	q := `SELECT COUNT(*) FROM chat_messages`
	var args []any
	if toMS > 0 {
		q += ` WHERE server_timestamp >= ? AND server_timestamp < ?`
		args = append(args, fromMS, toMS)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return n, nil
}
