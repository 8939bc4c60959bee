// Package sqlite implements the local message cache on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirechat-client/internal/store"
)

const schema = `
	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id       TEXT NOT NULL,
		body            TEXT NOT NULL,
		sent_at         DATETIME NOT NULL,
		edited          BOOLEAN NOT NULL DEFAULT 0,
		deleted         BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_messages_convo_time
		ON messages (conversation_id, sent_at);
`

// SQLiteCache implements store.MessageCache for SQLite.
type SQLiteCache struct {
	db *sql.DB
}

// New opens (or creates) the cache database and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteCache, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup opens the cache database and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// UpsertMessage inserts a message or replaces the cached copy.
func (s *SQLiteCache) UpsertMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, body, sent_at, edited, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			edited = excluded.edited,
			deleted = excluded.deleted
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Body,
		msg.SentAt.UTC(),
		msg.Edited,
		msg.Deleted,
	)
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

// MarkEdited replaces the body of a cached message.
func (s *SQLiteCache) MarkEdited(ctx context.Context, messageID, body string) error {
	query := `UPDATE messages SET body = ?, edited = 1 WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, body, messageID); err != nil {
		return fmt.Errorf("mark edited: %w", err)
	}
	return nil
}

// MarkDeleted tombstones a cached message.
func (s *SQLiteCache) MarkDeleted(ctx context.Context, messageID string) error {
	query := `UPDATE messages SET body = '', deleted = 1 WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, messageID); err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	return nil
}

// ListMessages returns up to limit messages in chronological order.
func (s *SQLiteCache) ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*store.Message, error) {
	// Newest window first, then flipped to chronological order.
	query := `
		SELECT id, conversation_id, sender_id, body, sent_at, edited, deleted
		FROM messages
		WHERE conversation_id = ?
	`
	args := []any{conversationID}
	if before != nil {
		query += ` AND sent_at < ?`
		args = append(args, before.UTC())
	}
	query += ` ORDER BY sent_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.Body,
			&m.SentAt,
			&m.Edited,
			&m.Deleted,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Prune drops the oldest messages of a conversation beyond keep.
func (s *SQLiteCache) Prune(ctx context.Context, conversationID string, keep int) error {
	query := `
		DELETE FROM messages
		WHERE conversation_id = ?
		AND id NOT IN (
			SELECT id FROM messages
			WHERE conversation_id = ?
			ORDER BY sent_at DESC
			LIMIT ?
		)
	`
	if _, err := s.db.ExecContext(ctx, query, conversationID, conversationID, keep); err != nil {
		return fmt.Errorf("prune messages: %w", err)
	}
	return nil
}
