// Package store defines the local message cache interface. The cache
// holds a scrollback window of conversation history so the client can
// render immediately after launch and survive short offline spells;
// the server remains the source of truth.
package store

import (
	"context"
	"time"
)

// Message is one cached chat message.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	SentAt         time.Time
	Edited         bool
	Deleted        bool
}

// MessageCache persists conversation scrollback locally.
type MessageCache interface {
	// UpsertMessage inserts a message or replaces the cached copy with
	// the same ID. Replay after reconnect makes duplicates routine, so
	// upsert semantics keep this idempotent.
	UpsertMessage(ctx context.Context, msg *Message) error

	// MarkEdited replaces the body of a cached message. Unknown IDs are
	// a no-op: the edit may refer to history outside the cached window.
	MarkEdited(ctx context.Context, messageID, body string) error

	// MarkDeleted tombstones a cached message, clearing its body.
	// Unknown IDs are a no-op.
	MarkDeleted(ctx context.Context, messageID string) error

	// ListMessages returns up to limit messages for a conversation in
	// chronological order. When before is non-nil, only messages sent
	// strictly earlier are returned (the scrollback paging cursor).
	ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*Message, error)

	// Prune drops the oldest messages of a conversation beyond keep.
	Prune(ctx context.Context, conversationID string, keep int) error

	// Close closes the underlying database connection.
	Close() error
}
