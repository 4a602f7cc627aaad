// Package store provides persistent storage for conversations and their
// append-only event trails.
//
// The orchestrator is the single writer per conversation; the store's job is
// to make each transition durable atomically — conversation state and the
// events it produced commit together or not at all.
//
// Supported backends:
// - Memory: for development and testing (default)
// - GORM (PostgreSQL/SQLite): for production deployments
package store

import (
	"context"
	"errors"

	"github.com/BaSui01/askflow/types"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrStoreClosed   = errors.New("store is closed")
	ErrInvalidInput  = errors.New("invalid input")
)

// ConversationStore persists conversations and their event trails.
type ConversationStore interface {
	// Create persists a new conversation together with zero or more initial
	// events.
	Create(ctx context.Context, conv *types.Conversation, events ...*types.ConversationEvent) error

	// Get retrieves a conversation by id. Returns a copy; mutations are only
	// made durable through ApplyTransition.
	Get(ctx context.Context, id string) (*types.Conversation, error)

	// ApplyTransition persists the conversation's new state and appends the
	// transition's events in one atomic write. The store assigns each event
	// its per-conversation sequence number.
	ApplyTransition(ctx context.Context, conv *types.Conversation, events ...*types.ConversationEvent) error

	// ListEvents returns the full event trail of a conversation ordered by
	// sequence number.
	ListEvents(ctx context.Context, conversationID string) ([]*types.ConversationEvent, error)

	// ListActive returns all non-terminal conversations, used to re-arm
	// timers after a restart.
	ListActive(ctx context.Context) ([]*types.Conversation, error)

	// Ping checks if the store is healthy.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
