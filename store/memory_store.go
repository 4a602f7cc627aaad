package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/askflow/types"
)

// MemoryStore is an in-memory implementation of ConversationStore.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	conversations map[string]types.Conversation
	events        map[string][]types.ConversationEvent
	seq           map[string]uint64
	mu            sync.RWMutex
	closed        bool
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]types.Conversation),
		events:        make(map[string][]types.ConversationEvent),
		seq:           make(map[string]uint64),
	}
}

// Create persists a new conversation with its initial events.
func (s *MemoryStore) Create(ctx context.Context, conv *types.Conversation, events ...*types.ConversationEvent) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.conversations[conv.ID]; ok {
		return ErrAlreadyExists
	}

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	s.conversations[conv.ID] = *conv
	s.appendLocked(conv.ID, events)
	return nil
}

// Get retrieves a copy of a conversation by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := conv
	return &out, nil
}

// ApplyTransition persists the new state and appends events atomically.
func (s *MemoryStore) ApplyTransition(ctx context.Context, conv *types.Conversation, events ...*types.ConversationEvent) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.conversations[conv.ID]; !ok {
		return ErrNotFound
	}

	s.conversations[conv.ID] = *conv
	s.appendLocked(conv.ID, events)
	return nil
}

// appendLocked assigns sequence numbers and stores events. Caller holds mu.
func (s *MemoryStore) appendLocked(conversationID string, events []*types.ConversationEvent) {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		s.seq[conversationID]++
		ev.Seq = s.seq[conversationID]
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = time.Now()
		}
		s.events[conversationID] = append(s.events[conversationID], *ev)
	}
}

// ListEvents returns the event trail ordered by sequence number.
func (s *MemoryStore) ListEvents(ctx context.Context, conversationID string) ([]*types.ConversationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	stored := s.events[conversationID]
	out := make([]*types.ConversationEvent, len(stored))
	for i := range stored {
		ev := stored[i]
		out[i] = &ev
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// ListActive returns all non-terminal conversations.
func (s *MemoryStore) ListActive(ctx context.Context) ([]*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var out []*types.Conversation
	for _, conv := range s.conversations {
		if conv.IsTerminal() {
			continue
		}
		c := conv
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Ping checks if the store is healthy.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
