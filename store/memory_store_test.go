package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/askflow/types"
)

func newConversation(id string) *types.Conversation {
	return &types.Conversation{
		ID:               id,
		Asker:            "dev-1",
		AskerRole:        "backend_developer",
		CurrentResponder: "lead-1",
		ResponderRole:    "tech_lead",
		State:            types.StateInitiated,
		QuestionCategory: "implementation",
		Question:         "how do I shard this table?",
		CreatedAt:        time.Now(),
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	conv := newConversation("conv-1")
	require.NoError(t, s.Create(ctx, conv))

	got, err := s.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, conv.Asker, got.Asker)
	assert.Equal(t, types.StateInitiated, got.State)

	// Duplicate ids are rejected.
	assert.ErrorIs(t, s.Create(ctx, newConversation("conv-1")), ErrAlreadyExists)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newConversation("conv-1")))

	got, err := s.Get(ctx, "conv-1")
	require.NoError(t, err)
	got.State = types.StateAnswered

	again, err := s.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateInitiated, again.State, "mutating a Get result must not leak into the store")
}

func TestMemoryStore_ApplyTransition(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	conv := newConversation("conv-1")
	require.NoError(t, s.Create(ctx, conv))

	conv.State = types.StateWaiting
	conv.Generation = 2
	err := s.ApplyTransition(ctx, conv, &types.ConversationEvent{
		ConversationID: "conv-1",
		Type:           types.EventAcknowledged,
		FromState:      types.StateInitiated,
		ToState:        types.StateWaiting,
		TriggeredBy:    "lead-1",
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateWaiting, got.State)
	assert.Equal(t, uint64(2), got.Generation)

	assert.ErrorIs(t, s.ApplyTransition(ctx, newConversation("missing")), ErrNotFound)
}

func TestMemoryStore_EventOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	conv := newConversation("conv-1")
	require.NoError(t, s.Create(ctx, conv))

	for _, typ := range []types.EventType{types.EventAcknowledged, types.EventTimedOut, types.EventFollowedUp} {
		err := s.ApplyTransition(ctx, conv, &types.ConversationEvent{ConversationID: "conv-1", Type: typ})
		require.NoError(t, err)
	}

	events, err := s.ListEvents(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.CreatedAt.IsZero())
	}
	assert.Equal(t, types.EventAcknowledged, events[0].Type)
	assert.Equal(t, types.EventFollowedUp, events[2].Type)
}

func TestMemoryStore_CompoundTransitionAppendsBothEvents(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	conv := newConversation("conv-1")
	require.NoError(t, s.Create(ctx, conv))

	conv.State = types.StateEscalated
	err := s.ApplyTransition(ctx, conv,
		&types.ConversationEvent{ConversationID: "conv-1", Type: types.EventDeclined, FromState: types.StateWaiting, ToState: types.StateEscalating},
		&types.ConversationEvent{ConversationID: "conv-1", Type: types.EventEscalated, FromState: types.StateEscalating, ToState: types.StateEscalated},
	)
	require.NoError(t, err)

	events, err := s.ListEvents(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.EventDeclined, events[0].Type)
	assert.Equal(t, types.EventEscalated, events[1].Type)
}

func TestMemoryStore_ListActive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	active := newConversation("conv-active")
	require.NoError(t, s.Create(ctx, active))

	answered := newConversation("conv-answered")
	require.NoError(t, s.Create(ctx, answered))
	answered.State = types.StateAnswered
	require.NoError(t, s.ApplyTransition(ctx, answered))

	got, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "conv-active", got[0].ID)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.ErrorIs(t, s.Create(ctx, newConversation("conv-1")), ErrStoreClosed)
	_, err := s.Get(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, s.Ping(ctx), ErrStoreClosed)
}
