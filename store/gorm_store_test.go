package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BaSui01/askflow/types"
)

var gormDBSeq uint64

func setupGormStore(t *testing.T) *GormStore {
	t.Helper()

	// A named shared-cache database per test keeps connections isolated.
	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", atomic.AddUint64(&gormDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	s, err := NewGormStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore_CreateAndGet(t *testing.T) {
	s := setupGormStore(t)
	ctx := context.Background()

	conv := newConversation("conv-1")
	require.NoError(t, s.Create(ctx, conv))

	got, err := s.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "backend_developer", got.AskerRole)
	assert.Equal(t, types.StateInitiated, got.State)
	assert.Nil(t, got.AcknowledgedAt)

	assert.ErrorIs(t, s.Create(ctx, newConversation("conv-1")), ErrAlreadyExists)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ApplyTransition_Roundtrip(t *testing.T) {
	s := setupGormStore(t)
	ctx := context.Background()

	conv := newConversation("conv-1")
	require.NoError(t, s.Create(ctx, conv))

	conv.State = types.StateEscalated
	conv.EscalationLevel = 1
	conv.Generation = 3
	conv.CurrentResponder = "architect-1"
	err := s.ApplyTransition(ctx, conv,
		&types.ConversationEvent{
			ConversationID: "conv-1",
			Type:           types.EventDeclined,
			FromState:      types.StateWaiting,
			ToState:        types.StateEscalating,
			TriggeredBy:    "lead-1",
			Payload:        map[string]any{"reason": "above my expertise"},
		},
		&types.ConversationEvent{
			ConversationID: "conv-1",
			Type:           types.EventEscalated,
			FromState:      types.StateEscalating,
			ToState:        types.StateEscalated,
			TriggeredBy:    types.SystemActor,
		},
	)
	require.NoError(t, err)

	got, err := s.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateEscalated, got.State)
	assert.Equal(t, 1, got.EscalationLevel)
	assert.Equal(t, uint64(3), got.Generation)
	assert.Equal(t, "architect-1", got.CurrentResponder)

	events, err := s.ListEvents(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(2), events[1].Seq)
	assert.Equal(t, "above my expertise", events[0].Payload["reason"])
	assert.Equal(t, types.SystemActor, events[1].TriggeredBy)
}

func TestGormStore_ApplyTransition_MissingConversation(t *testing.T) {
	s := setupGormStore(t)

	err := s.ApplyTransition(context.Background(), newConversation("ghost"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_SequenceContinuesAcrossTransitions(t *testing.T) {
	s := setupGormStore(t)
	ctx := context.Background()

	conv := newConversation("conv-1")
	require.NoError(t, s.Create(ctx, conv, &types.ConversationEvent{
		ConversationID: "conv-1", Type: types.EventAcknowledged,
	}))

	require.NoError(t, s.ApplyTransition(ctx, conv, &types.ConversationEvent{
		ConversationID: "conv-1", Type: types.EventTimedOut,
	}))

	events, err := s.ListEvents(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(2), events[1].Seq)
}

func TestGormStore_ListActive(t *testing.T) {
	s := setupGormStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newConversation("conv-waiting")))

	cancelled := newConversation("conv-cancelled")
	require.NoError(t, s.Create(ctx, cancelled))
	cancelled.State = types.StateCancelled
	require.NoError(t, s.ApplyTransition(ctx, cancelled))

	got, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "conv-waiting", got[0].ID)
}

func TestGormStore_Ping(t *testing.T) {
	s := setupGormStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
