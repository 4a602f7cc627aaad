package gateway

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

func setupRedisGateway(t *testing.T) (*miniredis.Miniredis, *RedisGateway) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	g, err := NewRedisGateway(RedisConfig{Host: mr.Host(), Port: port}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	return mr, g
}

func TestRedisGateway_Send(t *testing.T) {
	mr, g := setupRedisGateway(t)

	msg := types.NewMessage(types.MessageQuestion, "conv-1", "asker", "responder", "how do I shard this?")
	result, err := g.Send(context.Background(), msg)

	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.NotEmpty(t, msg.ID)

	// The message landed in the recipient's inbox list.
	vals, err := mr.List("askflow:inbox:responder")
	require.NoError(t, err)
	assert.Len(t, vals, 1)
}

func TestRedisGateway_Send_NoRecipient(t *testing.T) {
	_, g := setupRedisGateway(t)

	msg := types.NewMessage(types.MessageQuestion, "conv-1", "asker", "", "?")
	_, err := g.Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrUnknownRecipient)
}

func TestRedisGateway_ListenDispatchesInbound(t *testing.T) {
	_, g := setupRedisGateway(t)

	received := make(chan *types.Message, 1)
	g.OnReceived(func(_ context.Context, msg *types.Message) {
		received <- msg
	})
	g.Listen(context.Background(), []string{"orchestrator"})

	answer := types.NewMessage(types.MessageAnswer, "conv-1", "responder", "orchestrator", "use consistent hashing")
	_, err := g.Send(context.Background(), answer)
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, types.MessageAnswer, got.Type)
		assert.Equal(t, "use consistent hashing", got.Content)
		assert.Equal(t, "conv-1", got.ConversationID)
	case <-time.After(3 * time.Second):
		t.Fatal("inbound message not dispatched")
	}
}

func TestRedisGateway_Ping(t *testing.T) {
	mr, g := setupRedisGateway(t)

	assert.NoError(t, g.Ping(context.Background()))

	mr.Close()
	assert.Error(t, g.Ping(context.Background()))
}
