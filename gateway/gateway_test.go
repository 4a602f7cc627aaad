package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

// mockGateway implements Gateway with a function callback.
type mockGateway struct {
	sendFn func(ctx context.Context, msg *types.Message) (*DeliveryResult, error)
	calls  atomic.Int64
}

func (m *mockGateway) Send(ctx context.Context, msg *types.Message) (*DeliveryResult, error) {
	m.calls.Add(1)
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return &DeliveryResult{MessageID: msg.ID, Delivered: true, Attempts: 1}, nil
}

func TestRetryConfig_CalculateBackoff(t *testing.T) {
	config := DefaultRetryConfig()

	assert.Equal(t, 1*time.Second, config.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, config.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, config.CalculateBackoff(2))

	// Capped at MaxBackoff.
	assert.Equal(t, 30*time.Second, config.CalculateBackoff(10))
}

func TestRetryingGateway_SucceedsFirstTry(t *testing.T) {
	inner := &mockGateway{}
	g := NewRetryingGateway(inner, DefaultRetryConfig(), zap.NewNop())

	msg := types.NewMessage(types.MessageQuestion, "conv-1", "asker", "responder", "how?")
	result, err := g.Send(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestRetryingGateway_RetriesThenSucceeds(t *testing.T) {
	var failures atomic.Int64
	inner := &mockGateway{
		sendFn: func(_ context.Context, msg *types.Message) (*DeliveryResult, error) {
			if failures.Add(1) <= 2 {
				return nil, errors.New("transport glitch")
			}
			return &DeliveryResult{MessageID: msg.ID, Delivered: true}, nil
		},
	}
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffMultiplier: 2.0}
	g := NewRetryingGateway(inner, config, zap.NewNop())

	result, err := g.Send(context.Background(), types.NewMessage(types.MessageFollowUp, "conv-1", "system", "responder", "still there?"))

	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
}

func TestRetryingGateway_ExhaustsRetries(t *testing.T) {
	inner := &mockGateway{
		sendFn: func(context.Context, *types.Message) (*DeliveryResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffMultiplier: 2.0}
	g := NewRetryingGateway(inner, config, zap.NewNop())

	_, err := g.Send(context.Background(), types.NewMessage(types.MessageQuestion, "conv-1", "asker", "responder", "how?"))

	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrDeliveryFailure))
	assert.Equal(t, int64(3), inner.calls.Load(), "initial attempt plus two retries")
}

func TestRetryingGateway_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &mockGateway{
		sendFn: func(context.Context, *types.Message) (*DeliveryResult, error) {
			return nil, errors.New("down")
		},
	}
	config := RetryConfig{MaxRetries: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiplier: 2.0}
	g := NewRetryingGateway(inner, config, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := g.Send(ctx, types.NewMessage(types.MessageQuestion, "conv-1", "asker", "responder", "how?"))

	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrDeliveryFailure))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannelGateway_SendAndReceive(t *testing.T) {
	g := NewChannelGateway(ChannelGatewayOptions{Logger: zap.NewNop()})
	defer g.Close()

	msg := types.NewMessage(types.MessageQuestion, "conv-1", "asker", "responder", "how?")
	result, err := g.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.NotEmpty(t, msg.ID)

	select {
	case got := <-g.Inbox("responder"):
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, "how?", got.Content)
	case <-time.After(time.Second):
		t.Fatal("message not delivered to inbox")
	}
}

func TestChannelGateway_Inject(t *testing.T) {
	g := NewChannelGateway(ChannelGatewayOptions{Logger: zap.NewNop()})
	defer g.Close()

	received := make(chan *types.Message, 1)
	g.OnReceived(func(_ context.Context, msg *types.Message) {
		received <- msg
	})

	answer := types.NewMessage(types.MessageAnswer, "conv-1", "responder", "asker", "42")
	g.Inject(context.Background(), answer)

	select {
	case got := <-received:
		assert.Equal(t, types.MessageAnswer, got.Type)
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
}

func TestChannelGateway_ClosedSendFails(t *testing.T) {
	g := NewChannelGateway(ChannelGatewayOptions{Logger: zap.NewNop()})
	require.NoError(t, g.Close())

	_, err := g.Send(context.Background(), types.NewMessage(types.MessageQuestion, "conv-1", "a", "b", "?"))
	assert.ErrorIs(t, err, ErrClosed)
}
