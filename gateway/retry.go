package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

// RetryingGateway wraps a Gateway with bounded exponential backoff. A send
// that exhausts its retries surfaces as a DELIVERY_FAILURE; the orchestrator
// decides what that means per message type (question sends escalate
// immediately, acknowledgments are dropped with a log line).
type RetryingGateway struct {
	inner  Gateway
	config RetryConfig
	logger *zap.Logger
}

// NewRetryingGateway wraps inner with the given retry policy.
func NewRetryingGateway(inner Gateway, config RetryConfig, logger *zap.Logger) *RetryingGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingGateway{
		inner:  inner,
		config: config,
		logger: logger.With(zap.String("component", "retrying_gateway")),
	}
}

// Send delivers the message, retrying transient failures.
func (g *RetryingGateway) Send(ctx context.Context, msg *types.Message) (*DeliveryResult, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.config.CalculateBackoff(attempt - 1)
			g.logger.Warn("send failed, retrying",
				zap.String("message_id", msg.ID),
				zap.String("type", string(msg.Type)),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, types.NewError(types.ErrDeliveryFailure, "send aborted").
					WithConversation(msg.ConversationID).WithCause(ctx.Err())
			}
		}

		result, err := g.inner.Send(ctx, msg)
		if err == nil {
			if result != nil {
				result.Attempts = attempt + 1
			}
			return result, nil
		}
		lastErr = err
	}

	return nil, types.NewError(types.ErrDeliveryFailure, "send exhausted retries").
		WithConversation(msg.ConversationID).
		WithCause(lastErr)
}
