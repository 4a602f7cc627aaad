package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/askflow/types"
)

// Common errors
var (
	ErrClosed           = errors.New("gateway is closed")
	ErrUnknownRecipient = errors.New("unknown recipient")
)

// DeliveryResult reports the outcome of a send.
type DeliveryResult struct {
	MessageID   string    `json:"message_id"`
	Delivered   bool      `json:"delivered"`
	Attempts    int       `json:"attempts"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Gateway is the abstract message transport between actors. The orchestration
// core depends on this interface only and never inspects transport details.
type Gateway interface {
	// Send delivers a message to its recipient.
	Send(ctx context.Context, msg *types.Message) (*DeliveryResult, error)
}

// ReceiveFunc handles an inbound message (answer, decline, transport-level
// delivery receipt).
type ReceiveFunc func(ctx context.Context, msg *types.Message)

// Listener is implemented by gateways that can push inbound messages to the
// orchestrator.
type Listener interface {
	// OnReceived registers the handler for inbound messages. Must be called
	// before the gateway starts receiving.
	OnReceived(fn ReceiveFunc)
}

// RetryConfig defines retry behavior for message delivery.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// InitialBackoff is the initial backoff duration (default: 1s)
	InitialBackoff time.Duration `json:"initial_backoff" yaml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration (default: 30s)
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff (default: 2.0)
	BackoffMultiplier float64 `json:"backoff_multiplier" yaml:"backoff_multiplier"`
}

// DefaultRetryConfig returns the default retry configuration.
// Conservative strategy: max 3 retries with exponential backoff 1s/2s/4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// CalculateBackoff calculates the backoff duration for a given retry attempt.
func (c RetryConfig) CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.InitialBackoff
	}

	backoff := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * c.BackoffMultiplier)
		if backoff > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return backoff
}
