package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/askflow/types"
)

// ChannelGateway is an in-process Gateway backed by per-recipient buffered
// channels. Suitable for development, tests and single-node deployments.
type ChannelGateway struct {
	inboxes    map[string]chan *types.Message
	bufferSize int
	limiter    *rate.Limiter
	receive    ReceiveFunc
	logger     *zap.Logger
	mu         sync.RWMutex
	closed     bool
}

// ChannelGatewayOptions configures the in-process gateway.
type ChannelGatewayOptions struct {
	// BufferSize is the per-recipient inbox capacity (default: 64).
	BufferSize int
	// SendRate throttles outbound sends; zero means unlimited.
	SendRate rate.Limit
	Logger   *zap.Logger
}

// NewChannelGateway creates an in-process gateway.
func NewChannelGateway(opts ChannelGatewayOptions) *ChannelGateway {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64
	}
	limit := opts.SendRate
	if limit == 0 {
		limit = rate.Inf
	}
	return &ChannelGateway{
		inboxes:    make(map[string]chan *types.Message),
		bufferSize: opts.BufferSize,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     opts.Logger.With(zap.String("component", "channel_gateway")),
	}
}

// OnReceived registers the inbound handler.
func (g *ChannelGateway) OnReceived(fn ReceiveFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receive = fn
}

// Send delivers the message to the recipient's inbox.
func (g *ChannelGateway) Send(ctx context.Context, msg *types.Message) (*DeliveryResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	inbox, ok := g.inboxes[msg.Recipient]
	if !ok {
		inbox = make(chan *types.Message, g.bufferSize)
		g.inboxes[msg.Recipient] = inbox
	}
	g.mu.Unlock()

	select {
	case inbox <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	g.logger.Debug("message delivered",
		zap.String("message_id", msg.ID),
		zap.String("type", string(msg.Type)),
		zap.String("recipient", msg.Recipient),
	)
	return &DeliveryResult{
		MessageID:   msg.ID,
		Delivered:   true,
		Attempts:    1,
		DeliveredAt: time.Now(),
	}, nil
}

// Inbox returns the receive channel for an actor, creating it on first use.
// Actors drain their inbox and feed answers/declines back via Inject.
func (g *ChannelGateway) Inbox(actor string) <-chan *types.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	inbox, ok := g.inboxes[actor]
	if !ok {
		inbox = make(chan *types.Message, g.bufferSize)
		g.inboxes[actor] = inbox
	}
	return inbox
}

// Inject feeds an inbound message (answer, decline, delivery receipt) to the
// registered handler, as if it arrived from the transport.
func (g *ChannelGateway) Inject(ctx context.Context, msg *types.Message) {
	g.mu.RLock()
	fn := g.receive
	g.mu.RUnlock()
	if fn != nil {
		fn(ctx, msg)
	}
}

// Close shuts the gateway down. Subsequent sends fail with ErrClosed.
func (g *ChannelGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}
