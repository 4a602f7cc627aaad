package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

// RedisConfig configures the Redis-backed gateway.
type RedisConfig struct {
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// RedisGateway is a Redis-based Gateway for distributed deployments. Each
// actor owns a Redis list used as its inbox; sends LPUSH, a receive loop
// BRPOPs the inboxes of locally hosted actors and hands inbound messages to
// the registered handler.
type RedisGateway struct {
	client    *redis.Client
	keyPrefix string
	receive   ReceiveFunc
	logger    *zap.Logger
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRedisGateway creates a Redis-based gateway.
func NewRedisGateway(config RedisConfig, logger *zap.Logger) (*RedisGateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "askflow:"
	}

	return &RedisGateway{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.With(zap.String("component", "redis_gateway")),
	}, nil
}

// inboxKey returns the Redis key of an actor's inbox list.
func (g *RedisGateway) inboxKey(actor string) string {
	return g.keyPrefix + "inbox:" + actor
}

// OnReceived registers the inbound handler. Must be called before Listen.
func (g *RedisGateway) OnReceived(fn ReceiveFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receive = fn
}

// Send pushes the message onto the recipient's inbox list.
func (g *RedisGateway) Send(ctx context.Context, msg *types.Message) (*DeliveryResult, error) {
	if msg.Recipient == "" {
		return nil, ErrUnknownRecipient
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := g.client.LPush(ctx, g.inboxKey(msg.Recipient), data).Err(); err != nil {
		return nil, fmt.Errorf("failed to push message: %w", err)
	}

	g.logger.Debug("message pushed",
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

// Listen starts draining the inboxes of the given actors, dispatching each
// inbound message to the registered handler. Non-blocking; stops when the
// context is cancelled or Close is called.
func (g *RedisGateway) Listen(ctx context.Context, actors []string) {
	ctx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	g.cancel = cancel
	g.done = make(chan struct{})
	g.mu.Unlock()

	keys := make([]string, len(actors))
	for i, a := range actors {
		keys[i] = g.inboxKey(a)
	}

	go func() {
		defer close(g.done)
		for {
			res, err := g.client.BRPop(ctx, time.Second, keys...).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				g.logger.Warn("inbox pop failed", zap.Error(err))
				continue
			}
			// BRPOP returns [key, value].
			if len(res) != 2 {
				continue
			}

			var msg types.Message
			if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
				g.logger.Warn("dropping undecodable message", zap.Error(err))
				continue
			}

			g.mu.RLock()
			fn := g.receive
			g.mu.RUnlock()
			if fn != nil {
				fn(ctx, &msg)
			}
		}
	}()
}

// Close stops the receive loop and releases the client.
func (g *RedisGateway) Close() error {
	g.mu.Lock()
	cancel := g.cancel
	done := g.done
	g.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return g.client.Close()
}

// Ping checks connectivity.
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
