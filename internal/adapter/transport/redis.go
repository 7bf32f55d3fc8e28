package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
)

const redisHealthInterval = 5 * time.Second

// redisEnvelope is the JSON published on the Redis channel.
type redisEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisAdapter consumes push events from a Redis Pub/Sub channel. The
// go-redis PubSub reconnects on its own; a periodic PING drives the
// connectivity indicator.
type RedisAdapter struct {
	*Hub

	client  *redis.Client
	channel string
	logger  *slog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewRedisAdapter parses rawURL and prepares a client. No connection is made until Connect.
func NewRedisAdapter(rawURL, channel string, logger *slog.Logger) (*RedisAdapter, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisAdapter{
		Hub:     NewHub(logger),
		client:  redis.NewClient(opt),
		channel: channel,
		logger:  logger,
	}, nil
}

// Connect subscribes to the channel and starts forwarding messages to the hub.
func (a *RedisAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return domainErrors.ErrTransportClosed
	}
	if a.pubsub != nil {
		return fmt.Errorf("redis transport already connected")
	}

	ps := a.client.Subscribe(ctx, a.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", a.channel, err)
	}
	a.pubsub = ps

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.SetConnected(true)
	a.logger.Info("push transport connected", slog.String("transport", "redis"), slog.String("channel", a.channel))

	a.wg.Add(2)
	go a.forward(ps.Channel())
	go a.watchHealth(runCtx)
	return nil
}

// Close unsubscribes, stops the health probe and closes every subscription.
func (a *RedisAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	ps, cancel := a.pubsub, a.cancel
	a.pubsub, a.cancel = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if ps != nil {
		err = ps.Close()
	}
	a.wg.Wait()
	a.SetConnected(false)
	a.closeSubscribers()
	if cerr := a.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *RedisAdapter) forward(messages <-chan *redis.Message) {
	defer a.wg.Done()
	for msg := range messages {
		a.dispatch([]byte(msg.Payload))
	}
}

func (a *RedisAdapter) dispatch(raw []byte) {
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		a.logger.Warn("discarding malformed push message",
			slog.String("transport", "redis"),
			slog.String("error", fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err).Error()),
		)
		return
	}
	a.Publish(env.Event, env.Data)
}

func (a *RedisAdapter) watchHealth(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(redisHealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, redisHealthInterval)
			err := a.client.Ping(pingCtx).Err()
			cancel()
			if err != nil && ctx.Err() == nil {
				if a.Connected() {
					a.logger.Warn("push transport lost", slog.String("transport", "redis"), slog.String("error", err.Error()))
				}
				a.SetConnected(false)
				continue
			}
			a.SetConnected(true)
		}
	}
}
