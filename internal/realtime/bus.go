package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bus carries events between relay instances.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	StartForwarder(ctx context.Context, onEvent func(Event)) error
	Close() error
}

// LocalBus delivers events in-process. It serves single-instance deployments and tests.
type LocalBus struct {
	mu      sync.RWMutex
	onEvent func(Event)
}

// NewLocalBus constructs a LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Publish hands evt to the forwarder, if started.
func (b *LocalBus) Publish(_ context.Context, evt Event) error {
	b.mu.RLock()
	fn := b.onEvent
	b.mu.RUnlock()
	if fn != nil {
		fn(evt)
	}
	return nil
}

// StartForwarder registers the delivery callback.
func (b *LocalBus) StartForwarder(_ context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	b.mu.Lock()
	b.onEvent = onEvent
	b.mu.Unlock()
	return nil
}

// Close detaches the forwarder.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.onEvent = nil
	b.mu.Unlock()
	return nil
}

// RedisBus fans events out across instances through one Redis pub/sub channel.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
	mu      sync.Mutex
	sub     *redis.PubSub
}

// NewRedisBus constructs a RedisBus on an existing client. The client is owned by the caller.
func NewRedisBus(rdb *redis.Client, channel string, logger *zap.Logger) (*RedisBus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if channel == "" {
		channel = "live-sessions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{rdb: rdb, channel: channel, logger: logger}, nil
}

// Publish encodes evt as JSON and publishes it.
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}
	return nil
}

// StartForwarder subscribes and forwards decoded events until ctx is cancelled.
func (b *RedisBus) StartForwarder(ctx context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					b.logger.Warn("bad relay payload", zap.Error(err))
					continue
				}
				onEvent(evt)
			}
		}
	}()
	return nil
}

// Close stops the subscription.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	err := b.sub.Close()
	b.sub = nil
	return err
}
