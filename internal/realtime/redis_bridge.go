package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBridge publishes frames on a redis channel and relays everything
// received on it to the local hub, so every API instance reaches its own
// clients.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger

	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

// NewRedisBridge wires a bridge. Call Start before broadcasting.
func NewRedisBridge(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client:  client,
		channel: channel,
		hub:     hub,
		logger:  logger.Named("realtime"),
	}
}

// Start subscribes and relays until Close.
func (b *RedisBridge) Start(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.pubsub = ps

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range ps.Channel() {
			b.hub.Deliver([]byte(msg.Payload))
		}
	}()
	return nil
}

func (b *RedisBridge) Broadcast(ctx context.Context, event string, data any) error {
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, frame).Err()
}

// Close stops relaying.
func (b *RedisBridge) Close() error {
	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
