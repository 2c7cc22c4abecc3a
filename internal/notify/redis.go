package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finance-tracker/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on a redis channel so every instance
// can deliver them to its local sessions
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher for channel
func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Notify publishes the event
func (p *RedisPublisher) Notify(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, data).Err()
}

// RedisRelay forwards events received on a redis channel to a local Notifier
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	target  Notifier
	pubsub  *redis.PubSub
	done    chan struct{}
}

// NewRedisRelay creates a relay from channel to target
func NewRedisRelay(rdb *redis.Client, channel string, target Notifier) *RedisRelay {
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		target:  target,
	}
}

// Start subscribes and begins forwarding in the background
func (r *RedisRelay) Start(ctx context.Context) error {
	r.pubsub = r.rdb.Subscribe(ctx, r.channel)

	// Wait for confirmation that subscription is created
	if _, err := r.pubsub.Receive(ctx); err != nil {
		_ = r.pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	logger.Info("[RedisRelay] Subscribed to channel: %s", r.channel)

	r.done = make(chan struct{})
	go r.listen(ctx)
	return nil
}

// Stop closes the subscription and waits for the listener to exit
func (r *RedisRelay) Stop() error {
	if r.pubsub == nil {
		return nil
	}
	err := r.pubsub.Close()
	<-r.done
	return err
}

func (r *RedisRelay) listen(ctx context.Context) {
	defer close(r.done)
	ch := r.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Error("[RedisRelay] Failed to parse event: %v", err)
				continue
			}

			deliverCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := r.target.Notify(deliverCtx, event); err != nil {
				logger.Error("[RedisRelay] Failed to deliver %s to user %d: %v", event.Kind, event.UserID, err)
			}
			cancel()
		}
	}
}
