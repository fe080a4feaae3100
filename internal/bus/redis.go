package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/logger"
)

// RedisBus publishes events over Redis pub/sub. Delivery is at-most-once:
// subscribers that are not connected miss the event.
type RedisBus struct {
	client *redis.Client
	log    *logger.Logger

	mu       sync.Mutex
	subs     []*redis.PubSub
	closed   bool
	handleWg sync.WaitGroup
}

// NewRedisBus connects to url and verifies the connection.
func NewRedisBus(url string, log *logger.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "connecting to redis", err)
	}

	if log == nil {
		log = logger.Default()
	}
	return &RedisBus{client: client, log: log}, nil
}

// Publish publishes an event to the channel named by topic.
func (b *RedisBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to marshal event", err)
	}

	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "failed to publish to redis", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed, then delivers
// messages to handler on a background goroutine until Close.
func (b *RedisBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	sub := b.client.Subscribe(ctx, topic)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return errors.Wrap(errors.CodeUnavailable, fmt.Sprintf("subscribing to %s", topic), err)
	}
	b.subs = append(b.subs, sub)

	b.handleWg.Add(1)
	go func() {
		defer b.handleWg.Done()
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn("dropping undecodable redis message", "topic", topic, "error", err.Error())
				continue
			}
			if err := handler(context.Background(), event); err != nil {
				b.log.Warn("bus handler failed", "topic", topic, "event_id", event.ID, "error", err.Error())
			}
		}
	}()

	return nil
}

// Close unsubscribes, waits for running handlers and closes the client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			b.log.Warn("closing redis subscription", "error", err.Error())
		}
	}
	b.handleWg.Wait()

	return b.client.Close()
}
