package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"order-gateway/internal/interfaces"
)

// Publisher sends gateway events to Redis Pub/Sub, one channel per event
// type: <prefix>:<type>.
type Publisher struct {
	rdb    *redis.Client
	prefix string
}

var _ interfaces.EventSink = (*Publisher)(nil)

func NewPublisher(c *Client, prefix string) *Publisher {
	return &Publisher{rdb: c.Underlying(), prefix: prefix}
}

func (p *Publisher) Name() string { return "redis" }

func (p *Publisher) Channel(eventType string) string {
	return p.prefix + ":" + eventType
}

func (p *Publisher) Publish(ctx context.Context, ev interfaces.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal %s event: %w", ev.Type, err)
	}
	channel := p.Channel(ev.Type)
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe streams events published under the prefix until ctx is done.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan interfaces.Event, error) {
	pubsub := p.rdb.PSubscribe(ctx, p.prefix+":*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", p.prefix, err)
	}

	out := make(chan interfaces.Event, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev interfaces.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
