package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "campusswap:events"

// RedisPublisher PUBLISHes JSON-encoded events for an out-of-process notifier.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	b, err := e.Encode()
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe returns a channel of decoded events. Undecodable payloads are
// skipped. The channel closes when ctx ends or the subscription is closed.
func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan Event, func() error) {
	sub := p.rdb.Subscribe(ctx, p.channel)
	out := make(chan Event)
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e Event
				if err := decode([]byte(msg.Payload), &e); err != nil {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close
}
