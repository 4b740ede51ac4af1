package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// PubSub carries project events between API instances.
type PubSub struct {
	client *redis.Client
}

func NewPubSub(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

func (p *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// Subscribe delivers every message published on a channel matching one of
// patterns until ctx is done.
func (p *PubSub) Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error {
	sub := p.client.PSubscribe(ctx, patterns...)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handler(msg.Channel, []byte(msg.Payload))
		}
	}
}
