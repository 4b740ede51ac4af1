package websocket

import (
	"context"

	"propdesk/internal/events"
	"propdesk/pkg/logger"
)

// RedisBridge forwards project events published by any API instance to the
// local hub.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
	log        *logger.Logger
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub, l *logger.Logger) *RedisBridge {
	if l == nil {
		l = logger.Nop()
	}
	return &RedisBridge{subscriber: subscriber, hub: hub, log: l}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{events.ProjectChannelPattern}, b.forward)
}

func (b *RedisBridge) forward(channel string, payload []byte) {
	if _, ok := events.ProjectIDFromChannel(channel); !ok {
		return
	}
	n := b.hub.Broadcast(channel, payload)
	b.log.Debugf("bridge: %s delivered to %d clients", channel, n)
}
