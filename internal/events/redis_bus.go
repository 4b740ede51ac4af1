package events

import (
	"context"
	"encoding/json"
	"time"

	"propdesk/pkg/logger"
)

// Bus publishes project events on their project channel. Delivery is best
// effort: failures are logged and never returned.
type Bus struct {
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewBus(publisher Publisher, l *logger.Logger) *Bus {
	if l == nil {
		l = logger.Nop()
	}
	return &Bus{publisher: publisher, log: l, now: time.Now}
}

func (b *Bus) AttachmentsChanged(ctx context.Context, projectID string, count int) {
	b.publish(ctx, EventTypeAttachmentsChanged, projectID, AttachmentsChangedPayload{ProjectID: projectID, Count: count})
}

func (b *Bus) ProjectSubmitted(ctx context.Context, projectID, userID string) {
	b.publish(ctx, EventTypeProjectSubmitted, projectID, ProjectSubmittedPayload{ProjectID: projectID, UserID: userID})
}

func (b *Bus) publish(ctx context.Context, eventType, projectID string, payload interface{}) {
	if b == nil || b.publisher == nil {
		return
	}
	env, err := NewEnvelope(eventType, projectID, payload, b.now())
	if err != nil {
		b.log.Ctx(ctx).Errorf("marshal %s event: %v", eventType, err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		b.log.Ctx(ctx).Errorf("marshal %s envelope: %v", eventType, err)
		return
	}
	if err := b.publisher.Publish(ctx, ProjectChannel(projectID), data); err != nil {
		b.log.Ctx(ctx).Warnf("publish %s for project %s: %v", eventType, projectID, err)
	}
}
