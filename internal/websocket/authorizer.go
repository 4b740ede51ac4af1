package websocket

import (
	"context"
	"errors"

	"propdesk/internal/domain/project"
	"propdesk/internal/events"
	propdesk_errors "propdesk/pkg/errors"
)

type ProjectOwnership interface {
	OwnedProject(ctx context.Context, ownerID, id string) (project.Project, error)
}

// ChannelAuthorizer decides which project channels a user may follow.
type ChannelAuthorizer struct {
	projects ProjectOwnership
}

func NewChannelAuthorizer(projects ProjectOwnership) *ChannelAuthorizer {
	return &ChannelAuthorizer{projects: projects}
}

// CanSubscribe allows a project channel only to the project's owner.
// Anything else is denied.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID string, channel string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	projectID, ok := events.ProjectIDFromChannel(channel)
	if !ok {
		return false, nil
	}
	if _, err := a.projects.OwnedProject(ctx, userID, projectID); err != nil {
		if errors.Is(err, propdesk_errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
