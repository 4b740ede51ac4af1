package services

import (
	"context"
	"fmt"

	"propdesk/internal/domain/project"
	"propdesk/internal/repository"
	propdesk_errors "propdesk/pkg/errors"
)

// SaveDraftFunc persists whatever the caller has of the form and returns the
// new project id.
type SaveDraftFunc func(ctx context.Context, ownerID string) (string, error)

// DraftMaterializer guarantees a persisted project id exists before any
// attachment is written.
type DraftMaterializer struct {
	projects repository.ProjectRepository
}

func NewDraftMaterializer(projects repository.ProjectRepository) *DraftMaterializer {
	return &DraftMaterializer{projects: projects}
}

// EnsureProjectID returns currentID when it names a project owned by
// ownerID, without writing anything. With no id, save is called exactly once.
func (m *DraftMaterializer) EnsureProjectID(ctx context.Context, ownerID, currentID string, save SaveDraftFunc) (string, error) {
	if currentID != "" {
		if _, err := m.OwnedProject(ctx, ownerID, currentID); err != nil {
			return "", fmt.Errorf("%w: %w", propdesk_errors.ErrDraftCreation, err)
		}
		return currentID, nil
	}

	if save == nil {
		save = m.projects.CreateDraft
	}
	id, err := save(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", propdesk_errors.ErrDraftCreation, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty project id", propdesk_errors.ErrDraftCreation)
	}
	return id, nil
}

// OwnedProject loads a project, reporting projects of other owners as
// missing.
func (m *DraftMaterializer) OwnedProject(ctx context.Context, ownerID, id string) (project.Project, error) {
	p, err := m.projects.GetByID(ctx, id)
	if err != nil {
		return project.Project{}, err
	}
	if p.UserID != ownerID {
		return project.Project{}, propdesk_errors.ErrNotFound
	}
	return p, nil
}
