package repository

import (
	"context"
	"time"

	"propdesk/internal/domain/attachment"
	"propdesk/internal/domain/project"
)

type ProjectRepository interface {
	CreateDraft(ctx context.Context, userID string) (string, error)
	Create(ctx context.Context, p *project.Project) error
	Update(ctx context.Context, p project.Project) error
	GetByID(ctx context.Context, id string) (project.Project, error)
	ListByOwner(ctx context.Context, userID string) ([]project.Project, error)
	UpdateBudget(ctx context.Context, id, userID, markdown string) error
	MarkSubmitted(ctx context.Context, id, userID string, at time.Time) error
	Delete(ctx context.Context, id, userID string) error
}

type AttachmentRepository interface {
	InsertBatch(ctx context.Context, rows []attachment.NewRow) ([]attachment.Attachment, error)
	GetByID(ctx context.Context, id string) (attachment.Attachment, error)
	ListByProject(ctx context.Context, projectID string) ([]attachment.Attachment, error)
	Delete(ctx context.Context, id string) error
}
