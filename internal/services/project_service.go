package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"propdesk/internal/budget"
	"propdesk/internal/domain/attachment"
	"propdesk/internal/domain/project"
	"propdesk/internal/repository"
	propdesk_errors "propdesk/pkg/errors"
	"propdesk/pkg/logger"

	"github.com/samber/lo"
)

type SubmissionPublisher interface {
	ProjectSubmitted(ctx context.Context, projectID, userID string)
}

type ProjectService struct {
	projects repository.ProjectRepository
	gateway  *AttachmentGateway
	notifier Notifier
	events   SubmissionPublisher
	log      *logger.Logger
	now      func() time.Time
}

func NewProjectService(
	projects repository.ProjectRepository,
	gateway *AttachmentGateway,
	notifier Notifier,
	events SubmissionPublisher,
	l *logger.Logger,
) *ProjectService {
	if l == nil {
		l = logger.Nop()
	}
	return &ProjectService{
		projects: projects,
		gateway:  gateway,
		notifier: notifier,
		events:   events,
		log:      l,
		now:      time.Now,
	}
}

// ProjectInput carries the editable parts of a proposal. A nil Budget keeps
// the stored table untouched on update.
type ProjectInput struct {
	ID          string
	ProjectName string
	Fields      map[string]string
	Budget      []budget.Row
}

// CreateDraft inserts a project holding only its owner.
func (s *ProjectService) CreateDraft(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", propdesk_errors.ErrMissingOwner
	}
	return s.projects.CreateDraft(ctx, ownerID)
}

// DraftSaver returns a SaveDraftFunc that persists in as a new draft.
func (s *ProjectService) DraftSaver(in ProjectInput) SaveDraftFunc {
	return func(ctx context.Context, ownerID string) (string, error) {
		in.ID = ""
		p, err := s.Save(ctx, ownerID, in)
		if err != nil {
			return "", err
		}
		return p.ID, nil
	}
}

// Save inserts a new project when in.ID is empty and otherwise updates the
// owner's existing draft.
func (s *ProjectService) Save(ctx context.Context, ownerID string, in ProjectInput) (project.Project, error) {
	if ownerID == "" {
		return project.Project{}, propdesk_errors.ErrMissingOwner
	}
	fields := lo.OmitByValues(in.Fields, []string{""})

	if in.ID == "" {
		p := &project.Project{
			UserID:      ownerID,
			ProjectName: nullString(in.ProjectName),
			Fields:      fields,
			Status:      project.StatusDraft,
		}
		if in.Budget != nil {
			p.BudgetMarkdown = budget.Encode(in.Budget)
		}
		if err := s.projects.Create(ctx, p); err != nil {
			return project.Project{}, err
		}
		return *p, nil
	}

	p, err := s.Get(ctx, ownerID, in.ID)
	if err != nil {
		return project.Project{}, err
	}
	if p.IsSubmitted() {
		return project.Project{}, fmt.Errorf("%w: project %s was already submitted", propdesk_errors.ErrConflict, p.ID)
	}
	p.ProjectName = nullString(in.ProjectName)
	p.Fields = fields
	if in.Budget != nil {
		p.BudgetMarkdown = budget.Encode(in.Budget)
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return project.Project{}, err
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, ownerID, id string) (project.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return project.Project{}, err
	}
	if p.UserID != ownerID {
		return project.Project{}, propdesk_errors.ErrNotFound
	}
	return p, nil
}

func (s *ProjectService) ListByOwner(ctx context.Context, ownerID string) ([]project.Project, error) {
	if ownerID == "" {
		return nil, propdesk_errors.ErrMissingOwner
	}
	return s.projects.ListByOwner(ctx, ownerID)
}

// Delete removes the project's stored objects and then the project. Object
// removal is best effort; the rows go with the project.
func (s *ProjectService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	log := s.log.Ctx(ctx)

	items, err := s.gateway.ListByProject(ctx, id)
	if err != nil {
		log.Warnf("project %s: list attachments before delete: %v", id, err)
	} else if len(items) > 0 {
		paths := lo.Map(items, func(a attachment.Attachment, _ int) string { return a.StoragePath })
		if err := s.gateway.RemoveObjects(ctx, paths); err != nil {
			log.Warnf("project %s: %v", id, err)
		}
	}
	return s.projects.Delete(ctx, id, ownerID)
}

// Submit marks the project submitted and notifies the submission webhook.
func (s *ProjectService) Submit(ctx context.Context, ownerID, id string) (project.Project, error) {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return project.Project{}, err
	}
	if p.IsSubmitted() {
		return project.Project{}, fmt.Errorf("%w: project %s was already submitted", propdesk_errors.ErrConflict, id)
	}
	at := s.now()
	if err := s.projects.MarkSubmitted(ctx, id, ownerID, at); err != nil {
		return project.Project{}, err
	}
	p.Status = project.StatusSubmitted
	p.SubmittedAt = sql.NullTime{Time: at, Valid: true}

	if s.notifier != nil {
		s.notifier.NotifySubmission(ctx, ownerID, id)
	}
	if s.events != nil {
		s.events.ProjectSubmitted(ctx, id, ownerID)
	}
	return p, nil
}

func (s *ProjectService) GetBudget(ctx context.Context, ownerID, id string) ([]budget.Row, error) {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return budget.Decode(p.BudgetMarkdown), nil
}

// SaveBudget stores rows as the project's budget table and returns them as
// they read back.
func (s *ProjectService) SaveBudget(ctx context.Context, ownerID, id string, rows []budget.Row) ([]budget.Row, error) {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if p.IsSubmitted() {
		return nil, fmt.Errorf("%w: project %s was already submitted", propdesk_errors.ErrConflict, id)
	}
	markdown := budget.Encode(rows)
	if err := s.projects.UpdateBudget(ctx, id, ownerID, markdown); err != nil {
		return nil, err
	}
	return budget.Decode(markdown), nil
}

func nullString(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}
