package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"propdesk/internal/domain/project"
	propdesk_errors "propdesk/pkg/errors"
)

const projectColumns = "id, user_id, project_name, fields, budget_markdown, status, created_at, updated_at, submitted_at"

type projectRepository struct {
	db DBTX
}

func NewProjectRepository(db DBTX) ProjectRepository {
	return &projectRepository{db: db}
}

// CreateDraft inserts a project that only carries its owner and returns the
// generated id.
func (r *projectRepository) CreateDraft(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO projects (user_id) VALUES ($1)
        RETURNING id
    `, userID).Scan(&id)
	if err != nil {
		return "", mapError(err)
	}
	return id, nil
}

func (r *projectRepository) Create(ctx context.Context, p *project.Project) error {
	fields, err := encodeFields(p.Fields)
	if err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = project.StatusDraft
	}
	err = r.db.QueryRowContext(ctx, `
        INSERT INTO projects (user_id, project_name, fields, budget_markdown, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `, p.UserID, p.ProjectName, fields, p.BudgetMarkdown, p.Status).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Update rewrites the editable columns of a project owned by p.UserID.
func (r *projectRepository) Update(ctx context.Context, p project.Project) error {
	fields, err := encodeFields(p.Fields)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE projects
        SET project_name = $1, fields = $2, budget_markdown = $3, updated_at = $4
        WHERE id = $5 AND user_id = $6
    `, p.ProjectName, fields, p.BudgetMarkdown, time.Now(), p.ID, p.UserID)
	return affectedOne(res, err)
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (project.Project, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+projectColumns+`
        FROM projects
        WHERE id = $1
    `, id)
	p, err := scanProject(row)
	if err != nil {
		return project.Project{}, mapError(err)
	}
	return p, nil
}

func (r *projectRepository) ListByOwner(ctx context.Context, userID string) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+projectColumns+`
        FROM projects
        WHERE user_id = $1
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	items := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *projectRepository) UpdateBudget(ctx context.Context, id, userID, markdown string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE projects
        SET budget_markdown = $1, updated_at = $2
        WHERE id = $3 AND user_id = $4
    `, markdown, time.Now(), id, userID)
	return affectedOne(res, err)
}

func (r *projectRepository) MarkSubmitted(ctx context.Context, id, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE projects
        SET status = $1, submitted_at = $2, updated_at = $2
        WHERE id = $3 AND user_id = $4
    `, project.StatusSubmitted, at, id, userID)
	return affectedOne(res, err)
}

// Delete removes the project and its attachment rows in one transaction. The
// FK cascades as well; the explicit delete keeps the two tables consistent
// on schemas created without it.
func (r *projectRepository) Delete(ctx context.Context, id, userID string) error {
	return WithTx(ctx, r.db, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `
            DELETE FROM project_attachments
            WHERE project_id = $1 AND user_id = $2
        `, id, userID); err != nil {
			return mapError(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
		return affectedOne(res, err)
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (project.Project, error) {
	var (
		p      project.Project
		fields []byte
		status string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.ProjectName, &fields, &p.BudgetMarkdown, &status, &p.CreatedAt, &p.UpdatedAt, &p.SubmittedAt); err != nil {
		return project.Project{}, err
	}
	p.Status = project.Status(status)
	p.Fields = map[string]string{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &p.Fields); err != nil {
			return project.Project{}, fmt.Errorf("decode project fields: %w", err)
		}
	}
	return p, nil
}

func encodeFields(fields map[string]string) ([]byte, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode project fields: %w", err)
	}
	return b, nil
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return propdesk_errors.ErrNotFound
	}
	return nil
}
