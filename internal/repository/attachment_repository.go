package repository

import (
	"context"
	"fmt"
	"strings"

	"propdesk/internal/domain/attachment"
	propdesk_errors "propdesk/pkg/errors"
)

const attachmentColumns = "id, project_id, user_id, file_name, storage_path, mime_type, size_bytes, created_at"

type attachmentRepository struct {
	db DBTX
}

func NewAttachmentRepository(db DBTX) AttachmentRepository {
	return &attachmentRepository{db: db}
}

// InsertBatch writes all rows in a single statement, so either every row is
// stored or none is.
func (r *attachmentRepository) InsertBatch(ctx context.Context, rows []attachment.NewRow) ([]attachment.Attachment, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	const perRow = 6
	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*perRow)
	for i, row := range rows {
		values = append(values, "("+buildPlaceholders(i*perRow+1, perRow)+")")
		args = append(args, row.ProjectID, row.UserID, row.FileName, row.StoragePath, row.MimeType, row.SizeBytes)
	}

	query := `
        INSERT INTO project_attachments (project_id, user_id, file_name, storage_path, mime_type, size_bytes)
        VALUES ` + strings.Join(values, ", ") + `
        RETURNING ` + attachmentColumns

	rs, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rs.Close()

	inserted := make([]attachment.Attachment, 0, len(rows))
	for rs.Next() {
		var a attachment.Attachment
		if err := rs.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.FileName, &a.StoragePath, &a.MimeType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		inserted = append(inserted, a)
	}
	if err := rs.Err(); err != nil {
		return nil, mapError(err)
	}
	if len(inserted) != len(rows) {
		return nil, fmt.Errorf("inserted %d of %d attachment rows", len(inserted), len(rows))
	}
	return inserted, nil
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (attachment.Attachment, error) {
	var a attachment.Attachment
	err := r.db.QueryRowContext(ctx, `
        SELECT `+attachmentColumns+`
        FROM project_attachments
        WHERE id = $1
    `, id).Scan(&a.ID, &a.ProjectID, &a.UserID, &a.FileName, &a.StoragePath, &a.MimeType, &a.SizeBytes, &a.CreatedAt)
	if err != nil {
		return attachment.Attachment{}, mapError(err)
	}
	return a, nil
}

func (r *attachmentRepository) ListByProject(ctx context.Context, projectID string) ([]attachment.Attachment, error) {
	rs, err := r.db.QueryContext(ctx, `
        SELECT `+attachmentColumns+`
        FROM project_attachments
        WHERE project_id = $1
        ORDER BY seq ASC
    `, projectID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rs.Close()

	items := []attachment.Attachment{}
	for rs.Next() {
		var a attachment.Attachment
		if err := rs.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.FileName, &a.StoragePath, &a.MimeType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_attachments WHERE id = $1`, id)
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
