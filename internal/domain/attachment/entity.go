package attachment

import (
	"time"
)

// MaxPerProject is the default number of live attachments a project may hold.
const MaxPerProject = 5

// Attachment represents project_attachments. A row exists only while the
// object at StoragePath exists in the bucket.
type Attachment struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	UserID      string    `json:"user_id"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRow is the insert shape for project_attachments; the id is assigned by
// the database.
type NewRow struct {
	ProjectID   string
	UserID      string
	FileName    string
	StoragePath string
	MimeType    string
	SizeBytes   int64
}
