package httpdto

import (
	"propdesk/internal/domain/attachment"
	"propdesk/internal/services"
)

// UploadAttachmentsResponse is returned by POST /attachments. Items is the
// project's full list after the upload; Attachments holds only the new rows.
type UploadAttachmentsResponse struct {
	services.UploadResult
	Items    []attachment.Attachment `json:"items"`
	Total    int                     `json:"total"`
	Quota    int                     `json:"quota"`
	Complete bool                    `json:"complete"`
}

type AttachmentListResponse struct {
	ProjectID string                  `json:"project_id"`
	Items     []attachment.Attachment `json:"items"`
	Total     int                     `json:"total"`
	Quota     int                     `json:"quota"`
}

type DownloadResponse struct {
	URL string `json:"url"`
}
