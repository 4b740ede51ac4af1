package services

import (
	"context"
	"fmt"
	"io"

	"propdesk/internal/domain/attachment"
	"propdesk/internal/metrics"
	propdesk_errors "propdesk/pkg/errors"
	"propdesk/pkg/logger"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type UploadState string

const (
	StateIdle               UploadState = "idle"
	StateValidating         UploadState = "validating"
	StateRejected           UploadState = "rejected"
	StateMaterializing      UploadState = "materializing"
	StateUploading          UploadState = "uploading"
	StatePartialFailure     UploadState = "partial_failure"
	StateAllFailed          UploadState = "all_failed"
	StateCommittingMetadata UploadState = "committing_metadata"
	StateNotifying          UploadState = "notifying"
	StateDone               UploadState = "done"
	StateFailed             UploadState = "failed"
)

// FileUpload is one selected file. Open is called once, during the upload.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type UploadRequest struct {
	OwnerID   string
	ProjectID string
	Files     []FileUpload
	// SaveDraft persists the form when no project exists yet. Nil falls back
	// to inserting an empty draft.
	SaveDraft SaveDraftFunc
}

type FailedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type UploadResult struct {
	State             UploadState             `json:"state"`
	States            []UploadState           `json:"states"`
	ProjectID         string                  `json:"project_id,omitempty"`
	Processed         int                     `json:"processed"`
	SuccessfulUploads int                     `json:"successful_uploads"`
	FailedFiles       []FailedFile            `json:"failed_files"`
	Warning           string                  `json:"warning,omitempty"`
	Attachments       []attachment.Attachment `json:"attachments"`
}

func (r *UploadResult) enter(s UploadState) {
	r.State = s
	r.States = append(r.States, s)
}

// ChangePublisher fans attachment changes out to live clients.
type ChangePublisher interface {
	AttachmentsChanged(ctx context.Context, projectID string, count int)
}

type OrchestratorConfig struct {
	Quota       int
	Concurrency int
	MaxBytes    int64
}

// AttachmentOrchestrator runs the upload and delete workflows against an
// AttachmentView.
type AttachmentOrchestrator struct {
	gateway  *AttachmentGateway
	drafts   *DraftMaterializer
	notifier Notifier
	changes  ChangePublisher
	metrics  *metrics.Recorder
	cfg      OrchestratorConfig
	log      *logger.Logger
}

func NewAttachmentOrchestrator(
	gateway *AttachmentGateway,
	drafts *DraftMaterializer,
	notifier Notifier,
	changes ChangePublisher,
	rec *metrics.Recorder,
	cfg OrchestratorConfig,
	l *logger.Logger,
) *AttachmentOrchestrator {
	if cfg.Quota <= 0 {
		cfg.Quota = attachment.MaxPerProject
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if l == nil {
		l = logger.Nop()
	}
	return &AttachmentOrchestrator{
		gateway:  gateway,
		drafts:   drafts,
		notifier: notifier,
		changes:  changes,
		metrics:  rec,
		cfg:      cfg,
		log:      l,
	}
}

// LoadView builds a view of an owned project's attachments. An empty
// projectID yields an empty view for a form that has not been saved yet.
func (o *AttachmentOrchestrator) LoadView(ctx context.Context, ownerID, projectID string) (*AttachmentView, error) {
	if projectID == "" {
		return NewAttachmentView("", nil), nil
	}
	if _, err := o.drafts.OwnedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	view := NewAttachmentView(projectID, nil)
	if err := o.Refresh(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

// Refresh replaces the view's contents with the stored list.
func (o *AttachmentOrchestrator) Refresh(ctx context.Context, view *AttachmentView) error {
	projectID := view.ProjectID()
	if projectID == "" {
		view.replace(nil)
		return nil
	}
	items, err := o.gateway.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	view.replace(items)
	return nil
}

func (o *AttachmentOrchestrator) validate(view *AttachmentView, req UploadRequest) ([]FileUpload, string, error) {
	if len(req.Files) == 0 {
		return nil, "", fmt.Errorf("%w: %w", propdesk_errors.ErrValidation, propdesk_errors.ErrEmptySelection)
	}
	if req.OwnerID == "" {
		return nil, "", fmt.Errorf("%w: %w", propdesk_errors.ErrValidation, propdesk_errors.ErrMissingOwner)
	}
	if current := view.ProjectID(); current != "" && req.ProjectID != "" && current != req.ProjectID {
		return nil, "", fmt.Errorf("%w: %w: project id does not match the loaded attachments", propdesk_errors.ErrValidation, propdesk_errors.ErrInvalidInput)
	}
	remaining := o.cfg.Quota - view.Len()
	if remaining <= 0 {
		return nil, "", fmt.Errorf("%w: %w: limit of %d attachments", propdesk_errors.ErrValidation, propdesk_errors.ErrQuotaExhausted, o.cfg.Quota)
	}
	files := req.Files
	warning := ""
	if len(files) > remaining {
		warning = fmt.Sprintf("only %d of %d files were processed: a project accepts at most %d attachments", remaining, len(files), o.cfg.Quota)
		files = files[:remaining]
	}
	return files, warning, nil
}

type uploadOutcome struct {
	file FileUpload
	path string
	err  error
}

// Upload validates the selection, makes sure a project exists, writes each
// file to storage and records all successful files in one metadata batch.
// The returned result is filled in even when an error is returned.
func (o *AttachmentOrchestrator) Upload(ctx context.Context, view *AttachmentView, req UploadRequest) (UploadResult, error) {
	result := UploadResult{State: StateIdle, FailedFiles: []FailedFile{}, Attachments: []attachment.Attachment{}}
	if !view.begin() {
		return result, fmt.Errorf("%w: another attachment operation is in progress", propdesk_errors.ErrConflict)
	}
	defer view.end()
	log := o.log.Ctx(ctx)

	result.enter(StateValidating)
	files, warning, err := o.validate(view, req)
	if err != nil {
		result.enter(StateRejected)
		return result, err
	}
	result.Warning = warning
	if warning != "" {
		log.Warnf("upload truncated: %s", warning)
	}

	result.enter(StateMaterializing)
	currentID := req.ProjectID
	if currentID == "" {
		currentID = view.ProjectID()
	}
	projectID, err := o.drafts.EnsureProjectID(ctx, req.OwnerID, currentID, req.SaveDraft)
	if err != nil {
		log.Errorf("upload aborted, no project id: %v", err)
		result.enter(StateFailed)
		return result, err
	}
	result.ProjectID = projectID
	if view.ProjectID() != projectID {
		view.setProject(projectID)
	}

	result.enter(StateUploading)
	outcomes := o.uploadAll(ctx, req.OwnerID, projectID, files)
	result.Processed = len(outcomes)

	succeeded := lo.Filter(outcomes, func(u uploadOutcome, _ int) bool { return u.err == nil })
	for _, u := range outcomes {
		if u.err != nil {
			log.Warnf("upload of %q failed: %v", u.file.Name, u.err)
			result.FailedFiles = append(result.FailedFiles, FailedFile{Name: u.file.Name, Reason: u.err.Error()})
		}
	}
	result.SuccessfulUploads = len(succeeded)

	if len(succeeded) == 0 {
		result.enter(StateAllFailed)
		return result, propdesk_errors.ErrAllUploadsFailed
	}
	if len(result.FailedFiles) > 0 {
		result.enter(StatePartialFailure)
	}

	result.enter(StateCommittingMetadata)
	rows := lo.Map(succeeded, func(u uploadOutcome, _ int) attachment.NewRow {
		return attachment.NewRow{
			ProjectID:   projectID,
			UserID:      req.OwnerID,
			FileName:    u.file.Name,
			StoragePath: u.path,
			MimeType:    u.file.ContentType,
			SizeBytes:   u.file.Size,
		}
	})
	inserted, err := o.gateway.InsertMetadata(ctx, rows)
	if err != nil {
		paths := lo.Map(succeeded, func(u uploadOutcome, _ int) string { return u.path })
		cleanupErr := o.gateway.RemoveObjects(ctx, paths)
		o.metrics.RecordCompensation(cleanupErr)
		if cleanupErr != nil {
			log.Errorf("compensation after metadata failure left objects behind: %v", cleanupErr)
		}
		log.Errorf("attachment metadata insert failed for project %s: %v", projectID, err)
		result.enter(StateFailed)
		return result, err
	}
	result.Attachments = inserted
	view.merge(inserted)

	result.enter(StateNotifying)
	if o.notifier != nil {
		o.notifier.NotifyAttachments(ctx, projectID)
	}
	if o.changes != nil {
		o.changes.AttachmentsChanged(ctx, projectID, view.Len())
	}

	result.enter(StateDone)
	log.Infof("uploaded %d of %d files to project %s", result.SuccessfulUploads, result.Processed, projectID)
	return result, nil
}

// uploadAll writes every file, one at a time unless more concurrency is
// configured. Outcomes keep the input order.
func (o *AttachmentOrchestrator) uploadAll(ctx context.Context, ownerID, projectID string, files []FileUpload) []uploadOutcome {
	outcomes := make([]uploadOutcome, len(files))
	if o.cfg.Concurrency <= 1 {
		for i, f := range files {
			outcomes[i] = o.uploadOne(ctx, ownerID, projectID, f)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			outcomes[i] = o.uploadOne(ctx, ownerID, projectID, f)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *AttachmentOrchestrator) uploadOne(ctx context.Context, ownerID, projectID string, f FileUpload) uploadOutcome {
	out := uploadOutcome{file: f}
	if o.cfg.MaxBytes > 0 && f.Size > o.cfg.MaxBytes {
		out.err = fmt.Errorf("%w: %d bytes exceeds %d", propdesk_errors.ErrTooLarge, f.Size, o.cfg.MaxBytes)
		return out
	}
	if f.Open == nil {
		out.err = fmt.Errorf("%w: no content", propdesk_errors.ErrInvalidInput)
		return out
	}
	body, err := f.Open()
	if err != nil {
		out.err = fmt.Errorf("open %s: %w", f.Name, err)
		return out
	}
	defer body.Close()

	out.path, out.err = o.gateway.PutObject(ctx, ownerID, projectID, f.Name, f.ContentType, body, f.Size)
	return out
}

// Delete removes one attachment of the view. The view changes only when
// both the object and the row are gone.
func (o *AttachmentOrchestrator) Delete(ctx context.Context, view *AttachmentView, attachmentID, ownerID string) error {
	if !view.begin() {
		return fmt.Errorf("%w: another attachment operation is in progress", propdesk_errors.ErrConflict)
	}
	defer view.end()

	a, ok := view.Find(attachmentID)
	if !ok {
		return propdesk_errors.ErrNotFound
	}
	if ownerID == "" || a.UserID != ownerID {
		return propdesk_errors.ErrForbidden
	}
	if err := o.gateway.DeleteAttachment(ctx, a); err != nil {
		o.log.Ctx(ctx).Errorf("delete attachment %s: %v", attachmentID, err)
		return err
	}
	view.remove(attachmentID)

	projectID := view.ProjectID()
	if o.notifier != nil {
		o.notifier.NotifyAttachments(ctx, projectID)
	}
	if o.changes != nil {
		o.changes.AttachmentsChanged(ctx, projectID, view.Len())
	}
	return nil
}

// Download returns a presigned URL for an attachment of an owned project.
func (o *AttachmentOrchestrator) Download(ctx context.Context, ownerID, attachmentID string) (string, error) {
	a, err := o.gateway.GetByID(ctx, attachmentID)
	if err != nil {
		return "", err
	}
	if _, err := o.drafts.OwnedProject(ctx, ownerID, a.ProjectID); err != nil {
		return "", err
	}
	return o.gateway.PresignDownload(ctx, a)
}
