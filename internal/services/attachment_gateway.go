package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"propdesk/internal/domain/attachment"
	"propdesk/internal/metrics"
	"propdesk/internal/repository"
	"propdesk/internal/storage"
	propdesk_errors "propdesk/pkg/errors"
	"propdesk/pkg/filename"
	"propdesk/pkg/logger"
)

// AttachmentGateway is the only component that talks to the attachment
// bucket and the project_attachments table.
type AttachmentGateway struct {
	store   storage.ObjectStore
	repo    repository.AttachmentRepository
	urls    URLCache
	metrics *metrics.Recorder
	log     *logger.Logger
	now     func() time.Time

	stampMu   sync.Mutex
	lastStamp int64
}

// URLCache stores presigned download URLs by storage path.
type URLCache interface {
	GetURL(ctx context.Context, storagePath string) (string, bool, error)
	SetURL(ctx context.Context, storagePath, url string) error
	Invalidate(ctx context.Context, storagePath string) error
}

func NewAttachmentGateway(store storage.ObjectStore, repo repository.AttachmentRepository, rec *metrics.Recorder, l *logger.Logger) *AttachmentGateway {
	if l == nil {
		l = logger.Nop()
	}
	return &AttachmentGateway{store: store, repo: repo, metrics: rec, log: l, now: time.Now}
}

// WithURLCache makes PresignDownload reuse cached URLs.
func (g *AttachmentGateway) WithURLCache(c URLCache) *AttachmentGateway {
	g.urls = c
	return g
}

// ObjectPath builds the storage key {owner}/{project}/{unixMillis}-{name}.
func ObjectPath(ownerID, projectID, fileName string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%d-%s", ownerID, projectID, at.UnixMilli(), filename.Sanitize(fileName))
}

// nextStamp returns the key timestamp for a new object. Stamps are strictly
// increasing per gateway so files sanitized to the same name never share a
// key.
func (g *AttachmentGateway) nextStamp() time.Time {
	g.stampMu.Lock()
	defer g.stampMu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.lastStamp {
		ms = g.lastStamp + 1
	}
	g.lastStamp = ms
	return time.UnixMilli(ms)
}

// PutObject uploads one file and returns its storage path. Writes never
// overwrite an existing object.
func (g *AttachmentGateway) PutObject(ctx context.Context, ownerID, projectID, fileName, contentType string, body io.Reader, size int64) (string, error) {
	if g.store == nil {
		return "", fmt.Errorf("%w: storage is not configured", propdesk_errors.ErrStorageWrite)
	}
	path := ObjectPath(ownerID, projectID, fileName, g.nextStamp())

	start := time.Now()
	err := g.store.PutObject(ctx, path, contentType, body, size)
	g.metrics.RecordUpload(time.Since(start), size, err)
	if err != nil {
		if errors.Is(err, storage.ErrPreconditionFailed) {
			return "", fmt.Errorf("%w: %s: %w", propdesk_errors.ErrStorageWrite, path, propdesk_errors.ErrAlreadyExists)
		}
		return "", fmt.Errorf("%w: %s: %v", propdesk_errors.ErrStorageWrite, path, err)
	}
	return path, nil
}

// RemoveObjects deletes every path, continuing past individual failures.
func (g *AttachmentGateway) RemoveObjects(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if g.store == nil {
		return fmt.Errorf("%w: storage is not configured", propdesk_errors.ErrStorageDelete)
	}
	var errs []error
	for _, p := range paths {
		if err := g.store.DeleteObject(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %v", p, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", propdesk_errors.ErrStorageDelete, errors.Join(errs...))
	}
	return nil
}

func (g *AttachmentGateway) InsertMetadata(ctx context.Context, rows []attachment.NewRow) ([]attachment.Attachment, error) {
	inserted, err := g.repo.InsertBatch(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", propdesk_errors.ErrMetadataWrite, err)
	}
	return inserted, nil
}

func (g *AttachmentGateway) DeleteMetadata(ctx context.Context, id string) error {
	if err := g.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", propdesk_errors.ErrMetadataDelete, err)
	}
	return nil
}

func (g *AttachmentGateway) ListByProject(ctx context.Context, projectID string) ([]attachment.Attachment, error) {
	return g.repo.ListByProject(ctx, projectID)
}

func (g *AttachmentGateway) GetByID(ctx context.Context, id string) (attachment.Attachment, error) {
	return g.repo.GetByID(ctx, id)
}

// DeleteAttachment removes the stored object and then the metadata row. A
// failed object removal is logged and does not stop the row delete, which
// may leave an orphaned object behind.
func (g *AttachmentGateway) DeleteAttachment(ctx context.Context, a attachment.Attachment) error {
	if err := g.RemoveObjects(ctx, []string{a.StoragePath}); err != nil {
		g.log.Ctx(ctx).Warnf("attachment %s: object removal failed, continuing: %v", a.ID, err)
	}
	if g.urls != nil {
		if err := g.urls.Invalidate(ctx, a.StoragePath); err != nil {
			g.log.Ctx(ctx).Debugf("attachment %s: drop cached url: %v", a.ID, err)
		}
	}
	err := g.DeleteMetadata(ctx, a.ID)
	g.metrics.RecordDeletion(err)
	if err != nil {
		return fmt.Errorf("%w: %w", propdesk_errors.ErrDeletion, err)
	}
	return nil
}

// PresignDownload returns a short-lived URL for reading the stored object.
func (g *AttachmentGateway) PresignDownload(ctx context.Context, a attachment.Attachment) (string, error) {
	if g.store == nil {
		return "", propdesk_errors.ErrServiceUnavailable
	}
	if g.urls != nil {
		if url, ok, err := g.urls.GetURL(ctx, a.StoragePath); err == nil && ok {
			return url, nil
		}
	}
	url, err := g.store.PresignGet(ctx, a.StoragePath)
	if err != nil {
		return "", err
	}
	if g.urls != nil {
		if err := g.urls.SetURL(ctx, a.StoragePath, url); err != nil {
			g.log.Ctx(ctx).Debugf("attachment %s: cache url: %v", a.ID, err)
		}
	}
	return url, nil
}
