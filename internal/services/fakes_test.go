package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"propdesk/internal/domain/attachment"
	"propdesk/internal/domain/project"
	"propdesk/internal/storage"
	propdesk_errors "propdesk/pkg/errors"
)

// fakeStore is an in-memory bucket. Writing an existing key fails with
// storage.ErrPreconditionFailed. Keys containing a string from failPut fail
// to upload; keys in failDelete, or any key when failAllDeletes is set, fail
// to delete.
type fakeStore struct {
	mu             sync.Mutex
	objects        map[string][]byte
	failPut        []string
	failDelete     map[string]bool
	failAllDeletes bool
	puts           int
	deletes        []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, failDelete: map[string]bool{}}
}

func (s *fakeStore) PutObject(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	for _, f := range s.failPut {
		if strings.Contains(key, f) {
			return errors.New("upstream 500")
		}
	}
	if _, exists := s.objects[key]; exists {
		return storage.ErrPreconditionFailed
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	if s.failAllDeletes || s.failDelete[key] {
		return errors.New("delete refused")
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

type fakeAttachmentRepo struct {
	mu        sync.Mutex
	items     []attachment.Attachment
	seq       int
	batches   [][]attachment.NewRow
	insertErr error
	deleteErr error
	listErr   error
}

func (r *fakeAttachmentRepo) InsertBatch(_ context.Context, rows []attachment.NewRow) ([]attachment.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, rows)
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	out := make([]attachment.Attachment, 0, len(rows))
	for _, row := range rows {
		r.seq++
		a := attachment.Attachment{
			ID:          fmt.Sprintf("att-%d", r.seq),
			ProjectID:   row.ProjectID,
			UserID:      row.UserID,
			FileName:    row.FileName,
			StoragePath: row.StoragePath,
			MimeType:    row.MimeType,
			SizeBytes:   row.SizeBytes,
			CreatedAt:   time.Now(),
		}
		r.items = append(r.items, a)
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAttachmentRepo) GetByID(_ context.Context, id string) (attachment.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ID == id {
			return a, nil
		}
	}
	return attachment.Attachment{}, propdesk_errors.ErrNotFound
}

func (r *fakeAttachmentRepo) ListByProject(_ context.Context, projectID string) ([]attachment.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []attachment.Attachment{}
	for _, a := range r.items {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttachmentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i, a := range r.items {
		if a.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return propdesk_errors.ErrNotFound
}

// seed adds existing attachments for projectID owned by userID.
func (r *fakeAttachmentRepo) seed(projectID, userID string, n int) []attachment.Attachment {
	rows := make([]attachment.NewRow, n)
	for i := range rows {
		rows[i] = attachment.NewRow{
			ProjectID:   projectID,
			UserID:      userID,
			FileName:    fmt.Sprintf("existing-%d.pdf", i+1),
			StoragePath: fmt.Sprintf("%s/%s/0-existing-%d.pdf", userID, projectID, i+1),
		}
	}
	out, _ := r.InsertBatch(context.Background(), rows)
	r.batches = nil
	return out
}

type fakeProjectRepo struct {
	mu          sync.Mutex
	projects    map[string]project.Project
	seq         int
	createCalls int
	createErr   error
	submitted   []string
	deleted     []string
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: map[string]project.Project{}}
}

func (r *fakeProjectRepo) add(p project.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Status == "" {
		p.Status = project.StatusDraft
	}
	r.projects[p.ID] = p
}

func (r *fakeProjectRepo) CreateDraft(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return "", r.createErr
	}
	r.seq++
	id := fmt.Sprintf("proj-%d", r.seq)
	r.projects[id] = project.Project{ID: id, UserID: userID, Fields: map[string]string{}, Status: project.StatusDraft}
	return id, nil
}

func (r *fakeProjectRepo) Create(_ context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	p.ID = fmt.Sprintf("proj-%d", r.seq)
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.projects[p.ID] = *p
	return nil
}

func (r *fakeProjectRepo) Update(_ context.Context, p project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.projects[p.ID]
	if !ok || cur.UserID != p.UserID {
		return propdesk_errors.ErrNotFound
	}
	r.projects[p.ID] = p
	return nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id string) (project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return project.Project{}, propdesk_errors.ErrNotFound
	}
	return p, nil
}

func (r *fakeProjectRepo) ListByOwner(_ context.Context, userID string) ([]project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []project.Project{}
	for _, p := range r.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) UpdateBudget(_ context.Context, id, userID, markdown string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return propdesk_errors.ErrNotFound
	}
	p.BudgetMarkdown = markdown
	r.projects[id] = p
	return nil
}

func (r *fakeProjectRepo) MarkSubmitted(_ context.Context, id, userID string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return propdesk_errors.ErrNotFound
	}
	p.Status = project.StatusSubmitted
	r.projects[id] = p
	r.submitted = append(r.submitted, id)
	return nil
}

func (r *fakeProjectRepo) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.UserID != userID {
		return propdesk_errors.ErrNotFound
	}
	delete(r.projects, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	attachments []string
	submissions []string
}

func (n *fakeNotifier) NotifyAttachments(_ context.Context, projectID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attachments = append(n.attachments, projectID)
}

func (n *fakeNotifier) NotifySubmission(_ context.Context, userID, projectID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submissions = append(n.submissions, userID+"/"+projectID)
}

type fakeChanges struct {
	counts    map[string]int
	submitted []string
}

func (c *fakeChanges) AttachmentsChanged(_ context.Context, projectID string, count int) {
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[projectID] = count
}

func (c *fakeChanges) ProjectSubmitted(_ context.Context, projectID, _ string) {
	c.submitted = append(c.submitted, projectID)
}

func memFile(name, content string) FileUpload {
	return FileUpload{
		Name:        name,
		ContentType: "application/octet-stream",
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}
