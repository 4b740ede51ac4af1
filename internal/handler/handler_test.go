package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"propdesk/internal/budget"
	"propdesk/internal/domain/attachment"
	"propdesk/internal/domain/project"
	"propdesk/internal/services"
	propdesk_errors "propdesk/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuota = 5

type memProjects struct {
	mu    sync.Mutex
	items map[string]project.Project
}

func (r *memProjects) CreateDraft(_ context.Context, userID string) (string, error) {
	p := &project.Project{UserID: userID, Status: project.StatusDraft}
	if err := r.Create(context.Background(), p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (r *memProjects) Create(_ context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.items[p.ID] = *p
	return nil
}

func (r *memProjects) Update(_ context.Context, p project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
	return nil
}

func (r *memProjects) GetByID(_ context.Context, id string) (project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return project.Project{}, propdesk_errors.ErrNotFound
	}
	return p, nil
}

func (r *memProjects) ListByOwner(_ context.Context, userID string) ([]project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []project.Project{}
	for _, p := range r.items {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProjects) UpdateBudget(_ context.Context, id, _, markdown string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.items[id]
	p.BudgetMarkdown = markdown
	r.items[id] = p
	return nil
}

func (r *memProjects) MarkSubmitted(_ context.Context, id, _ string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.items[id]
	p.Status = project.StatusSubmitted
	r.items[id] = p
	return nil
}

func (r *memProjects) Delete(_ context.Context, id, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type memAttachments struct {
	mu    sync.Mutex
	items []attachment.Attachment
}

func (r *memAttachments) InsertBatch(_ context.Context, rows []attachment.NewRow) ([]attachment.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]attachment.Attachment, 0, len(rows))
	for _, row := range rows {
		a := attachment.Attachment{
			ID:          uuid.NewString(),
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

func (r *memAttachments) GetByID(_ context.Context, id string) (attachment.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ID == id {
			return a, nil
		}
	}
	return attachment.Attachment{}, propdesk_errors.ErrNotFound
}

func (r *memAttachments) ListByProject(_ context.Context, projectID string) ([]attachment.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []attachment.Attachment{}
	for _, a := range r.items {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAttachments) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.items {
		if a.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return propdesk_errors.ErrNotFound
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) PutObject(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://bucket.example/" + key, nil
}

type testAPI struct {
	router      *gin.Engine
	projects    *memProjects
	attachments *memAttachments
	store       *memStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := &testAPI{
		projects:    &memProjects{items: map[string]project.Project{}},
		attachments: &memAttachments{},
		store:       &memStore{objects: map[string][]byte{}},
	}
	gateway := services.NewAttachmentGateway(api.store, api.attachments, nil, nil)
	drafts := services.NewDraftMaterializer(api.projects)
	orchestrator := services.NewAttachmentOrchestrator(gateway, drafts, nil, nil, nil,
		services.OrchestratorConfig{Quota: testQuota, MaxBytes: 1 << 20}, nil)
	projectService := services.NewProjectService(api.projects, gateway, nil, nil, nil)

	projects := NewProjectHandler(projectService, orchestrator, testQuota)
	attachments := NewAttachmentHandler(orchestrator, projectService, testQuota, 1<<20)
	enhance := NewEnhanceHandler()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Request = c.Request.WithContext(services.WithUserContext(c.Request.Context(), user))
		}
		c.Next()
	})
	r.GET("/projects", projects.List)
	r.POST("/projects", projects.Create)
	r.GET("/projects/:id", projects.Get)
	r.PUT("/projects/:id", projects.Update)
	r.DELETE("/projects/:id", projects.Delete)
	r.POST("/projects/:id/submit", projects.Submit)
	r.GET("/projects/:id/budget", projects.GetBudget)
	r.PUT("/projects/:id/budget", projects.SaveBudget)
	r.GET("/projects/:id/attachments", projects.ListAttachments)
	r.POST("/attachments", attachments.Upload)
	r.DELETE("/attachments/:id", attachments.Delete)
	r.GET("/attachments/:id/download", attachments.Download)
	r.POST("/enhance", enhance.Enhance)
	api.router = r
	return api
}

func (a *testAPI) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) upload(t *testing.T, user string, fields map[string]string, files ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Test-User", user)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestProjectHandler_RequiresUser(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/projects", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestProjectHandler_CreateGetAndList(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/projects", "u1", map[string]any{
		"project_name": "Horta comunitária",
		"fields":       map[string]string{"justificativa": "porque sim", "objetivos": ""},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID     string            `json:"id"`
		Fields map[string]string `json:"fields"`
		Status string            `json:"status"`
	}
	decode(t, w, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, map[string]string{"justificativa": "porque sim"}, created.Fields)
	assert.Equal(t, "draft", created.Status)

	w = api.do(t, http.MethodGet, "/projects/"+created.ID, "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/projects/"+created.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	api.do(t, http.MethodPost, "/projects", "u1", map[string]any{})
	w = api.do(t, http.MethodGet, "/projects", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Projects []struct {
			ProjectName string `json:"project_name"`
		} `json:"projects"`
		Total int `json:"total"`
	}
	decode(t, w, &list)
	assert.Equal(t, 2, list.Total)
	names := []string{list.Projects[0].ProjectName, list.Projects[1].ProjectName}
	assert.ElementsMatch(t, []string{"Horta comunitária", "Projeto sem nome"}, names)
}

func TestProjectHandler_InvalidID(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/projects/not-a-uuid", "u1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w, nil).Code)
}

func TestProjectHandler_SubmitLocksProject(t *testing.T) {
	api := newTestAPI(t)
	p := &project.Project{UserID: "u1", Status: project.StatusDraft}
	require.NoError(t, api.projects.Create(context.Background(), p))

	w := api.do(t, http.MethodPost, "/projects/"+p.ID+"/submit", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/projects/"+p.ID+"/submit", "u1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPut, "/projects/"+p.ID, "u1", map[string]any{"project_name": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w, nil).Code)
}

func TestProjectHandler_BudgetRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	p := &project.Project{UserID: "u1", Status: project.StatusDraft}
	require.NoError(t, api.projects.Create(context.Background(), p))

	w := api.do(t, http.MethodPut, "/projects/"+p.ID+"/budget", "u1", map[string]any{
		"rows": []map[string]string{{"item": "Sementes", "description": "Kit | variado", "value": "150,00"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/projects/"+p.ID+"/budget", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Columns  []string     `json:"columns"`
		Rows     []budget.Row `json:"rows"`
		Markdown string       `json:"markdown"`
	}
	decode(t, w, &res)
	assert.Equal(t, []string{"Item", "Descrição", "Valor (R$)"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Sementes", res.Rows[0].Item)
	assert.Equal(t, "Kit | variado", res.Rows[0].Description)
	assert.Equal(t, "150,00", res.Rows[0].Value)
	assert.Contains(t, api.projects.items[p.ID].BudgetMarkdown, "Sementes")
}

func TestAttachmentHandler_UploadCreatesDraft(t *testing.T) {
	api := newTestAPI(t)

	w := api.upload(t, "u1", map[string]string{"project_name": "Biblioteca"}, "a.pdf", "b.pdf")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		State             string `json:"state"`
		ProjectID         string `json:"project_id"`
		SuccessfulUploads int    `json:"successful_uploads"`
		Total             int    `json:"total"`
		Quota             int    `json:"quota"`
		Complete          bool   `json:"complete"`
	}
	decode(t, w, &res)
	assert.Equal(t, "done", res.State)
	assert.Equal(t, 2, res.SuccessfulUploads)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, testQuota, res.Quota)
	assert.True(t, res.Complete)

	p, err := api.projects.GetByID(context.Background(), res.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "Biblioteca", p.ProjectName.String)
	assert.Len(t, api.store.objects, 2)
}

func TestAttachmentHandler_UploadQuotaExhausted(t *testing.T) {
	api := newTestAPI(t)
	p := &project.Project{UserID: "u1", Status: project.StatusDraft}
	require.NoError(t, api.projects.Create(context.Background(), p))
	for i := 0; i < testQuota; i++ {
		_, err := api.attachments.InsertBatch(context.Background(), []attachment.NewRow{{ProjectID: p.ID, UserID: "u1", FileName: "x.pdf"}})
		require.NoError(t, err)
	}

	w := api.upload(t, "u1", map[string]string{"project_id": p.ID}, "extra.pdf")

	assert.Equal(t, http.StatusConflict, w.Code)
	var res struct {
		State string `json:"state"`
	}
	env := decode(t, w, &res)
	assert.False(t, env.Success)
	assert.Equal(t, "rejected", res.State)
	assert.Empty(t, api.store.objects)
}

func TestAttachmentHandler_UploadForeignProject(t *testing.T) {
	api := newTestAPI(t)
	p := &project.Project{UserID: "u2", Status: project.StatusDraft}
	require.NoError(t, api.projects.Create(context.Background(), p))

	w := api.upload(t, "u1", map[string]string{"project_id": p.ID}, "a.pdf")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttachmentHandler_DeleteAndDownload(t *testing.T) {
	api := newTestAPI(t)
	w := api.upload(t, "u1", nil, "a.pdf")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var uploaded struct {
		ProjectID string                  `json:"project_id"`
		Items     []attachment.Attachment `json:"items"`
	}
	decode(t, w, &uploaded)
	require.Len(t, uploaded.Items, 1)
	id := uploaded.Items[0].ID

	w = api.do(t, http.MethodGet, "/attachments/"+id+"/download", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dl struct {
		URL string `json:"url"`
	}
	decode(t, w, &dl)
	assert.Equal(t, "https://bucket.example/"+uploaded.Items[0].StoragePath, dl.URL)

	w = api.do(t, http.MethodGet, "/attachments/"+id+"/download", "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodDelete, "/attachments/"+id+"?project_id="+uploaded.ProjectID, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, w, &list)
	assert.Zero(t, list.Total)
	assert.Empty(t, api.store.objects)

	w = api.do(t, http.MethodDelete, "/attachments/"+id+"?project_id="+uploaded.ProjectID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttachmentHandler_DeleteRequiresProject(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodDelete, "/attachments/"+uuid.NewString(), "u1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnhanceHandler(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/enhance", "u1", map[string]any{"text": "curto"})
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		EnhancedText string `json:"enhanced_text"`
	}
	decode(t, w, &res)
	assert.Equal(t, services.EnhanceText("curto"), res.EnhancedText)

	w = api.do(t, http.MethodPost, "/enhance", "u1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
