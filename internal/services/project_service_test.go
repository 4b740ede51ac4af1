package services

import (
	"context"
	"testing"

	"propdesk/internal/budget"
	"propdesk/internal/domain/project"
	propdesk_errors "propdesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectHarness struct {
	projects    *fakeProjectRepo
	attachments *fakeAttachmentRepo
	store       *fakeStore
	notifier    *fakeNotifier
	events      *fakeChanges
	svc         *ProjectService
}

func newProjectHarness() *projectHarness {
	h := &projectHarness{
		projects:    newFakeProjectRepo(),
		attachments: &fakeAttachmentRepo{},
		store:       newFakeStore(),
		notifier:    &fakeNotifier{},
		events:      &fakeChanges{},
	}
	gw := NewAttachmentGateway(h.store, h.attachments, nil, nil)
	h.svc = NewProjectService(h.projects, gw, h.notifier, h.events, nil)
	return h
}

func TestProjectSaveCreatesThenUpdates(t *testing.T) {
	h := newProjectHarness()
	ctx := context.Background()

	created, err := h.svc.Save(ctx, "u1", ProjectInput{
		ProjectName: "  Sensor de umidade ",
		Fields:      map[string]string{"objetivo": "medir", "vazio": ""},
		Budget:      []budget.Row{{Item: "Sensor", Description: "DHT22", Value: "35,00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "proj-1", created.ID)
	assert.Equal(t, "Sensor de umidade", created.ProjectName.String)
	assert.Equal(t, map[string]string{"objetivo": "medir"}, created.Fields)
	assert.Equal(t, project.StatusDraft, created.Status)

	updated, err := h.svc.Save(ctx, "u1", ProjectInput{ID: created.ID, Fields: map[string]string{"objetivo": "medir melhor"}})
	require.NoError(t, err)
	assert.False(t, updated.ProjectName.Valid)
	assert.Equal(t, created.BudgetMarkdown, updated.BudgetMarkdown)

	rows, err := h.svc.GetBudget(ctx, "u1", created.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "DHT22", rows[0].Description)
}

func TestProjectSaveRejectsForeignAndSubmitted(t *testing.T) {
	h := newProjectHarness()
	h.projects.add(project.Project{ID: "p1", UserID: "owner"})
	h.projects.add(project.Project{ID: "p2", UserID: "u1", Status: project.StatusSubmitted})

	_, err := h.svc.Save(context.Background(), "u1", ProjectInput{ID: "p1"})
	assert.ErrorIs(t, err, propdesk_errors.ErrNotFound)

	_, err = h.svc.Save(context.Background(), "u1", ProjectInput{ID: "p2"})
	assert.ErrorIs(t, err, propdesk_errors.ErrConflict)

	_, err = h.svc.Save(context.Background(), "", ProjectInput{})
	assert.ErrorIs(t, err, propdesk_errors.ErrMissingOwner)
}

func TestDraftSaverAlwaysInserts(t *testing.T) {
	h := newProjectHarness()
	save := h.svc.DraftSaver(ProjectInput{ID: "ignored", ProjectName: "Rascunho"})

	id, err := save(context.Background(), "u1")
	require.NoError(t, err)
	p, err := h.svc.Get(context.Background(), "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Rascunho", p.ProjectName.String)
}

func TestProjectSubmit(t *testing.T) {
	h := newProjectHarness()
	h.projects.add(project.Project{ID: "p1", UserID: "u1"})

	p, err := h.svc.Submit(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.True(t, p.IsSubmitted())
	assert.True(t, p.SubmittedAt.Valid)
	assert.Equal(t, []string{"u1/p1"}, h.notifier.submissions)
	assert.Equal(t, []string{"p1"}, h.events.submitted)

	_, err = h.svc.Submit(context.Background(), "u1", "p1")
	assert.ErrorIs(t, err, propdesk_errors.ErrConflict)
	assert.Len(t, h.notifier.submissions, 1)
}

func TestProjectDeleteRemovesObjects(t *testing.T) {
	h := newProjectHarness()
	h.projects.add(project.Project{ID: "p1", UserID: "u1"})
	seeded := h.attachments.seed("p1", "u1", 2)
	h.store.failDelete[seeded[0].StoragePath] = true

	require.NoError(t, h.svc.Delete(context.Background(), "u1", "p1"))
	assert.Equal(t, []string{seeded[0].StoragePath, seeded[1].StoragePath}, h.store.deletes)
	assert.Equal(t, []string{"p1"}, h.projects.deleted)

	assert.ErrorIs(t, h.svc.Delete(context.Background(), "u1", "p1"), propdesk_errors.ErrNotFound)
}

func TestProjectSaveBudget(t *testing.T) {
	h := newProjectHarness()
	h.projects.add(project.Project{ID: "p1", UserID: "u1"})

	rows, err := h.svc.SaveBudget(context.Background(), "u1", "p1", []budget.Row{
		{Item: "Placa", Description: "ESP32 | wifi", Value: "60"},
		{Item: "Cabo"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].ID)
	assert.Equal(t, "ESP32 | wifi", rows[0].Description)
	assert.Equal(t, 2, rows[1].ID)

	stored, _ := h.projects.GetByID(context.Background(), "p1")
	assert.Contains(t, stored.BudgetMarkdown, `ESP32 \| wifi`)

	_, err = h.svc.SaveBudget(context.Background(), "u2", "p1", nil)
	assert.ErrorIs(t, err, propdesk_errors.ErrNotFound)
}

func TestProjectListByOwner(t *testing.T) {
	h := newProjectHarness()
	h.projects.add(project.Project{ID: "p1", UserID: "u1"})
	h.projects.add(project.Project{ID: "p2", UserID: "u2"})

	items, err := h.svc.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
}
