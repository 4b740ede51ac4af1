package httpdto

import (
	"time"

	"propdesk/internal/budget"
	"propdesk/internal/domain/project"
)

// SaveProjectRequest is used for POST /projects and PUT /projects/:id.
// Budget is optional; omitting it keeps the stored table.
type SaveProjectRequest struct {
	ProjectName string            `json:"project_name"`
	Fields      map[string]string `json:"fields"`
	Budget      []budget.Row      `json:"budget"`
}

type ProjectResponse struct {
	ID          string            `json:"id"`
	ProjectName string            `json:"project_name,omitempty"`
	Fields      map[string]string `json:"fields"`
	Budget      []budget.Row      `json:"budget"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	SubmittedAt *time.Time        `json:"submitted_at,omitempty"`
}

// ProjectSummary is one entry of the dashboard listing.
type ProjectSummary struct {
	ID          string     `json:"id"`
	ProjectName string     `json:"project_name"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

const untitledProject = "Projeto sem nome"

func NewProjectResponse(p project.Project) ProjectResponse {
	res := ProjectResponse{
		ID:          p.ID,
		ProjectName: p.ProjectName.String,
		Fields:      p.Fields,
		Budget:      budget.Decode(p.BudgetMarkdown),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if res.Fields == nil {
		res.Fields = map[string]string{}
	}
	if p.SubmittedAt.Valid {
		at := p.SubmittedAt.Time
		res.SubmittedAt = &at
	}
	return res
}

func NewProjectSummary(p project.Project) ProjectSummary {
	s := ProjectSummary{
		ID:          p.ID,
		ProjectName: p.ProjectName.String,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
	if !p.ProjectName.Valid || s.ProjectName == "" {
		s.ProjectName = untitledProject
	}
	if p.SubmittedAt.Valid {
		at := p.SubmittedAt.Time
		s.SubmittedAt = &at
	}
	return s
}
