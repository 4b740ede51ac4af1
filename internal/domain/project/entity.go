package project

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// Project represents projects. Fields holds the free-form proposal sections
// keyed by section id; BudgetMarkdown is the persisted budget table.
type Project struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	ProjectName    sql.NullString    `json:"-"`
	Fields         map[string]string `json:"fields"`
	BudgetMarkdown string            `json:"budget_markdown"`
	Status         Status            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	SubmittedAt    sql.NullTime      `json:"-"`
}

func (p Project) IsSubmitted() bool {
	return p.Status == StatusSubmitted
}
