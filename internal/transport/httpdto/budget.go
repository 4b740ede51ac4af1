package httpdto

import "propdesk/internal/budget"

// SaveBudgetRequest is used for PUT /projects/:id/budget
type SaveBudgetRequest struct {
	Rows []budget.Row `json:"rows"`
}

type BudgetResponse struct {
	Columns  [3]string    `json:"columns"`
	Rows     []budget.Row `json:"rows"`
	Markdown string       `json:"markdown"`
}

func NewBudgetResponse(rows []budget.Row) BudgetResponse {
	if rows == nil {
		rows = []budget.Row{}
	}
	return BudgetResponse{Columns: budget.Columns, Rows: rows, Markdown: budget.Encode(rows)}
}
