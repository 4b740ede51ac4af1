package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"propdesk/internal/budget"
	"propdesk/internal/domain/project"
	"propdesk/internal/repository"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	OwnerID  string
	Projects int
}

func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		OwnerID:  "00000000-0000-0000-0000-000000000001",
		Projects: 2,
	}
}

var demoBudget = []budget.Row{
	{Item: "Materiais", Description: "Sementes e ferramentas", Value: "1.250,00"},
	{Item: "Divulgação", Description: "Cartazes | panfletos", Value: "300,00"},
}

// Seed inserts demo draft projects for cfg.OwnerID and returns their ids.
func Seed(ctx context.Context, db *sql.DB, cfg *SeedConfig) ([]string, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	repo := repository.NewProjectRepository(db)

	ids := make([]string, 0, cfg.Projects)
	for i := 1; i <= cfg.Projects; i++ {
		p := &project.Project{
			UserID:         cfg.OwnerID,
			ProjectName:    sql.NullString{String: fmt.Sprintf("Projeto de demonstração %d", i), Valid: true},
			Fields:         map[string]string{"justificativa": "Projeto criado pelo seed de desenvolvimento."},
			BudgetMarkdown: budget.Encode(demoBudget),
			Status:         project.StatusDraft,
		}
		if err := repo.Create(ctx, p); err != nil {
			return ids, fmt.Errorf("seed project %d: %w", i, err)
		}
		ids = append(ids, p.ID)
	}
	log.Printf("Seeded %d projects for %s", len(ids), cfg.OwnerID)
	return ids, nil
}

// Truncate empties every application table.
func Truncate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := db.ExecContext(ctx, "TRUNCATE project_attachments, projects")
	return err
}
