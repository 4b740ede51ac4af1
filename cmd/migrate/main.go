package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"propdesk/config"
	"propdesk/pkg/database"
)

const usage = `
Propdesk - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Apply all pending migrations
  down        Roll back all migrations
  status      Show migration status and table counts
  seed        Insert demo draft projects
  truncate    Empty every application table (DANGEROUS)

Flags:
  -owner string   Owner id for seeded projects (default "00000000-0000-0000-0000-000000000001")
  -count int      Number of projects to seed (default 2)

Examples:
  go run ./cmd/migrate up
  go run ./cmd/migrate seed -owner 6f1c...
  go run ./cmd/migrate down
`

func main() {
	defaults := database.DefaultSeedConfig()
	owner := flag.String("owner", defaults.OwnerID, "Owner id for seeded projects")
	count := flag.Int("count", defaults.Projects, "Number of projects to seed")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)
	defer database.Close()

	ctx := context.Background()

	switch command {
	case "up":
		runMigrationsUp(ctx)
	case "down":
		runMigrationsDown(ctx)
	case "status":
		showStatus(ctx)
	case "seed":
		runSeed(ctx, &database.SeedConfig{OwnerID: *owner, Projects: *count})
	case "truncate":
		runTruncate(ctx)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(ctx context.Context) {
	log.Println("Running migrations UP...")
	if err := database.RunMigrations(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func runMigrationsDown(ctx context.Context) {
	log.Println("Rolling back migrations...")
	if err := database.RollbackMigrations(ctx); err != nil {
		log.Fatalf("Rollback failed: %v", err)
	}
	log.Println("Rollback completed successfully")
}

func showStatus(ctx context.Context) {
	if err := database.Ping(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	if err := database.MigrationStatus(ctx); err != nil {
		log.Printf("Migration status unavailable: %v", err)
	}

	for _, table := range []string{"projects", "project_attachments"} {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if !exists {
			log.Printf("Table %s: missing", table)
			continue
		}
		n, err := database.GetTableCount(table)
		if err != nil {
			log.Printf("Error counting %s: %v", table, err)
			continue
		}
		log.Printf("Table %s: %d rows", table, n)
	}
}

func runSeed(ctx context.Context, cfg *database.SeedConfig) {
	ids, err := database.Seed(ctx, database.DB, cfg)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	for _, id := range ids {
		log.Printf("  project %s", id)
	}
}

func runTruncate(ctx context.Context) {
	log.Println("Truncating all tables...")
	if err := database.Truncate(ctx, database.DB); err != nil {
		log.Fatalf("Truncate failed: %v", err)
	}
	log.Println("Tables truncated")
}
