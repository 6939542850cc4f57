package migration

import (
	"context"

	"cropadvisor/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The DDL sticks to
// types both PostgreSQL and SQLite accept so the same runner serves the
// production database and local or test SQLite files.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createFarmersTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create farmers table")
	}

	if err := r.createRecommendationsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create recommendations table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createFarmersTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS farmers (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			contact VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL DEFAULT '',
			location VARCHAR(255) NOT NULL DEFAULT '',
			crops_grown TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createRecommendationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS recommendations (
			id VARCHAR(36) PRIMARY KEY,
			farmer_id VARCHAR(36) NOT NULL REFERENCES farmers(id) ON DELETE CASCADE,
			observation TEXT NOT NULL,
			features TEXT NOT NULL,
			result TEXT NOT NULL,
			top_crop VARCHAR(100) NOT NULL,
			confidence_percent DOUBLE PRECISION NOT NULL,
			model_version VARCHAR(100) NOT NULL,
			source VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_farmers_created_at ON farmers(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_farmer_created ON recommendations(farmer_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_top_crop ON recommendations(top_crop)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
