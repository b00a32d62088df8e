package migration

import (
	"context"

	"goviper/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
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
	for _, step := range r.Steps() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to %s", step.Name))
		}
	}
	return nil
}

// Step is one idempotent schema statement
type Step struct {
	Name string
	SQL  string
}

// Steps lists the schema statements in execution order
func (r *MigrationRunner) Steps() []Step {
	return []Step{
		{Name: "create activity_runs table", SQL: `
		CREATE TABLE IF NOT EXISTS activity_runs (
			id VARCHAR(64) PRIMARY KEY,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			options JSONB NOT NULL,
			calibrated BOOLEAN NOT NULL DEFAULT false,
			bootstrap BOOLEAN NOT NULL DEFAULT false,
			regulators INTEGER NOT NULL,
			samples INTEGER NOT NULL,
			warnings JSONB,
			fingerprint VARCHAR(64) NOT NULL
		)`},
		{Name: "create activity_scores table", SQL: `
		CREATE TABLE IF NOT EXISTS activity_scores (
			id BIGSERIAL PRIMARY KEY,
			run_id VARCHAR(64) NOT NULL REFERENCES activity_runs(id) ON DELETE CASCADE,
			regulator VARCHAR(255) NOT NULL,
			sample VARCHAR(255) NOT NULL,
			es DOUBLE PRECISION,
			nes DOUBLE PRECISION NOT NULL,
			sd DOUBLE PRECISION,
			UNIQUE (run_id, regulator, sample)
		)`},
		{Name: "create indexes", SQL: `
		CREATE INDEX IF NOT EXISTS idx_activity_runs_created_at ON activity_runs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_activity_scores_run_id ON activity_scores(run_id);
		CREATE INDEX IF NOT EXISTS idx_activity_scores_regulator ON activity_scores(regulator)`},
	}
}
