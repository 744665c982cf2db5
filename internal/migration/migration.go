package migration

import (
	"context"

	"gopairs/internal/errors"

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

var _ Migrator = (*MigrationRunner)(nil)

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

// Statements returns the schema DDL in execution order
func (r *MigrationRunner) Statements() []Step {
	return []Step{
		{"screening_runs table", createScreeningRunsTable},
		{"cointegration_results table", createCointegrationResultsTable},
		{"distance_results table", createDistanceResultsTable},
		{"skipped_pairs table", createSkippedPairsTable},
		{"indexes", createIndexes},
	}
}

// Step is one named DDL statement
type Step struct {
	Name string
	SQL  string
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.Statements() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.DatabaseError("failed to create "+step.Name, err)
		}
	}
	return nil
}

const createScreeningRunsTable = `
	CREATE TABLE IF NOT EXISTS screening_runs (
		id UUID PRIMARY KEY,
		method VARCHAR(32) NOT NULL,
		options JSONB NOT NULL,
		table_fingerprint VARCHAR(64) NOT NULL,
		evaluated INTEGER NOT NULL DEFAULT 0,
		qualified INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`

const createCointegrationResultsTable = `
	CREATE TABLE IF NOT EXISTS cointegration_results (
		run_id UUID NOT NULL REFERENCES screening_runs(id) ON DELETE CASCADE,
		ordinal INTEGER NOT NULL,
		first_id TEXT NOT NULL,
		second_id TEXT NOT NULL,
		p_value DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ordinal)
	)`

const createDistanceResultsTable = `
	CREATE TABLE IF NOT EXISTS distance_results (
		run_id UUID NOT NULL REFERENCES screening_runs(id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		first_id TEXT NOT NULL,
		second_id TEXT NOT NULL,
		first_index INTEGER NOT NULL,
		second_index INTEGER NOT NULL,
		PRIMARY KEY (run_id, rank)
	)`

const createSkippedPairsTable = `
	CREATE TABLE IF NOT EXISTS skipped_pairs (
		run_id UUID NOT NULL REFERENCES screening_runs(id) ON DELETE CASCADE,
		ordinal INTEGER NOT NULL,
		first_id TEXT NOT NULL,
		second_id TEXT NOT NULL,
		code VARCHAR(32) NOT NULL,
		reason TEXT NOT NULL,
		PRIMARY KEY (run_id, ordinal)
	)`

const createIndexes = `
	CREATE INDEX IF NOT EXISTS idx_screening_runs_created_at ON screening_runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_screening_runs_fingerprint ON screening_runs(table_fingerprint)`
