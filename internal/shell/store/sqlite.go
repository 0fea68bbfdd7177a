package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"github.com/stackup-dev/stackup/internal/core/report"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Run Operations
// =============================================================================

// runRow represents a run row in the database. The per-phase results are
// stored as a YAML document in the same format as the summary file.
type runRow struct {
	ID             string `db:"id"`
	Environment    string `db:"environment"`
	OverallSuccess bool   `db:"overall_success"`
	ExitCode       int    `db:"exit_code"`
	Requested      int    `db:"phases_requested"`
	Results        string `db:"results"`
	StartedAt      string `db:"started_at"`
	FinishedAt     string `db:"finished_at"`
}

// SaveRun persists one run summary.
func (s *SQLiteStore) SaveRun(ctx context.Context, environment string, summary report.Summary) error {
	results, err := yaml.Marshal(summary.Results)
	if err != nil {
		return NewStoreError("SaveRun", summary.RunID, "failed to serialize results", ErrInvalidData)
	}

	row := runRow{
		ID:             summary.RunID,
		Environment:    environment,
		OverallSuccess: summary.OverallSuccess,
		ExitCode:       summary.ExitCode,
		Requested:      summary.Requested,
		Results:        string(results),
		StartedAt:      summary.StartedAt.UTC().Format(time.RFC3339Nano),
		FinishedAt:     summary.FinishedAt.UTC().Format(time.RFC3339Nano),
	}

	query := `
		INSERT INTO runs (id, environment, overall_success, exit_code,
			phases_requested, results, started_at, finished_at)
		VALUES (:id, :environment, :overall_success, :exit_code,
			:phases_requested, :results, :started_at, :finished_at)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return NewStoreError("SaveRun", summary.RunID, "run already recorded", ErrDuplicateID)
		}
		return NewStoreError("SaveRun", summary.RunID, err.Error(), err)
	}
	return nil
}

// GetRun fetches one run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetRun", runID, "not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetRun", runID, err.Error(), err)
	}
	return rowToRun(row)
}

// ListRuns returns runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	opts = opts.Normalize()

	var rows []runRow
	query := `SELECT * FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListRuns", "", err.Error(), err)
	}

	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		run, err := rowToRun(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func rowToRun(row runRow) (*Run, error) {
	var results []report.PhaseResult
	if err := yaml.Unmarshal([]byte(row.Results), &results); err != nil {
		return nil, NewStoreError("rowToRun", row.ID, "failed to parse results", ErrInvalidData)
	}

	startedAt, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return nil, NewStoreError("rowToRun", row.ID, "failed to parse started_at", ErrInvalidData)
	}
	finishedAt, err := time.Parse(time.RFC3339Nano, row.FinishedAt)
	if err != nil {
		return nil, NewStoreError("rowToRun", row.ID, "failed to parse finished_at", ErrInvalidData)
	}

	return &Run{
		Environment: row.Environment,
		Summary: report.Summary{
			RunID:          row.ID,
			OverallSuccess: row.OverallSuccess,
			ExitCode:       row.ExitCode,
			Requested:      row.Requested,
			Results:        results,
			StartedAt:      startedAt,
			FinishedAt:     finishedAt,
		},
	}, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
