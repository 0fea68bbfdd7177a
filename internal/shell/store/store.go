package store

import (
	"context"

	"github.com/stackup-dev/stackup/internal/core/report"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store is the persistence interface for deployment run history. History is
// informational only: no orchestration decision reads it.
type Store interface {
	SaveRun(ctx context.Context, environment string, summary report.Summary) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, opts ListOptions) ([]Run, error)

	Close() error
}

// Run is one recorded deployment run.
type Run struct {
	Summary     report.Summary
	Environment string
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination for history listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  20,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
