package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackup-dev/stackup/internal/core/health"
	"github.com/stackup-dev/stackup/internal/core/report"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func testSummary(startedAt time.Time) report.Summary {
	return report.Summary{
		RunID:          uuid.NewString(),
		OverallSuccess: true,
		ExitCode:       report.ExitSuccess,
		Requested:      3,
		Results: []report.PhaseResult{
			{
				Phase:    "infrastructure",
				Success:  true,
				Duration: 12 * time.Second,
				Services: map[string]health.Status{
					"db":    health.StatusHealthy,
					"cache": health.StatusHealthy,
				},
			},
			{
				Phase:    "platform",
				Success:  true,
				Duration: 40 * time.Second,
				Services: map[string]health.Status{
					"api":    health.StatusHealthy,
					"worker": health.StatusDegraded,
				},
			},
			{
				Phase:    "edge",
				Success:  true,
				Duration: 8 * time.Second,
				Services: map[string]health.Status{
					"web":   health.StatusHealthy,
					"proxy": health.StatusHealthy,
				},
			},
		},
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Minute),
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestSaveAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	summary := testSummary(time.Now())

	err := store.SaveRun(context.Background(), "production", summary)
	require.NoError(t, err)

	run, err := store.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, "production", run.Environment)
	assert.Equal(t, summary.RunID, run.Summary.RunID)
	assert.True(t, run.Summary.OverallSuccess)
	assert.Equal(t, summary.Requested, run.Summary.Requested)
	require.Len(t, run.Summary.Results, 3)
	assert.Equal(t, "infrastructure", run.Summary.Results[0].Phase)
	assert.Equal(t, health.StatusDegraded, run.Summary.Results[1].Services["worker"])
	assert.WithinDuration(t, summary.StartedAt, run.Summary.StartedAt, time.Millisecond)
}

func TestSaveRunPreservesFailureDetail(t *testing.T) {
	store := setupTestStore(t)
	summary := report.Summary{
		RunID:          uuid.NewString(),
		OverallSuccess: false,
		ExitCode:       report.ExitFailure,
		Requested:      3,
		Results: []report.PhaseResult{
			{
				Phase:    "infrastructure",
				Success:  false,
				Duration: 90 * time.Second,
				Services: map[string]health.Status{"db": health.StatusDown},
				Failed:   []string{"db"},
				Err:      "services not ready: db",
				Notes:    []string{"teardown: daemon busy"},
			},
		},
		StartedAt:  time.Now(),
		FinishedAt: time.Now().Add(2 * time.Minute),
	}

	require.NoError(t, store.SaveRun(context.Background(), "staging", summary))

	run, err := store.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.ExitFailure, run.Summary.ExitCode)
	require.Len(t, run.Summary.Results, 1)
	assert.Equal(t, []string{"db"}, run.Summary.Results[0].Failed)
	assert.Equal(t, "services not ready: db", run.Summary.Results[0].Err)
	assert.Equal(t, []string{"teardown: daemon busy"}, run.Summary.Results[0].Notes)
}

func TestSaveRunDuplicateID(t *testing.T) {
	store := setupTestStore(t)
	summary := testSummary(time.Now())

	require.NoError(t, store.SaveRun(context.Background(), "production", summary))

	err := store.SaveRun(context.Background(), "production", summary)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	base := time.Now().Add(-time.Hour)

	var ids []string
	for i := 0; i < 3; i++ {
		summary := testSummary(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, store.SaveRun(context.Background(), "production", summary))
		ids = append(ids, summary.RunID)
	}

	runs, err := store.ListRuns(context.Background(), DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].Summary.RunID)
	assert.Equal(t, ids[1], runs[1].Summary.RunID)
	assert.Equal(t, ids[0], runs[2].Summary.RunID)
}

func TestListRunsPagination(t *testing.T) {
	store := setupTestStore(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		summary := testSummary(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, store.SaveRun(context.Background(), fmt.Sprintf("env-%d", i), summary))
	}

	page, err := store.ListRuns(context.Background(), ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "env-2", page[0].Environment)
	assert.Equal(t, "env-1", page[1].Environment)
}

func TestListRunsEmpty(t *testing.T) {
	store := setupTestStore(t)

	runs, err := store.ListRuns(context.Background(), DefaultListOptions())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListOptionsNormalize(t *testing.T) {
	opts := ListOptions{Limit: -1, Offset: -5}.Normalize()
	assert.Equal(t, 20, opts.Limit)
	assert.Zero(t, opts.Offset)

	opts = ListOptions{Limit: 10000}.Normalize()
	assert.Equal(t, 500, opts.Limit)
}
