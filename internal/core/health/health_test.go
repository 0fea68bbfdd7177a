package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// PhaseReady Tests
// =============================================================================

func TestPhaseReady_AllHealthy(t *testing.T) {
	results := map[string]ServiceHealth{
		"db":    {Service: "db", Status: StatusHealthy},
		"cache": {Service: "cache", Status: StatusHealthy},
	}

	assert.True(t, PhaseReady(results))
}

func TestPhaseReady_DegradedPasses(t *testing.T) {
	results := map[string]ServiceHealth{
		"api":    {Service: "api", Status: StatusHealthy},
		"worker": {Service: "worker", Status: StatusDegraded},
	}

	assert.True(t, PhaseReady(results))
}

func TestPhaseReady_OneDown(t *testing.T) {
	results := map[string]ServiceHealth{
		"api":    {Service: "api", Status: StatusHealthy},
		"worker": {Service: "worker", Status: StatusDown},
	}

	assert.False(t, PhaseReady(results))
}

func TestPhaseReady_UnknownBlocks(t *testing.T) {
	results := map[string]ServiceHealth{
		"api": {Service: "api", Status: StatusUnknown},
	}

	assert.False(t, PhaseReady(results))
}

func TestPhaseReady_Empty(t *testing.T) {
	assert.True(t, PhaseReady(map[string]ServiceHealth{}))
}

// =============================================================================
// DownServices Tests
// =============================================================================

func TestDownServices_SortedNames(t *testing.T) {
	results := map[string]ServiceHealth{
		"web":   {Status: StatusDown},
		"api":   {Status: StatusDown},
		"cache": {Status: StatusHealthy},
		"db":    {Status: StatusDegraded},
	}

	assert.Equal(t, []string{"api", "web"}, DownServices(results))
}

func TestDownServices_NoneDown(t *testing.T) {
	results := map[string]ServiceHealth{
		"db": {Status: StatusHealthy},
	}

	assert.Empty(t, DownServices(results))
}

// =============================================================================
// Statuses Tests
// =============================================================================

func TestStatuses(t *testing.T) {
	now := time.Now()
	results := map[string]ServiceHealth{
		"db":    {Service: "db", Status: StatusHealthy, LastChecked: now},
		"cache": {Service: "cache", Status: StatusDown, LastChecked: now},
	}

	assert.Equal(t, map[string]Status{
		"db":    StatusHealthy,
		"cache": StatusDown,
	}, Statuses(results))
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 2*time.Second, p.Interval)
	assert.Equal(t, 90*time.Second, p.Timeout)
}
