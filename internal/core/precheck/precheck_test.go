package precheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Report Tests
// =============================================================================

func TestReport_Passed_NoFailures(t *testing.T) {
	r := Report{Checks: []Check{
		{Name: "a", Status: StatusPass},
		{Name: "b", Status: StatusWarn},
	}}

	assert.True(t, r.Passed())
}

func TestReport_Passed_WithFailure(t *testing.T) {
	r := Report{Checks: []Check{
		{Name: "a", Status: StatusPass},
		{Name: "b", Status: StatusFail},
	}}

	assert.False(t, r.Passed())
}

func TestReport_Failures(t *testing.T) {
	r := Report{Checks: []Check{
		{Name: "a", Status: StatusFail},
		{Name: "b", Status: StatusWarn},
		{Name: "c", Status: StatusFail},
	}}

	failures := r.Failures()
	assert.Len(t, failures, 2)
	assert.Equal(t, "a", failures[0].Name)
	assert.Equal(t, "c", failures[1].Name)
}

func TestReport_Warnings(t *testing.T) {
	r := Report{Checks: []Check{
		{Name: "a", Status: StatusWarn},
		{Name: "b", Status: StatusPass},
	}}

	assert.Len(t, r.Warnings(), 1)
}

// =============================================================================
// Threshold Tests
// =============================================================================

func TestEvalMemory(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		expected CheckStatus
	}{
		{"well above threshold", 16 << 30, StatusPass},
		{"exactly at threshold", 8 << 30, StatusPass},
		{"below threshold", 4 << 30, StatusWarn},
		{"zero", 0, StatusWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := EvalMemory(tt.total)
			assert.Equal(t, tt.expected, check.Status)
			assert.False(t, check.Critical)
		})
	}
}

func TestEvalDisk(t *testing.T) {
	tests := []struct {
		name     string
		free     uint64
		expected CheckStatus
		critical bool
	}{
		{"plenty", 100 << 30, StatusPass, false},
		{"exactly at threshold", 20 << 30, StatusPass, false},
		{"below threshold", 5 << 30, StatusFail, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := EvalDisk(tt.free)
			assert.Equal(t, tt.expected, check.Status)
			assert.Equal(t, tt.critical, check.Critical)
		})
	}
}

// =============================================================================
// Secrets Tests
// =============================================================================

func TestMissingSecrets_AllSet(t *testing.T) {
	env := map[string]string{"A": "1", "B": "2"}

	assert.Empty(t, MissingSecrets([]string{"A", "B"}, env))
}

func TestMissingSecrets_SomeMissing(t *testing.T) {
	env := map[string]string{"A": "1", "B": "", "C": "   "}

	missing := MissingSecrets([]string{"C", "A", "B"}, env)
	assert.Equal(t, []string{"B", "C"}, missing)
}

func TestEvalSecrets_MissingListsNames(t *testing.T) {
	check := EvalSecrets([]string{"POSTGRES_PASSWORD", "JWT_SIGNING_KEY"},
		map[string]string{"JWT_SIGNING_KEY": "x"})

	assert.Equal(t, StatusFail, check.Status)
	assert.True(t, check.Critical)
	assert.Contains(t, check.Detail, "POSTGRES_PASSWORD")
	assert.NotContains(t, check.Detail, "JWT_SIGNING_KEY:")
}

func TestEvalSecrets_AllPresent(t *testing.T) {
	env := map[string]string{}
	for _, name := range RequiredSecrets() {
		env[name] = "set"
	}

	check := EvalSecrets(RequiredSecrets(), env)
	assert.Equal(t, StatusPass, check.Status)
}

// =============================================================================
// Conflict Tests
// =============================================================================

func TestEvalConflicts_NoneRunning(t *testing.T) {
	check := EvalConflicts(nil)

	assert.Equal(t, StatusPass, check.Status)
}

func TestEvalConflicts_RunningWarnsNeverFails(t *testing.T) {
	check := EvalConflicts([]string{"stackup_platform_api", "stackup_infrastructure_db"})

	assert.Equal(t, StatusWarn, check.Status)
	assert.Contains(t, check.Detail, "stackup_infrastructure_db, stackup_platform_api")
}
