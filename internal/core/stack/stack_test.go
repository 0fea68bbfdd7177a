package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackup-dev/stackup/internal/core/compose"
)

// =============================================================================
// Naming Tests
// =============================================================================

func TestNaming(t *testing.T) {
	assert.Equal(t, "stackup_infrastructure", NetworkName("infrastructure"))
	assert.Equal(t, "stackup_infrastructure_pgdata", VolumeName("infrastructure", "pgdata"))
	assert.Equal(t, "stackup_platform_api", ContainerName("platform", "api"))
}

// =============================================================================
// SortServices Tests
// =============================================================================

func TestSortServices_LinearChain(t *testing.T) {
	services := []compose.Service{
		{Name: "web", DependsOn: []string{"api"}},
		{Name: "api", DependsOn: []string{"db"}},
		{Name: "db"},
	}

	sorted := SortServices(services)

	require.Len(t, sorted, 3)
	assert.Equal(t, "db", sorted[0].Name)
	assert.Equal(t, "api", sorted[1].Name)
	assert.Equal(t, "web", sorted[2].Name)
}

func TestSortServices_NoDependencies(t *testing.T) {
	services := []compose.Service{
		{Name: "db"},
		{Name: "cache"},
	}

	sorted := SortServices(services)

	require.Len(t, sorted, 2)
	assert.Equal(t, "db", sorted[0].Name)
	assert.Equal(t, "cache", sorted[1].Name)
}

func TestSortServices_Diamond(t *testing.T) {
	services := []compose.Service{
		{Name: "web", DependsOn: []string{"api", "worker"}},
		{Name: "api", DependsOn: []string{"db"}},
		{Name: "worker", DependsOn: []string{"db"}},
		{Name: "db"},
	}

	sorted := SortServices(services)

	require.Len(t, sorted, 4)
	assert.Equal(t, "db", sorted[0].Name)
	assert.Equal(t, "web", sorted[3].Name)
}

func TestSortServices_CycleFallback(t *testing.T) {
	// Cycles are rejected at parse time; the sort must still terminate
	// and return every service.
	services := []compose.Service{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}

	sorted := SortServices(services)

	assert.Len(t, sorted, 2)
}

func TestSortServices_Empty(t *testing.T) {
	assert.Empty(t, SortServices(nil))
}

// =============================================================================
// SubstituteVariables Tests
// =============================================================================

func TestSubstituteVariables(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		variables map[string]string
		expected  string
	}{
		{
			name:      "simple substitution",
			value:     "${DB_HOST}",
			variables: map[string]string{"DB_HOST": "localhost"},
			expected:  "localhost",
		},
		{
			name:      "default used when missing",
			value:     "${PORT:-8080}",
			variables: map[string]string{},
			expected:  "8080",
		},
		{
			name:      "value wins over default",
			value:     "${PORT:-8080}",
			variables: map[string]string{"PORT": "9090"},
			expected:  "9090",
		},
		{
			name:      "missing without default kept as-is",
			value:     "${MISSING}",
			variables: map[string]string{},
			expected:  "${MISSING}",
		},
		{
			name:      "empty default",
			value:     "${MISSING:-}",
			variables: map[string]string{},
			expected:  "",
		},
		{
			name:      "multiple placeholders",
			value:     "postgres://${HOST}:${PORT}",
			variables: map[string]string{"HOST": "db", "PORT": "5432"},
			expected:  "postgres://db:5432",
		},
		{
			name:      "nil variables",
			value:     "${X:-fallback}",
			variables: nil,
			expected:  "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SubstituteVariables(tt.value, tt.variables))
		})
	}
}
