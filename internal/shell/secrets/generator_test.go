package secrets

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateFillsMissingVariables(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "")
	t.Setenv("TEST_API_TOKEN", "")

	g := NewGenerator("", testLogger())
	generated, err := g.Generate([]string{"TEST_DB_PASSWORD", "TEST_API_TOKEN"})

	require.NoError(t, err)
	require.Len(t, generated, 2)
	assert.Len(t, generated["TEST_DB_PASSWORD"], 2*tokenBytes)
	assert.NotEqual(t, generated["TEST_DB_PASSWORD"], generated["TEST_API_TOKEN"])
	assert.Equal(t, generated["TEST_DB_PASSWORD"], os.Getenv("TEST_DB_PASSWORD"))
}

func TestGeneratePreservesExistingValues(t *testing.T) {
	t.Setenv("TEST_EXISTING_SECRET", "operator-chosen")

	g := NewGenerator("", testLogger())
	generated, err := g.Generate([]string{"TEST_EXISTING_SECRET"})

	require.NoError(t, err)
	assert.Empty(t, generated)
	assert.Equal(t, "operator-chosen", os.Getenv("TEST_EXISTING_SECRET"))
}

func TestGenerateHashVariablesUseBcrypt(t *testing.T) {
	t.Setenv("TEST_ADMIN_PASSWORD_HASH", "")

	g := NewGenerator("", testLogger())
	generated, err := g.Generate([]string{"TEST_ADMIN_PASSWORD_HASH"})

	require.NoError(t, err)
	digest := generated["TEST_ADMIN_PASSWORD_HASH"]
	assert.True(t, strings.HasPrefix(digest, "$2a$"), "expected a bcrypt digest, got %q", digest)
	_, err = bcrypt.Cost([]byte(digest))
	assert.NoError(t, err)
}

func TestGeneratePersistsToEnvFile(t *testing.T) {
	t.Setenv("TEST_PERSISTED_SECRET", "")
	envFile := filepath.Join(t.TempDir(), ".env")

	g := NewGenerator(envFile, testLogger())
	generated, err := g.Generate([]string{"TEST_PERSISTED_SECRET"})
	require.NoError(t, err)

	info, err := os.Stat(envFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TEST_PERSISTED_SECRET="+generated["TEST_PERSISTED_SECRET"])
}

func TestGenerateNoFileWhenNothingGenerated(t *testing.T) {
	t.Setenv("TEST_SET_SECRET", "already-set")
	envFile := filepath.Join(t.TempDir(), ".env")

	g := NewGenerator(envFile, testLogger())
	_, err := g.Generate([]string{"TEST_SET_SECRET"})
	require.NoError(t, err)

	_, statErr := os.Stat(envFile)
	assert.True(t, os.IsNotExist(statErr))
}
