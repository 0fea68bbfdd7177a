// Package secrets generates the credentials a deployment needs and
// persists them to an env file for later runs.
package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// tokenBytes is the entropy per generated secret (hex-encoded to double
// the length).
const tokenBytes = 24

// Generator produces values for missing required secrets.
type Generator struct {
	envFile string
	logger  *slog.Logger
}

// NewGenerator creates a generator that persists to envFile. An empty
// envFile disables persistence.
func NewGenerator(envFile string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		envFile: envFile,
		logger:  logger.With("component", "secrets"),
	}
}

// Generate fills in every variable from required that is not already set in
// the process environment, exports the new values, and appends them to the
// env file. Variables already set are left untouched.
func (g *Generator) Generate(required []string) (map[string]string, error) {
	generated := make(map[string]string)

	for _, name := range required {
		if strings.TrimSpace(os.Getenv(name)) != "" {
			continue
		}

		value, err := g.valueFor(name)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", name, err)
		}
		if err := os.Setenv(name, value); err != nil {
			return nil, fmt.Errorf("export %s: %w", name, err)
		}
		generated[name] = value
		g.logger.Info("generated secret", "name", name)
	}

	if len(generated) > 0 && g.envFile != "" {
		if err := g.persist(generated); err != nil {
			return nil, err
		}
	}
	return generated, nil
}

// valueFor produces the value for one variable. Password hashes get a
// bcrypt digest of a random password; everything else gets a random token.
func (g *Generator) valueFor(name string) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(name, "_HASH") {
		digest, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return string(digest), nil
	}
	return token, nil
}

func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// persist appends the generated values to the env file, creating it with
// owner-only permissions.
func (g *Generator) persist(generated map[string]string) error {
	f, err := os.OpenFile(g.envFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	names := make([]string, 0, len(generated))
	for name := range generated {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintf(f, "%s=%s\n", name, generated[name]); err != nil {
			return fmt.Errorf("write env file: %w", err)
		}
	}

	g.logger.Info("secrets written", "file", g.envFile, "count", len(generated))
	return nil
}
