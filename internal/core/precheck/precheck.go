// Package precheck provides pure validation logic for the environment
// checks run before any phase executes. The shell gathers the raw inputs
// (daemon info, disk stats, environment variables); this package decides
// what they mean.
package precheck

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// Check Types
// =============================================================================

// CheckStatus is the outcome of a single validation check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check is one independent validation result.
type Check struct {
	Name   string
	Status CheckStatus
	Detail string

	// Critical marks checks whose failure blocks the run outright
	// (runtime availability, missing secrets).
	Critical bool
}

// Report is the full result of one validation pass. Created fresh on every
// run, never persisted.
type Report struct {
	Checks []Check
	At     time.Time
}

// Passed reports whether the environment is deployable: no check failed.
// Warnings do not block.
func (r Report) Passed() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Failures returns the failed checks.
func (r Report) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			out = append(out, c)
		}
	}
	return out
}

// Warnings returns the warned checks.
func (r Report) Warnings() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status == StatusWarn {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// Thresholds
// =============================================================================

const (
	// MinMemoryBytes is the memory floor below which deployment is
	// discouraged (warning only).
	MinMemoryBytes = 8 * 1024 * 1024 * 1024
	// MinDiskBytes is the free-disk floor; below it image storage fails,
	// so the check fails rather than warns.
	MinDiskBytes = 20 * 1024 * 1024 * 1024
)

// EvalMemory evaluates total system memory against the threshold.
func EvalMemory(totalBytes int64) Check {
	detail := fmt.Sprintf("%.1f GiB available", float64(totalBytes)/(1<<30))
	if totalBytes < MinMemoryBytes {
		return Check{
			Name:   "system memory",
			Status: StatusWarn,
			Detail: detail + ", below recommended 8 GiB",
		}
	}
	return Check{Name: "system memory", Status: StatusPass, Detail: detail}
}

// EvalDisk evaluates free disk space against the threshold.
func EvalDisk(freeBytes uint64) Check {
	detail := fmt.Sprintf("%.1f GiB free", float64(freeBytes)/(1<<30))
	if freeBytes < MinDiskBytes {
		return Check{
			Name:     "disk space",
			Status:   StatusFail,
			Detail:   detail + ", below required 20 GiB",
			Critical: true,
		}
	}
	return Check{Name: "disk space", Status: StatusPass, Detail: detail}
}

// =============================================================================
// Secrets
// =============================================================================

// RequiredSecrets returns the fixed list of environment variables every
// deployment needs before any service comes up.
func RequiredSecrets() []string {
	return []string{
		"POSTGRES_PASSWORD",
		"REDIS_PASSWORD",
		"JWT_SIGNING_KEY",
		"ADMIN_PASSWORD_HASH",
		"MINIO_ROOT_PASSWORD",
	}
}

// MissingSecrets returns the sorted names from required that are absent or
// empty in env.
func MissingSecrets(required []string, env map[string]string) []string {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(env[name]) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// EvalSecrets builds the secrets check, listing exactly which variables
// are missing.
func EvalSecrets(required []string, env map[string]string) Check {
	missing := MissingSecrets(required, env)
	if len(missing) > 0 {
		return Check{
			Name:     "required secrets",
			Status:   StatusFail,
			Detail:   "missing: " + strings.Join(missing, ", "),
			Critical: true,
		}
	}
	return Check{
		Name:   "required secrets",
		Status: StatusPass,
		Detail: fmt.Sprintf("all %d variables set", len(required)),
	}
}

// EvalConflicts builds the pre-existing services check. Existing managed
// services only warn: they will be replaced by the run.
func EvalConflicts(running []string) Check {
	if len(running) > 0 {
		sorted := append([]string(nil), running...)
		sort.Strings(sorted)
		return Check{
			Name:   "existing services",
			Status: StatusWarn,
			Detail: "will replace running: " + strings.Join(sorted, ", "),
		}
	}
	return Check{Name: "existing services", Status: StatusPass, Detail: "none running"}
}
