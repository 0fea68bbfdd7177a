// Package validate gathers the raw environment facts (daemon state, host
// resources, secrets, conflicts) and feeds them to the precheck core.
package validate

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/stackup-dev/stackup/internal/core/precheck"
	"github.com/stackup-dev/stackup/internal/shell/docker"
)

// Runtime is the slice of the container engine the validator needs.
type Runtime interface {
	Version(ctx context.Context) (string, error)
	HostInfo(ctx context.Context) (docker.HostInfo, error)
	RunningManaged(ctx context.Context) ([]string, error)
}

// Validator runs the pre-deployment environment checks. Validation is
// read-only and idempotent: running it twice back to back yields the same
// verdict on an unchanged host.
type Validator struct {
	runtime Runtime
	dataDir string
	logger  *slog.Logger

	// environ and freeDisk are swappable for tests.
	environ  func() []string
	freeDisk func(path string) (uint64, error)
}

// NewValidator creates a validator. dataDir is the path whose filesystem is
// checked for free space.
func NewValidator(runtime Runtime, dataDir string, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		runtime:  runtime,
		dataDir:  dataDir,
		logger:   logger.With("component", "validator"),
		environ:  os.Environ,
		freeDisk: statfsFree,
	}
}

func statfsFree(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// Validate runs every check and returns the combined report. Checks are
// independent: all of them run even when an early one fails, so one pass
// reports every problem at once.
func (v *Validator) Validate(ctx context.Context) precheck.Report {
	report := precheck.Report{At: time.Now()}

	report.Checks = append(report.Checks, v.checkRuntime(ctx))
	report.Checks = append(report.Checks, v.checkMemory(ctx))
	report.Checks = append(report.Checks, v.checkDisk())
	report.Checks = append(report.Checks, precheck.EvalSecrets(precheck.RequiredSecrets(), v.env()))
	report.Checks = append(report.Checks, v.checkConflicts(ctx))

	return report
}

func (v *Validator) checkRuntime(ctx context.Context) precheck.Check {
	version, err := v.runtime.Version(ctx)
	if err != nil {
		return precheck.Check{
			Name:     "container runtime",
			Status:   precheck.StatusFail,
			Detail:   "daemon unreachable: " + err.Error(),
			Critical: true,
		}
	}
	return precheck.Check{
		Name:   "container runtime",
		Status: precheck.StatusPass,
		Detail: "docker " + version,
	}
}

func (v *Validator) checkMemory(ctx context.Context) precheck.Check {
	info, err := v.runtime.HostInfo(ctx)
	if err != nil {
		// Memory is advisory; an info failure downgrades to a warning
		// rather than masking the daemon check above.
		return precheck.Check{
			Name:   "system memory",
			Status: precheck.StatusWarn,
			Detail: "could not read host info: " + err.Error(),
		}
	}
	return precheck.EvalMemory(info.MemTotal)
}

func (v *Validator) checkDisk() precheck.Check {
	free, err := v.freeDisk(v.dataDir)
	if err != nil {
		return precheck.Check{
			Name:     "disk space",
			Status:   precheck.StatusFail,
			Detail:   "could not stat " + v.dataDir + ": " + err.Error(),
			Critical: true,
		}
	}
	return precheck.EvalDisk(free)
}

func (v *Validator) checkConflicts(ctx context.Context) precheck.Check {
	running, err := v.runtime.RunningManaged(ctx)
	if err != nil {
		v.logger.Warn("could not list running services", "error", err)
		return precheck.Check{
			Name:   "existing services",
			Status: precheck.StatusWarn,
			Detail: "could not list containers: " + err.Error(),
		}
	}
	return precheck.EvalConflicts(running)
}

// env snapshots the process environment as a map.
func (v *Validator) env() map[string]string {
	out := make(map[string]string)
	for _, kv := range v.environ() {
		if k, val, ok := strings.Cut(kv, "="); ok {
			out[k] = val
		}
	}
	return out
}
