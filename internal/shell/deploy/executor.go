package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stackup-dev/stackup/internal/core/phase"
)

// Engine is the container runtime surface the executor drives. Implemented
// by the docker shell; faked in tests.
type Engine interface {
	Up(ctx context.Context, phaseName, manifestYAML string, vars map[string]string) error
	Down(ctx context.Context, phaseName string) error
	Build(ctx context.Context, phaseName, manifestYAML, contextDir string) error
}

// Outcome reports what the executor actually did for a phase. A phase can
// fail its bring-up call and still be gated: the health gate, not the
// runtime's return value, decides readiness.
type Outcome struct {
	Started bool
	BuildOK bool

	// Notes carries non-fatal problems for the final summary.
	Notes []string
}

// ExecOptions controls a single executor run.
type ExecOptions struct {
	SkipBuild bool
	DryRun    bool
}

// =============================================================================
// Phase Executor
// =============================================================================

// PhaseExecutor brings one phase from any prior state to freshly started.
// The sequence is fixed: tear down leftovers, build images, then a single
// atomic bring-up of the whole phase.
type PhaseExecutor struct {
	engine      Engine
	manifestDir string
	vars        map[string]string
	logger      *slog.Logger
}

// NewPhaseExecutor creates an executor reading manifests from manifestDir.
// vars feed variable substitution inside the manifests.
func NewPhaseExecutor(engine Engine, manifestDir string, vars map[string]string, logger *slog.Logger) *PhaseExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PhaseExecutor{
		engine:      engine,
		manifestDir: manifestDir,
		vars:        vars,
		logger:      logger.With("component", "executor"),
	}
}

// Run executes teardown, build and bring-up for p.
//
// Teardown failures are noted but never fatal. Build failures are fatal:
// proceeding would start stale images. A bring-up error is noted and the
// phase is still handed to the health gate, which has the final word.
func (x *PhaseExecutor) Run(ctx context.Context, p phase.Phase, opts ExecOptions) (Outcome, error) {
	log := x.logger.With("phase", p.Name)

	if opts.DryRun {
		for _, svc := range p.Services {
			log.Info("dry run: would deploy service",
				"service", svc.Name,
				"probe", string(svc.Probe.Kind),
			)
		}
		return Outcome{Started: true, BuildOK: true}, nil
	}

	manifestPath := filepath.Join(x.manifestDir, p.ManifestKey+".yaml")
	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("read manifest for phase %s: %w", p.Name, err)
	}

	outcome := Outcome{}

	// A failed teardown usually means there was nothing to tear down.
	log.Info("tearing down previous instances")
	if err := x.engine.Down(ctx, p.Name); err != nil {
		log.Warn("teardown failed, continuing", "error", err)
		outcome.Notes = append(outcome.Notes, fmt.Sprintf("teardown: %v", err))
	}

	if opts.SkipBuild {
		log.Info("skipping image build")
		outcome.BuildOK = true
	} else {
		log.Info("building images")
		if err := x.engine.Build(ctx, p.Name, string(manifest), x.manifestDir); err != nil {
			return outcome, fmt.Errorf("build phase %s: %w", p.Name, err)
		}
		outcome.BuildOK = true
	}

	log.Info("starting services", "services", len(p.Services))
	if err := x.engine.Up(ctx, p.Name, string(manifest), x.vars); err != nil {
		// Not authoritative: a partially started phase may still converge
		// to healthy, and the gate catches it if it does not.
		log.Error("bring-up reported an error, deferring to health gate", "error", err)
		outcome.Notes = append(outcome.Notes, fmt.Sprintf("bring-up: %v", err))
	}
	outcome.Started = true

	return outcome, nil
}
