package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stackup-dev/stackup/internal/core/health"
	"github.com/stackup-dev/stackup/internal/core/phase"
	"github.com/stackup-dev/stackup/internal/core/precheck"
	"github.com/stackup-dev/stackup/internal/core/report"
)

// Validator runs environment prechecks before any phase executes.
type Validator interface {
	Validate(ctx context.Context) precheck.Report
}

// Options selects what a run deploys and which safety rails are relaxed.
type Options struct {
	// Selector picks phases: a phase name, or "all"/"" for every phase.
	Selector string

	// Environment tags the run in logs and the summary. It never changes
	// orchestration behavior.
	Environment string

	ContinueOnFailure bool
	DryRun            bool
	SkipBuild         bool
	SkipValidation    bool
}

// =============================================================================
// Runner
// =============================================================================

// Runner drives a full deployment: validation, then each selected phase
// through the executor and the health gate, folding outcomes into the run
// summary.
type Runner struct {
	registry  *phase.Registry
	executor  *PhaseExecutor
	gate      *HealthGate
	validator Validator
	logger    *slog.Logger
}

// NewRunner wires the orchestration pipeline together.
func NewRunner(registry *phase.Registry, executor *PhaseExecutor, gate *HealthGate, validator Validator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry:  registry,
		executor:  executor,
		gate:      gate,
		validator: validator,
		logger:    logger.With("component", "runner"),
	}
}

// Run executes the deployment described by opts and returns the summary.
// The returned error covers run mechanics only, such as an unknown phase
// selector; deployment failures are expressed through the summary's exit
// code, never as an error.
func (r *Runner) Run(ctx context.Context, opts Options) (report.Summary, error) {
	phases, err := r.registry.Select(opts.Selector)
	if err != nil {
		return report.Summary{}, err
	}

	agg := report.NewAggregator(len(phases))
	log := r.logger.With("run_id", agg.RunID())
	log.Info("deployment run starting",
		"environment", opts.Environment,
		"phases", len(phases),
		"dry_run", opts.DryRun,
	)

	if !r.runValidation(ctx, log, opts) {
		return agg.Summarize(), nil
	}

	for _, p := range phases {
		result := r.runPhase(ctx, log, p, opts)
		agg.Record(result)

		if !result.Success && !opts.ContinueOnFailure {
			log.Error("phase failed, aborting run",
				"phase", p.Name,
				"tier", string(p.Tier),
			)
			break
		}
	}

	summary := agg.Summarize()
	log.Info("deployment run finished",
		"success", summary.OverallSuccess,
		"phases_completed", len(summary.Results),
		"phases_requested", summary.Requested,
	)
	return summary, nil
}

// runValidation reports whether the run may proceed to phase execution.
func (r *Runner) runValidation(ctx context.Context, log *slog.Logger, opts Options) bool {
	if opts.SkipValidation {
		log.Warn("environment validation skipped")
		return true
	}

	rep := r.validator.Validate(ctx)
	for _, c := range rep.Checks {
		switch c.Status {
		case precheck.StatusFail:
			log.Error("precheck failed", "check", c.Name, "detail", c.Detail)
		case precheck.StatusWarn:
			log.Warn("precheck warning", "check", c.Name, "detail", c.Detail)
		default:
			log.Info("precheck passed", "check", c.Name, "detail", c.Detail)
		}
	}

	if rep.Passed() {
		return true
	}
	if opts.ContinueOnFailure {
		log.Warn("continuing despite validation failures",
			"failures", len(rep.Failures()))
		return true
	}
	log.Error("environment validation failed, refusing to deploy",
		"failures", len(rep.Failures()))
	return false
}

// runPhase executes one phase end to end and classifies the result.
func (r *Runner) runPhase(ctx context.Context, log *slog.Logger, p phase.Phase, opts Options) report.PhaseResult {
	log.Info("phase starting",
		"phase", p.Name,
		"tier", string(p.Tier),
		"services", len(p.Services),
	)
	start := time.Now()

	outcome, err := r.executor.Run(ctx, p, ExecOptions{
		SkipBuild: opts.SkipBuild,
		DryRun:    opts.DryRun,
	})
	if err != nil {
		return report.PhaseResult{
			Phase:    p.Name,
			Success:  false,
			Duration: time.Since(start),
			Err:      err.Error(),
			Notes:    outcome.Notes,
		}
	}

	if opts.DryRun {
		return report.PhaseResult{
			Phase:    p.Name,
			Success:  true,
			Duration: time.Since(start),
			Notes:    outcome.Notes,
		}
	}

	statuses := r.gate.Wait(ctx, p.Name, p.Services)
	ready := health.PhaseReady(statuses)
	result := report.PhaseResult{
		Phase:    p.Name,
		Success:  ready,
		Duration: time.Since(start),
		Services: health.Statuses(statuses),
		Failed:   health.DownServices(statuses),
		Notes:    outcome.Notes,
	}
	if !ready {
		result.Err = fmt.Sprintf("services not ready: %s", strings.Join(result.Failed, ", "))
	}

	log.Info("phase finished",
		"phase", p.Name,
		"success", result.Success,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result
}
