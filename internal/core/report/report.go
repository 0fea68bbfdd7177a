// Package report accumulates per-phase outcomes and folds them into the
// final run summary. The summary is a pure function of the recorded result
// log - it never re-derives success from external state.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/stackup-dev/stackup/internal/core/health"
)

// Process exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// =============================================================================
// Phase Result
// =============================================================================

// PhaseResult is the immutable outcome of one completed phase. Results are
// appended in registry order and never mutated afterward.
type PhaseResult struct {
	Phase    string                   `yaml:"phase"`
	Success  bool                     `yaml:"success"`
	Duration time.Duration            `yaml:"duration"`
	Services map[string]health.Status `yaml:"services,omitempty"`
	Failed   []string                 `yaml:"failed_services,omitempty"`
	Err      string                   `yaml:"error,omitempty"`

	// Notes carries non-fatal problems hit while executing the phase, such
	// as a teardown failure or a bring-up error superseded by the health
	// gate verdict.
	Notes []string `yaml:"notes,omitempty"`
}

// =============================================================================
// Aggregator
// =============================================================================

// Aggregator records phase results for one run.
type Aggregator struct {
	runID     string
	requested int
	startedAt time.Time
	results   []PhaseResult
}

// NewAggregator creates an aggregator for a run over the given number of
// requested phases.
func NewAggregator(requested int) *Aggregator {
	return &Aggregator{
		runID:     uuid.NewString(),
		requested: requested,
		startedAt: time.Now(),
	}
}

// RunID returns the run identifier.
func (a *Aggregator) RunID() string {
	return a.runID
}

// Record appends a phase result. Callers record results in the order phases
// execute, which matches registry order.
func (a *Aggregator) Record(r PhaseResult) {
	a.results = append(a.results, r)
}

// Results returns the recorded log in order.
func (a *Aggregator) Results() []PhaseResult {
	cp := make([]PhaseResult, len(a.results))
	copy(cp, a.results)
	return cp
}

// Summarize folds the result log into the run summary. Overall success
// requires every recorded result to have succeeded AND a result to exist
// for every requested phase.
func (a *Aggregator) Summarize() Summary {
	success := len(a.results) == a.requested
	for _, r := range a.results {
		if !r.Success {
			success = false
		}
	}

	exitCode := ExitFailure
	if success {
		exitCode = ExitSuccess
	}

	return Summary{
		RunID:          a.runID,
		OverallSuccess: success,
		ExitCode:       exitCode,
		Requested:      a.requested,
		Results:        a.Results(),
		StartedAt:      a.startedAt,
		FinishedAt:     time.Now(),
	}
}

// =============================================================================
// Summary
// =============================================================================

// Summary is the final report for one run.
type Summary struct {
	RunID          string        `yaml:"run_id"`
	OverallSuccess bool          `yaml:"overall_success"`
	ExitCode       int           `yaml:"exit_code"`
	Requested      int           `yaml:"phases_requested"`
	Results        []PhaseResult `yaml:"results"`
	StartedAt      time.Time     `yaml:"started_at"`
	FinishedAt     time.Time     `yaml:"finished_at"`
}

// Render writes a human-readable summary table.
func (s Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "\nDeployment run %s\n", s.RunID)
	fmt.Fprintf(w, "%-18s %-8s %-10s %s\n", "PHASE", "RESULT", "DURATION", "SERVICES")

	for _, r := range s.Results {
		result := "ok"
		if !r.Success {
			result = "FAILED"
		}

		detail := renderServices(r)
		fmt.Fprintf(w, "%-18s %-8s %-10s %s\n",
			r.Phase, result, r.Duration.Round(time.Millisecond), detail)

		if r.Err != "" {
			fmt.Fprintf(w, "%-18s          %s\n", "", r.Err)
		}
		for _, note := range r.Notes {
			fmt.Fprintf(w, "%-18s          note: %s\n", "", note)
		}
	}

	if s.OverallSuccess {
		fmt.Fprintf(w, "\nall %d phase(s) healthy in %s\n",
			len(s.Results), s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	} else {
		fmt.Fprintf(w, "\ndeployment failed: %d of %d requested phase(s) succeeded\n",
			s.countSucceeded(), s.Requested)
	}
}

func (s Summary) countSucceeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

func renderServices(r PhaseResult) string {
	if len(r.Services) == 0 {
		return "-"
	}
	names := make([]string, 0, len(r.Services))
	for name := range r.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, r.Services[name]))
	}
	return strings.Join(parts, " ")
}

// WriteFile writes the summary as YAML. The file is informational only;
// no subsequent run reads it.
func (s Summary) WriteFile(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary file: %w", err)
	}
	return nil
}
