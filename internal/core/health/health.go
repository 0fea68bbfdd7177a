// Package health provides pure types and functions for service readiness
// classification. Following the Functional Core convention, this package
// contains NO I/O - probing lives in the shell.
package health

import (
	"sort"
	"time"
)

// =============================================================================
// Status
// =============================================================================

// Status classifies the observed readiness of a single service.
type Status string

const (
	// StatusHealthy means the readiness probe succeeded.
	StatusHealthy Status = "healthy"
	// StatusDegraded means the service is running but reports no explicit
	// health information. Degraded does not block phase success.
	StatusDegraded Status = "degraded"
	// StatusDown means the probe never succeeded within its deadline.
	StatusDown Status = "down"
	// StatusUnknown means the service has not been checked yet.
	StatusUnknown Status = "unknown"
)

// ServiceHealth is the result of gating one service. It is recomputed on
// every poll tick and superseded, never merged.
type ServiceHealth struct {
	Service     string
	Status      Status
	LastChecked time.Time
	Detail      string
}

// =============================================================================
// Retry Policy
// =============================================================================

// RetryPolicy is the bounded polling policy shared by all probes:
// retry every Interval until Timeout elapses.
type RetryPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultRetryPolicy returns the standard gate policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Interval: 2 * time.Second,
		Timeout:  90 * time.Second,
	}
}

// =============================================================================
// Phase Aggregation (Pure Functions)
// =============================================================================

// PhaseReady reports whether a phase passed its health gate: every service
// must be Healthy or Degraded. An empty result set counts as ready.
func PhaseReady(results map[string]ServiceHealth) bool {
	for _, r := range results {
		if r.Status != StatusHealthy && r.Status != StatusDegraded {
			return false
		}
	}
	return true
}

// DownServices returns the sorted names of services that block phase success.
func DownServices(results map[string]ServiceHealth) []string {
	var down []string
	for name, r := range results {
		if r.Status != StatusHealthy && r.Status != StatusDegraded {
			down = append(down, name)
		}
	}
	sort.Strings(down)
	return down
}

// Statuses flattens gate results to a name -> status map for reporting.
func Statuses(results map[string]ServiceHealth) map[string]Status {
	out := make(map[string]Status, len(results))
	for name, r := range results {
		out[name] = r.Status
	}
	return out
}
