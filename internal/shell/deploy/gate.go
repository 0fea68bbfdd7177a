// Package deploy contains the orchestration control loop: the phase
// executor, the health gate, and the runner that sequences them.
package deploy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/stackup-dev/stackup/internal/core/health"
	"github.com/stackup-dev/stackup/internal/core/phase"
	"github.com/stackup-dev/stackup/internal/shell/probe"
)

// ProberFactory builds the prober for one service of a phase.
type ProberFactory func(phaseName string, svc phase.ServiceRef) (probe.Prober, error)

// =============================================================================
// Health Gate
// =============================================================================

// HealthGate blocks phase progression until every service is ready or its
// deadline passes. Services are polled concurrently: each has its own
// deadline, so a phase never pays the sum of its services' timeouts.
type HealthGate struct {
	probers ProberFactory
	policy  health.RetryPolicy
	logger  *slog.Logger
}

// NewHealthGate creates a health gate with the given polling policy.
func NewHealthGate(probers ProberFactory, policy health.RetryPolicy, logger *slog.Logger) *HealthGate {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Interval == 0 || policy.Timeout == 0 {
		policy = health.DefaultRetryPolicy()
	}
	return &HealthGate{
		probers: probers,
		policy:  policy,
		logger:  logger.With("component", "health_gate"),
	}
}

// Wait polls every service of the phase until it reports ready or times
// out, and returns the final classification per service. Cancelling ctx
// stops all in-flight polling promptly.
func (g *HealthGate) Wait(ctx context.Context, phaseName string, services []phase.ServiceRef) map[string]health.ServiceHealth {
	results := make(map[string]health.ServiceHealth, len(services))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, svc := range services {
		wg.Add(1)
		go func(svc phase.ServiceRef) {
			defer wg.Done()
			result := g.waitForService(ctx, phaseName, svc)

			// Goroutines write disjoint keys; the lock only guards the
			// map structure itself.
			mu.Lock()
			results[svc.Name] = result
			mu.Unlock()
		}(svc)
	}

	wg.Wait()
	return results
}

// waitForService runs the bounded polling loop for one service.
func (g *HealthGate) waitForService(ctx context.Context, phaseName string, svc phase.ServiceRef) health.ServiceHealth {
	prober, err := g.probers(phaseName, svc)
	if err != nil {
		return health.ServiceHealth{
			Service:     svc.Name,
			Status:      health.StatusDown,
			LastChecked: time.Now(),
			Detail:      err.Error(),
		}
	}

	// The deadline context is handed to every probe call, so a probe that
	// itself blocks (a hung in-container exec) is cut off with the rest of
	// the loop instead of stalling the gate past its timeout.
	sctx, cancel := context.WithTimeout(ctx, g.policy.Timeout)
	defer cancel()

	var lastErr error

	for {
		status, probeErr := prober.Probe(sctx)

		if status == health.StatusHealthy || status == health.StatusDegraded {
			g.logger.Info("service ready",
				"phase", phaseName,
				"service", svc.Name,
				"status", string(status),
			)
			return health.ServiceHealth{
				Service:     svc.Name,
				Status:      status,
				LastChecked: time.Now(),
			}
		}
		lastErr = probeErr

		if sctx.Err() != nil {
			break
		}

		g.logger.Debug("service not ready, retrying",
			"phase", phaseName,
			"service", svc.Name,
			"error", probeErr,
		)

		select {
		case <-sctx.Done():
		case <-time.After(g.policy.Interval):
		}
	}

	if ctx.Err() != nil {
		return health.ServiceHealth{
			Service:     svc.Name,
			Status:      health.StatusDown,
			LastChecked: time.Now(),
			Detail:      "cancelled: " + ctx.Err().Error(),
		}
	}

	detail := "timed out waiting for readiness"
	if lastErr != nil && !errors.Is(lastErr, context.DeadlineExceeded) {
		detail = lastErr.Error()
	}
	g.logger.Warn("service did not become ready",
		"phase", phaseName,
		"service", svc.Name,
		"timeout", g.policy.Timeout,
		"error", lastErr,
	)
	return health.ServiceHealth{
		Service:     svc.Name,
		Status:      health.StatusDown,
		LastChecked: time.Now(),
		Detail:      detail,
	}
}
