// Package phase defines the ordered deployment phase table and service
// readiness probe specifications. This is part of the Functional Core -
// the registry is an immutable value constructed once at process start.
package phase

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// Probe Types
// =============================================================================

// ProbeKind identifies how a service's readiness is checked.
type ProbeKind string

const (
	// ProbeCommand runs a command inside the service container and treats
	// exit code 0 as ready (e.g., pg_isready).
	ProbeCommand ProbeKind = "command"
	// ProbeTCP attempts a TCP connection to the given address.
	ProbeTCP ProbeKind = "tcp"
	// ProbeHTTP issues a GET request and compares the status code.
	ProbeHTTP ProbeKind = "http"
)

// ProbeSpec describes a single service readiness probe.
type ProbeSpec struct {
	Kind ProbeKind

	// Command is the in-container readiness command for ProbeCommand.
	Command []string

	// Address is the host:port for ProbeTCP.
	Address string

	// URL and ExpectStatus configure ProbeHTTP.
	URL          string
	ExpectStatus int
}

// ServiceRef names a service within a phase together with its probe.
type ServiceRef struct {
	Name  string
	Probe ProbeSpec
}

// =============================================================================
// Phase Types
// =============================================================================

// Tier is the priority tier of a phase.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
)

// Phase is a named, ordered group of services deployed and gated together.
// Phases are immutable: they are defined once in the registry and never
// mutated at runtime.
type Phase struct {
	Name          string
	Tier          Tier
	Services      []ServiceRef
	Prerequisites []string

	// NominalDuration is the expected time for the phase to become healthy,
	// used for reporting only.
	NominalDuration time.Duration

	// ManifestKey selects the compose file for this phase (<key>.yaml
	// under the configured manifest directory).
	ManifestKey string
}

// ServiceNames returns the names of the phase's services in declaration order.
func (p Phase) ServiceNames() []string {
	names := make([]string, 0, len(p.Services))
	for _, s := range p.Services {
		names = append(names, s.Name)
	}
	return names
}

// =============================================================================
// Registry
// =============================================================================

// SelectorAll requests every phase in registry order.
const SelectorAll = "all"

// ErrUnknownPhase is returned when a selector names no registered phase.
var ErrUnknownPhase = errors.New("unknown phase")

// Registry is the ordered, immutable table of deployment phases.
// Order is carried by the backing slice, never by map iteration.
type Registry struct {
	phases []Phase
}

// NewRegistry builds a registry from an ordered list of phases.
func NewRegistry(phases []Phase) *Registry {
	cp := make([]Phase, len(phases))
	copy(cp, phases)
	return &Registry{phases: cp}
}

// Phases returns every phase in registry order.
func (r *Registry) Phases() []Phase {
	cp := make([]Phase, len(r.phases))
	copy(cp, r.phases)
	return cp
}

// Select filters the registry by selector. SelectorAll returns all phases
// in registry order; a phase name returns that single phase.
func (r *Registry) Select(selector string) ([]Phase, error) {
	sel := strings.ToLower(strings.TrimSpace(selector))
	if sel == "" || sel == SelectorAll {
		return r.Phases(), nil
	}
	for _, p := range r.phases {
		if p.Name == sel {
			return []Phase{p}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, selector)
}

// Names returns the registered phase names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.phases))
	for _, p := range r.phases {
		names = append(names, p.Name)
	}
	return names
}

// =============================================================================
// Default Table
// =============================================================================

// DefaultRegistry returns the compiled-in deployment table.
// The table is policy, not configuration: intra-phase service ordering is
// expressed by the compose manifests' depends_on declarations, not here.
func DefaultRegistry() *Registry {
	return NewRegistry([]Phase{
		{
			Name: "infrastructure",
			Tier: TierCritical,
			Services: []ServiceRef{
				{
					Name: "db",
					Probe: ProbeSpec{
						Kind:    ProbeCommand,
						Command: []string{"pg_isready", "-U", "postgres"},
					},
				},
				{
					Name: "cache",
					Probe: ProbeSpec{
						Kind:    ProbeCommand,
						Command: []string{"redis-cli", "ping"},
					},
				},
			},
			NominalDuration: 30 * time.Second,
			ManifestKey:     "infrastructure",
		},
		{
			Name:          "platform",
			Tier:          TierHigh,
			Prerequisites: []string{"infrastructure"},
			Services: []ServiceRef{
				{
					Name: "api",
					Probe: ProbeSpec{
						Kind:         ProbeHTTP,
						URL:          "http://localhost:8080/health",
						ExpectStatus: 200,
					},
				},
				{
					Name: "worker",
					Probe: ProbeSpec{
						Kind:    ProbeCommand,
						Command: []string{"test", "-f", "/tmp/worker.ready"},
					},
				},
			},
			NominalDuration: 60 * time.Second,
			ManifestKey:     "platform",
		},
		{
			Name:          "edge",
			Tier:          TierMedium,
			Prerequisites: []string{"platform"},
			Services: []ServiceRef{
				{
					Name: "web",
					Probe: ProbeSpec{
						Kind:         ProbeHTTP,
						URL:          "http://localhost:3000/",
						ExpectStatus: 200,
					},
				},
				{
					Name: "proxy",
					Probe: ProbeSpec{
						Kind:    ProbeTCP,
						Address: "localhost:443",
					},
				},
			},
			NominalDuration: 20 * time.Second,
			ManifestKey:     "edge",
		},
	})
}
