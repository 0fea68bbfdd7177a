// Package probe implements the three service readiness probe kinds:
// in-container command execs, TCP connects, and HTTP GETs.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/stackup-dev/stackup/internal/core/health"
	"github.com/stackup-dev/stackup/internal/core/phase"
)

// ErrUnknownProbeKind is returned for a probe spec with no known kind.
var ErrUnknownProbeKind = errors.New("unknown probe kind")

// Prober checks one service's readiness once. Implementations return:
//   - StatusHealthy: the probe succeeded
//   - StatusDegraded: the service is running but exposes no health signal
//   - StatusDown with a non-nil error: this attempt failed; the gate retries
type Prober interface {
	Probe(ctx context.Context) (health.Status, error)
}

// Runner is the engine surface command probes need.
type Runner interface {
	ExecProbe(ctx context.Context, phaseName, service string, cmd []string) (int, error)
	ServiceRunning(ctx context.Context, phaseName, service string) (bool, error)
}

// ForService maps a service's probe spec to a Prober.
func ForService(runner Runner, phaseName string, svc phase.ServiceRef) (Prober, error) {
	switch svc.Probe.Kind {
	case phase.ProbeCommand:
		if len(svc.Probe.Command) == 0 {
			return nil, fmt.Errorf("service %s: command probe with empty command", svc.Name)
		}
		return &CommandProbe{
			runner:  runner,
			phase:   phaseName,
			service: svc.Name,
			command: svc.Probe.Command,
		}, nil
	case phase.ProbeTCP:
		return &TCPProbe{Address: svc.Probe.Address}, nil
	case phase.ProbeHTTP:
		expect := svc.Probe.ExpectStatus
		if expect == 0 {
			expect = http.StatusOK
		}
		return &HTTPProbe{URL: svc.Probe.URL, ExpectStatus: expect}, nil
	default:
		return nil, fmt.Errorf("%w: %q for service %s", ErrUnknownProbeKind, svc.Probe.Kind, svc.Name)
	}
}

// =============================================================================
// Command Probe
// =============================================================================

// Exit codes the shell reserves for "command could not be invoked". A
// running container whose health command is unavailable carries no explicit
// health information, which classifies as degraded rather than down.
const (
	exitNotExecutable = 126
	exitNotFound      = 127
)

// CommandProbe runs a readiness command inside the service's container.
type CommandProbe struct {
	runner  Runner
	phase   string
	service string
	command []string
}

func (p *CommandProbe) Probe(ctx context.Context) (health.Status, error) {
	code, err := p.runner.ExecProbe(ctx, p.phase, p.service, p.command)
	if err != nil {
		return health.StatusDown, fmt.Errorf("exec %s in %s: %w", p.command[0], p.service, err)
	}

	switch code {
	case 0:
		return health.StatusHealthy, nil
	case exitNotExecutable, exitNotFound:
		running, runErr := p.runner.ServiceRunning(ctx, p.phase, p.service)
		if runErr == nil && running {
			return health.StatusDegraded, nil
		}
		return health.StatusDown, fmt.Errorf("%s: health command unavailable and container not running", p.service)
	default:
		return health.StatusDown, fmt.Errorf("%s: readiness command exited %d", p.service, code)
	}
}

// =============================================================================
// TCP Probe
// =============================================================================

// TCPProbe checks readiness by opening a TCP connection.
type TCPProbe struct {
	Address string

	// DialTimeout bounds a single attempt. Defaults to 3s.
	DialTimeout time.Duration
}

func (p *TCPProbe) Probe(ctx context.Context) (health.Status, error) {
	timeout := p.DialTimeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return health.StatusDown, fmt.Errorf("connect %s: %w", p.Address, err)
	}
	conn.Close()
	return health.StatusHealthy, nil
}

// =============================================================================
// HTTP Probe
// =============================================================================

// HTTPProbe checks readiness with a GET request expecting a status code.
type HTTPProbe struct {
	URL          string
	ExpectStatus int

	// Client overrides the default probe client, mainly for tests.
	Client *http.Client
}

func (p *HTTPProbe) Probe(ctx context.Context) (health.Status, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return health.StatusDown, fmt.Errorf("build request for %s: %w", p.URL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return health.StatusDown, fmt.Errorf("GET %s: %w", p.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != p.ExpectStatus {
		return health.StatusDown, fmt.Errorf("GET %s: status %d, want %d", p.URL, resp.StatusCode, p.ExpectStatus)
	}
	return health.StatusHealthy, nil
}
