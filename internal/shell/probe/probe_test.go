package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackup-dev/stackup/internal/core/health"
	"github.com/stackup-dev/stackup/internal/core/phase"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeRunner struct {
	exitCode int
	execErr  error
	running  bool
}

func (f *fakeRunner) ExecProbe(ctx context.Context, phaseName, service string, cmd []string) (int, error) {
	return f.exitCode, f.execErr
}

func (f *fakeRunner) ServiceRunning(ctx context.Context, phaseName, service string) (bool, error) {
	return f.running, nil
}

// =============================================================================
// CommandProbe Tests
// =============================================================================

func TestCommandProbe_ExitZeroIsHealthy(t *testing.T) {
	p := &CommandProbe{
		runner:  &fakeRunner{exitCode: 0},
		phase:   "infrastructure",
		service: "db",
		command: []string{"pg_isready"},
	}

	status, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.StatusHealthy, status)
}

func TestCommandProbe_NonzeroExitIsDown(t *testing.T) {
	p := &CommandProbe{
		runner:  &fakeRunner{exitCode: 1},
		phase:   "infrastructure",
		service: "db",
		command: []string{"pg_isready"},
	}

	status, err := p.Probe(context.Background())
	assert.Error(t, err)
	assert.Equal(t, health.StatusDown, status)
}

func TestCommandProbe_UnavailableCommandWhileRunningIsDegraded(t *testing.T) {
	// Exit 127 with a running container means "running, no explicit
	// health info".
	p := &CommandProbe{
		runner:  &fakeRunner{exitCode: 127, running: true},
		phase:   "platform",
		service: "worker",
		command: []string{"healthcheck"},
	}

	status, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.StatusDegraded, status)
}

func TestCommandProbe_UnavailableCommandWhileStoppedIsDown(t *testing.T) {
	p := &CommandProbe{
		runner:  &fakeRunner{exitCode: 127, running: false},
		phase:   "platform",
		service: "worker",
		command: []string{"healthcheck"},
	}

	status, err := p.Probe(context.Background())
	assert.Error(t, err)
	assert.Equal(t, health.StatusDown, status)
}

func TestCommandProbe_ExecErrorIsDown(t *testing.T) {
	p := &CommandProbe{
		runner:  &fakeRunner{execErr: errors.New("container not found")},
		phase:   "infrastructure",
		service: "db",
		command: []string{"pg_isready"},
	}

	status, err := p.Probe(context.Background())
	assert.Error(t, err)
	assert.Equal(t, health.StatusDown, status)
}

// =============================================================================
// TCPProbe Tests
// =============================================================================

func TestTCPProbe_OpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := &TCPProbe{Address: ln.Addr().String()}

	status, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.StatusHealthy, status)
}

func TestTCPProbe_ClosedPort(t *testing.T) {
	// Grab a free port, then close the listener so nothing is there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	p := &TCPProbe{Address: addr}

	status, err := p.Probe(context.Background())
	assert.Error(t, err)
	assert.Equal(t, health.StatusDown, status)
}

// =============================================================================
// HTTPProbe Tests
// =============================================================================

func TestHTTPProbe_ExpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := &HTTPProbe{URL: srv.URL + "/health", ExpectStatus: http.StatusOK}

	status, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.StatusHealthy, status)
}

func TestHTTPProbe_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := &HTTPProbe{URL: srv.URL + "/health", ExpectStatus: http.StatusOK}

	status, err := p.Probe(context.Background())
	assert.Error(t, err)
	assert.Equal(t, health.StatusDown, status)
}

func TestHTTPProbe_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := &HTTPProbe{URL: url, ExpectStatus: http.StatusOK}

	status, err := p.Probe(context.Background())
	assert.Error(t, err)
	assert.Equal(t, health.StatusDown, status)
}

// =============================================================================
// ForService Tests
// =============================================================================

func TestForService_MapsKinds(t *testing.T) {
	runner := &fakeRunner{}

	tests := []struct {
		name string
		svc  phase.ServiceRef
		want any
	}{
		{
			name: "command",
			svc: phase.ServiceRef{Name: "db", Probe: phase.ProbeSpec{
				Kind: phase.ProbeCommand, Command: []string{"pg_isready"},
			}},
			want: &CommandProbe{},
		},
		{
			name: "tcp",
			svc: phase.ServiceRef{Name: "proxy", Probe: phase.ProbeSpec{
				Kind: phase.ProbeTCP, Address: "localhost:443",
			}},
			want: &TCPProbe{},
		},
		{
			name: "http",
			svc: phase.ServiceRef{Name: "api", Probe: phase.ProbeSpec{
				Kind: phase.ProbeHTTP, URL: "http://localhost:8080/health",
			}},
			want: &HTTPProbe{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ForService(runner, "infrastructure", tt.svc)
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestForService_HTTPDefaultsTo200(t *testing.T) {
	p, err := ForService(&fakeRunner{}, "platform", phase.ServiceRef{
		Name:  "api",
		Probe: phase.ProbeSpec{Kind: phase.ProbeHTTP, URL: "http://localhost/health"},
	})
	require.NoError(t, err)

	httpProbe, ok := p.(*HTTPProbe)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, httpProbe.ExpectStatus)
}

func TestForService_EmptyCommandRejected(t *testing.T) {
	_, err := ForService(&fakeRunner{}, "infrastructure", phase.ServiceRef{
		Name:  "db",
		Probe: phase.ProbeSpec{Kind: phase.ProbeCommand},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty command")
}

func TestForService_UnknownKind(t *testing.T) {
	_, err := ForService(&fakeRunner{}, "platform", phase.ServiceRef{
		Name:  "x",
		Probe: phase.ProbeSpec{Kind: "grpc"},
	})
	assert.ErrorIs(t, err, ErrUnknownProbeKind)
}
