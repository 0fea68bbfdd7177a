package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackup-dev/stackup/internal/core/health"
	"github.com/stackup-dev/stackup/internal/core/phase"
	"github.com/stackup-dev/stackup/internal/shell/deploy"
	"github.com/stackup-dev/stackup/internal/shell/docker"
	"github.com/stackup-dev/stackup/internal/shell/probe"
	"github.com/stackup-dev/stackup/internal/shell/validate"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stackup",
	Short: "Phased service stack deployment with health gating",
	Long: `stackup deploys a service stack in ordered phases, gating each phase
on the health of its services before the next phase starts. A phase
that fails its health gate aborts the run unless told otherwise.`,
	// SilenceUsage prevents printing the usage block on runtime errors;
	// those are reported by the commands themselves.
	SilenceUsage: true,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newDownCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// =============================================================================
// App Wiring
// =============================================================================

// app bundles the long-lived collaborators a command needs.
type app struct {
	cfg    *Config
	logger *slog.Logger
	engine *docker.Engine
	client *docker.DockerClient
}

// newApp loads configuration and connects to the container runtime.
func newApp() (*app, error) {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logger := SetupLogger(cfg)

	client, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		engine: docker.NewEngine(client, logger),
		client: client,
	}, nil
}

func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
}

// retryPolicy maps the health config onto the gate's polling policy.
func (a *app) retryPolicy() health.RetryPolicy {
	policy := health.DefaultRetryPolicy()
	if a.cfg.Health.PollInterval > 0 {
		policy.Interval = a.cfg.Health.PollInterval
	}
	if a.cfg.Health.ServiceTimeout > 0 {
		policy.Timeout = a.cfg.Health.ServiceTimeout
	}
	return policy
}

// newRunner wires the full deployment pipeline.
func (a *app) newRunner(environment string) *deploy.Runner {
	vars := environSnapshot()
	vars["ENVIRONMENT"] = environment

	executor := deploy.NewPhaseExecutor(a.engine, a.cfg.ManifestDir, vars, a.logger)
	gate := deploy.NewHealthGate(a.proberFactory(), a.retryPolicy(), a.logger)
	validator := validate.NewValidator(a.engine, a.cfg.DataDir, a.logger)

	return deploy.NewRunner(a.registry(), executor, gate, validator, a.logger)
}

func (a *app) registry() *phase.Registry {
	return phase.DefaultRegistry()
}

func (a *app) proberFactory() deploy.ProberFactory {
	return func(phaseName string, svc phase.ServiceRef) (probe.Prober, error) {
		return probe.ForService(a.engine, phaseName, svc)
	}
}

// environSnapshot captures the process environment for manifest variable
// substitution.
func environSnapshot() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
