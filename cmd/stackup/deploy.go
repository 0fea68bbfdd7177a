package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackup-dev/stackup/internal/core/precheck"
	"github.com/stackup-dev/stackup/internal/core/report"
	"github.com/stackup-dev/stackup/internal/shell/deploy"
	"github.com/stackup-dev/stackup/internal/shell/secrets"
	"github.com/stackup-dev/stackup/internal/shell/store"
)

func newDeployCmd() *cobra.Command {
	var (
		environment       string
		continueOnFailure bool
		dryRun            bool
		skipBuild         bool
		skipValidation    bool
		generateSecrets   bool
	)

	cmd := &cobra.Command{
		Use:   "deploy [phase]",
		Short: "Deploy one phase or the whole stack",
		Long: `Deploy brings up the named phase, or every phase in order when called
with "all" or no argument. Each phase is health-gated: the next phase
starts only after every service of the current one reports ready.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector := ""
			if len(args) == 1 {
				selector = args[0]
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if generateSecrets {
				gen := secrets.NewGenerator(a.cfg.Secrets.EnvFile, a.logger)
				if _, err := gen.Generate(precheck.RequiredSecrets()); err != nil {
					return fmt.Errorf("generate secrets: %w", err)
				}
			}

			runner := a.newRunner(environment)
			summary, err := runner.Run(cmd.Context(), deploy.Options{
				Selector:          selector,
				Environment:       environment,
				ContinueOnFailure: continueOnFailure,
				DryRun:            dryRun,
				SkipBuild:         skipBuild,
				SkipValidation:    skipValidation,
			})
			if err != nil {
				return err
			}

			summary.Render(os.Stdout)

			if a.cfg.SummaryFile != "" {
				if err := summary.WriteFile(a.cfg.SummaryFile); err != nil {
					a.logger.Warn("could not write summary file", "error", err)
				}
			}
			if a.cfg.History.Enabled && !dryRun {
				saveHistory(cmd.Context(), a, environment, summary)
			}

			if summary.ExitCode != report.ExitSuccess {
				return fmt.Errorf("deployment failed (run %s)", summary.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&environment, "env", "production", "environment tag for logs and history")
	cmd.Flags().BoolVar(&continueOnFailure, "continue-on-failure", false, "run remaining phases after a failed one")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the plan without touching the runtime")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "reuse existing images")
	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "skip environment prechecks")
	cmd.Flags().BoolVar(&generateSecrets, "generate-secrets", false, "generate missing required secrets first")

	return cmd
}

// saveHistory records the run in the history store. History is best-effort:
// a storage problem never fails a deployment.
func saveHistory(ctx context.Context, a *app, environment string, summary report.Summary) {
	st, err := store.NewSQLiteStore(a.cfg.History.DSN)
	if err != nil {
		a.logger.Warn("could not open history store", "error", err)
		return
	}
	defer st.Close()

	if err := st.SaveRun(ctx, environment, summary); err != nil {
		a.logger.Warn("could not record run history", "error", err)
	}
}
