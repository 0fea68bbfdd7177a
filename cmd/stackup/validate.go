package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackup-dev/stackup/internal/core/precheck"
	"github.com/stackup-dev/stackup/internal/shell/validate"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the environment without deploying",
		Long: `Validate runs every pre-deployment check (runtime reachability, host
resources, required secrets, conflicting services) and reports the
results. Nothing is deployed or modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			validator := validate.NewValidator(a.engine, a.cfg.DataDir, a.logger)
			report := validator.Validate(cmd.Context())

			renderChecks(report)

			if !report.Passed() {
				return fmt.Errorf("%d check(s) failed", len(report.Failures()))
			}
			return nil
		},
	}
}

func renderChecks(report precheck.Report) {
	fmt.Fprintf(os.Stdout, "%-20s %-6s %s\n", "CHECK", "STATUS", "DETAIL")
	for _, c := range report.Checks {
		fmt.Fprintf(os.Stdout, "%-20s %-6s %s\n", c.Name, string(c.Status), c.Detail)
	}
	if report.Passed() {
		fmt.Fprintln(os.Stdout, "\nenvironment is deployable")
	}
}
