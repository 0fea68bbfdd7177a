package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackup-dev/stackup/internal/shell/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded deployment runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("run history is disabled")
			}

			st, err := store.NewSQLiteStore(cfg.History.DSN)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), store.ListOptions{Limit: limit})
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Fprintln(os.Stdout, "no recorded runs")
				return nil
			}

			fmt.Fprintf(os.Stdout, "%-38s %-12s %-8s %-8s %s\n",
				"RUN", "ENVIRONMENT", "RESULT", "PHASES", "STARTED")
			for _, run := range runs {
				result := "ok"
				if !run.Summary.OverallSuccess {
					result = "FAILED"
				}
				fmt.Fprintf(os.Stdout, "%-38s %-12s %-8s %d/%-6d %s\n",
					run.Summary.RunID,
					run.Environment,
					result,
					len(run.Summary.Results),
					run.Summary.Requested,
					run.Summary.StartedAt.Local().Format(time.RFC3339),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}
