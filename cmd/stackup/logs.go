package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var tail string

	cmd := &cobra.Command{
		Use:   "logs <phase> <service>",
		Short: "Print the logs of one managed service",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.engine.Logs(cmd.Context(), args[0], args[1], tail)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, logs)
			return nil
		},
	}

	cmd.Flags().StringVar(&tail, "tail", "100", "number of lines to show from the end")
	return cmd
}
