package main

import (
	"github.com/spf13/cobra"
)

func newDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down [phase]",
		Short: "Tear down one phase or the whole stack",
		Long: `Down stops and removes the managed containers of the named phase, or
of every phase when called with "all" or no argument. Phases are torn
down in reverse deployment order. Volumes are preserved.`,
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

			phases, err := a.registry().Select(selector)
			if err != nil {
				return err
			}

			// Reverse order: edge before platform before infrastructure.
			for i := len(phases) - 1; i >= 0; i-- {
				if err := a.engine.Down(cmd.Context(), phases[i].Name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
