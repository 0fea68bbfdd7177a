package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of managed containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			services, err := a.engine.Ps(cmd.Context())
			if err != nil {
				return err
			}

			if len(services) == 0 {
				fmt.Fprintln(os.Stdout, "no managed containers")
				return nil
			}

			fmt.Fprintf(os.Stdout, "%-16s %-10s %-30s %-10s %s\n",
				"PHASE", "SERVICE", "CONTAINER", "STATE", "HEALTH")
			for _, s := range services {
				health := s.Health
				if health == "" {
					health = "-"
				}
				fmt.Fprintf(os.Stdout, "%-16s %-10s %-30s %-10s %s\n",
					s.Phase, s.Service, s.Container, s.State, health)
			}
			return nil
		},
	}
}
