package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStopCmd(app *app) *cobra.Command {
	var pid int

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Deregister a working session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pid == 0 {
				ancestor, err := app.procs.FindAncestor(cmd.Context(), app.cfg.reporterName)
				if err != nil {
					return fmt.Errorf("resolve reporter pid: %w", err)
				}
				pid = ancestor
			}

			if err := app.arbiter.Deregister(cmd.Context(), pid); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deregistered session for pid %d.\n", pid)
			return err
		},
	}

	cmd.Flags().IntVar(&pid, "pid", 0, "Session pid (default: nearest reporter ancestor)")

	return cmd
}
