package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStartCmd(app *app) *cobra.Command {
	var pid int
	var origin string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Register a working session and enable sleep prevention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pid == 0 {
				ancestor, err := app.procs.FindAncestor(cmd.Context(), app.cfg.reporterName)
				if err != nil {
					return fmt.Errorf("resolve reporter pid: %w", err)
				}
				pid = ancestor
			}

			if origin == "" {
				if location := app.procs.Location(cmd.Context(), pid); location != "unknown" {
					origin = location
				}
			}

			if err := app.arbiter.Register(cmd.Context(), pid, origin); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Registered session for pid %d.\n", pid)
			return err
		},
	}

	cmd.Flags().IntVar(&pid, "pid", 0, "Session pid (default: nearest reporter ancestor)")
	cmd.Flags().StringVar(&origin, "origin", "", "Where the session runs (default: detected from the process)")

	return cmd
}
