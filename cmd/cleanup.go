package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove dead and idle sessions, then reconcile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := app.reaper.Sweep(cmd.Context())
			if err != nil {
				return err
			}

			app.arbiter.Reconcile(cmd.Context())

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale session(s).\n", removed)
			return err
		},
	}
}
