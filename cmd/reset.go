package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop every session and restore the OS sleep default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.arbiter.Reset(cmd.Context()); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Session registry cleared.")
			return err
		},
	}
}
