package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sessions and idle reporter processes as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listing, err := app.arbiter.List(cmd.Context(), app.cfg.reporterName)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(listing)
		},
	}
}
