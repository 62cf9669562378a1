package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charlontank/wakeguard/internal/application"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the arbitration state and active sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := app.arbiter.Status(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			var listing application.Listing
			gather := func(ctx context.Context) error {
				var gatherErr error
				listing, gatherErr = app.arbiter.List(ctx, app.cfg.reporterName)
				return gatherErr
			}

			if err := runGatherSpinner(cmd.Context(), cmd.ErrOrStderr(), gather); err != nil {
				return err
			}

			rendered, err := app.statusRenderer(status, listing)
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
