package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newThermalCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thermal",
		Short: "Run a thermal check and reconcile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tripped, err := app.safety.Check(cmd.Context())
			if err != nil {
				return err
			}

			app.arbiter.Reconcile(cmd.Context())

			message := "Thermal state: OK"
			if tripped {
				message = "Thermal safety latch tripped. Sessions were cleared and sleep prevention is held off."
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), message)
			return err
		},
	}
}
