package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wakeguard",
		Short:         "wakeguard: keep the machine awake while registered work is running",
		Long:          "wakeguard arbitrates system sleep prevention. Reporter processes register sessions while they work; the daemon keeps the machine awake as long as at least one live session remains and releases it the moment the registry drains or the machine overheats.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newStartCmd(app),
		newStopCmd(app),
		newStatusCmd(app),
		newListCmd(app),
		newCleanupCmd(app),
		newResetCmd(app),
		newThermalCmd(app),
		newDaemonCmd(app),
	)

	return rootCmd
}
