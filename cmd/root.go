package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nexus",
		Short:         "nexus: shared event log for coordinating multiple agents",
		Long:          "nexus records agent events in a shared append-only log and regenerates human- and machine-readable snapshots of recent and archived interactions.",
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
		newInitCmd(app),
		newEventCmd(app),
		newSnapshotCmd(app),
		newAgentCmd(app),
		newWatchCmd(app),
	)

	return rootCmd
}
