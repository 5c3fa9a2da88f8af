package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "sglxpipe",
		Short: "Batch SpikeGLX preprocessing, sorting and alignment",
		Long: "sglxpipe runs CatGT, the spike sorter with its post-processing modules and TPrime\n" +
			"over every run listed in a run table, writing one configuration record per stage\n" +
			"and one run log row per probe.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $SGLXPIPE_CONFIG or ~/.config/sglxpipe/config.toml)")

	rootCmd.AddCommand(
		newRunCommand(ctx),
		newPlanCommand(ctx),
		newHistoryCommand(ctx),
		newLogsCommand(ctx),
		newCheckCommand(ctx),
		newConfigCommand(ctx),
	)
	return rootCmd
}
