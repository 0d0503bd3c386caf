package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var seedFlag uint64

	ctx := newCommandContext(&configFlag, &seedFlag)

	rootCmd := &cobra.Command{
		Use:           "stereoprep",
		Short:         "Stereo RGB+NIR training data tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (.json or .toml)")
	rootCmd.PersistentFlags().Uint64Var(&seedFlag, "seed", 0, "Seed for expansion and sample randomness (0 uses the configured seed)")

	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))

	return rootCmd
}
