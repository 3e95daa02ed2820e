package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "newsdesk",
		Short:         "Pull news feeds and build a timed rundown",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.errOut = cmd.ErrOrStderr()
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newPullCommand(ctx))
	rootCmd.AddCommand(newSourcesCommand(ctx))
	rootCmd.AddCommand(newRundownCommand(ctx))
	rootCmd.AddCommand(newSettingsCommand(ctx))

	return rootCmd
}
