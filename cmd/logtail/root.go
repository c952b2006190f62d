package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "/app/cfg.yaml"

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "logtail",
		Short:         "Tail log files and forward multi-line records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", defaultConfigPath, "Configuration file path (.yaml or .toml)")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newCheckCommand(&configFlag))
	rootCmd.AddCommand(newScanCommand(&configFlag))

	return rootCmd
}
