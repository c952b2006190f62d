package main

import (
	"fmt"

	"github.com/MuchTitan/logtail/internal/config"
	"github.com/spf13/cobra"
)

func newCheckCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and list its plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			engine, err := config.NewPluginEngineFromConfig(cfg)
			if err != nil {
				return err
			}
			defer engine.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config %s is valid\n", *configPath)
			sections := []struct {
				name    string
				plugins []map[string]any
			}{
				{"inputs", cfg.Inputs},
				{"parsers", cfg.Parsers},
				{"filters", cfg.Filters},
				{"outputs", cfg.Outputs},
			}
			for _, section := range sections {
				fmt.Fprintf(out, "%s: %d\n", section.name, len(section.plugins))
				for _, plugin := range section.plugins {
					fmt.Fprintf(out, "  - %s\n", config.Describe(plugin))
				}
			}
			return nil
		},
	}
}
