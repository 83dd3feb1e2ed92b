package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"almmr/internal/config"
)

const defaultConfigPath = "almmr.yaml"

func getConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Manages the configuration file",
		Annotations: map[string]string{"config": "skip"},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Writes a configuration file with the built-in defaults",
		Long: `Writes a YAML configuration file with the built-in defaults. An existing
file is never overwritten.

Examples:
  almmr config init
  almmr config init ./config/almmr.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default config at: %s\n", path)
			return nil
		},
	})
	return cmd
}
