package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

func newDebugCmd(a *app) *cobra.Command {
	debugCmd := &cobra.Command{
		Use:   "debug",
		Short: "Debugging utilities (not for general use)",
		Long:  `Contains helper commands for debugging application behavior, like inspecting configuration.`,
	}

	var format string
	showConfigCmd := &cobra.Command{
		Use:   "show-config",
		Short: "Print the fully loaded configuration",
		Long: `Loads configuration via flags, environment and config file (respecting precedence)
and prints the final resulting configuration to stdout as JSON or TOML.
Useful for verifying how settings are merged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// a.cfg is populated by PersistentPreRunE
			switch format {
			case "json":
				jsonBytes, err := json.MarshalIndent(a.cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal config to JSON: %w", err)
				}
				fmt.Fprintln(a.out, string(jsonBytes))
			case "toml":
				if err := toml.NewEncoder(a.out).Encode(a.cfg); err != nil {
					return fmt.Errorf("failed to marshal config to TOML: %w", err)
				}
			default:
				return fmt.Errorf("unknown format %q (want json or toml)", format)
			}
			return nil
		},
	}
	showConfigCmd.Flags().StringVar(&format, "format", "json", "Output format (json, toml)")

	debugCmd.AddCommand(showConfigCmd)
	return debugCmd
}
