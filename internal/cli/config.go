package cli

import (
	"fmt"
	"strings"

	"github.com/addonreg/addonreg/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write settings stored at ~/.addonreg/config.yaml.
Keys: ` + strings.Join(config.Keys, ", ") + `.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		var value string
		switch key {
		case config.KeyAddonsDir:
			value = config.AddonsDir()
		case config.KeyStateFile:
			value = config.StatePath()
		case config.KeyTmpDir:
			value = config.TmpDir()
		default:
			if !config.IsKnownKey(key) {
				return fmt.Errorf("unknown config key %q", key)
			}
			value = config.Get(key)
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}
