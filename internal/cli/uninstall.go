package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>...",
	Short: "Remove installed addons",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		for _, name := range args {
			if err := svc.Uninstall(name); err != nil {
				return fmt.Errorf("uninstalling %s: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
