package cli

import (
	"fmt"

	"github.com/addonreg/addonreg/internal/branding"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the catalog from all registries",
	Long: `Fetch every configured registry in order and merge them into the local catalog.
Later registries override earlier ones for the same addon. Addons a registry
no longer lists are dropped; a registry that cannot be reached keeps its
previous entries.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	svc := newService()
	out := cmd.OutOrStdout()

	if len(svc.Configuration().Sources) == 0 {
		fmt.Fprintf(out, "No registries configured. Add one with '%s sources add <url>'.\n", branding.CLIName())
	}

	result, err := svc.Sync(cmd.Context())
	if result == nil {
		return err
	}

	cfg := svc.Configuration()
	for _, f := range result.Failures {
		fmt.Fprintf(out, "Failed to retrieve %s\n  %v\n", f.Source.Location, f.Err)
		if f.Source.ReportURL != "" {
			fmt.Fprintf(out, "  If the error persists, report it at %s\n", f.Source.ReportURL)
		}
	}
	fmt.Fprintf(out, "Catalog has %d addons from %d of %d registries.\n",
		len(result.Catalog), len(result.Fetched), len(cfg.Sources))
	return err
}
