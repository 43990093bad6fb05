package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/spf13/cobra"
)

var sourcesReportURL string

func init() {
	sourcesAddCmd.Flags().StringVar(&sourcesReportURL, "report-url", "", "Where users should report problems with this registry")
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage registry sources",
	Long: `Registries are merged in list order: a later registry overrides an earlier one
for the same addon name. Locations may be http(s) or s3:// URLs, or local paths.`,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registry sources in precedence order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := newService().Configuration()
		if len(cfg.Sources) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No registries configured.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "#\tLOCATION\tREPORT")
		for i, src := range cfg.Sources {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, src.Location, dash(src.ReportURL))
		}
		return w.Flush()
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <location>",
	Short: "Add a registry with the highest precedence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := addon.Source{Location: args[0], ReportURL: sourcesReportURL}
		if err := newService().AddSource(src); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added registry %s\n", src.Location)
		return nil
	},
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <location>",
	Short: "Remove a registry and the addons it contributed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dropped, err := newService().RemoveSource(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed registry %s (%d catalog entries dropped)\n", args[0], dropped)
		return nil
	},
}
