package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/spf13/cobra"
)

var upgradeDryRun bool

var upgradeCmd = &cobra.Command{
	Use:     "upgrade",
	Aliases: []string{"update-all"},
	Short:   "Sync and upgrade every outdated addon",
	Long: `Sync the catalog, then reinstall every installed addon whose catalog version is
newer than the installed one. Stops at the first addon that fails.`,
	Args: cobra.NoArgs,
	RunE: runUpgrade,
}

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeDryRun, "dry-run", false, "List outdated addons without syncing or installing")
	rootCmd.AddCommand(upgradeCmd)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	svc := newService()
	out := cmd.OutOrStdout()

	if upgradeDryRun {
		outdated, err := svc.Outdated()
		if err != nil {
			return err
		}
		if len(outdated) == 0 {
			fmt.Fprintln(out, "All installed addons are up to date.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tINSTALLED\tAVAILABLE")
		for _, st := range outdated {
			fmt.Fprintf(w, "%s\t%s\t%s\n", st.Name, st.Installed.Version, st.Record.Info.Version)
		}
		return w.Flush()
	}

	report, err := svc.UpgradeAll(cmd.Context())
	for _, res := range report.Installed {
		if res.Pending == nil {
			printInstalled(out, res)
		}
	}
	if err != nil {
		if kind, _ := addon.OutcomeOf(err); kind == addon.FailedRetrieveAddonList {
			fmt.Fprintf(out, "Warning: %v\n", err)
			return nil
		}
		if n := len(report.Installed); n > 0 {
			printInstallFailure(out, report.Installed[n-1], err)
		}
		return err
	}
	if len(report.Installed) == 0 {
		fmt.Fprintln(out, "All installed addons are up to date.")
	}
	return nil
}
