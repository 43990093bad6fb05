package cli

import (
	"fmt"

	"github.com/addonreg/addonreg/internal/config"
	"github.com/addonreg/addonreg/internal/doctor"
	"github.com/addonreg/addonreg/internal/fetch"
	"github.com/addonreg/addonreg/internal/platform"
	"github.com/spf13/cobra"
)

var (
	doctorFix           bool
	doctorCheckRegistry bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Create missing directories")
	doctorCmd.Flags().BoolVar(&doctorCheckRegistry, "check-registry", false, "Fetch and validate every configured registry")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the local installation",
	Long:  `Run diagnostic checks on directories, the registry state and the external archiver.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		report := doctor.CheckSetup(out, doctor.Paths{
			ConfigDir:  config.Dir(),
			StateFile:  config.StatePath(),
			AddonsDir:  config.AddonsDir(),
			PendingDir: config.PendingDir(),
		}, platform.LookArchiver, doctorFix)

		if doctorCheckRegistry {
			cfg := newService().Configuration()
			client := fetch.New(cfg.Network, fetchOptions()...)
			fmt.Fprintln(out)
			reg := doctor.CheckRegistries(cmd.Context(), out, client, cfg.Sources)
			report.Fail += reg.Fail
			report.Warn += reg.Warn
		}

		fmt.Fprintf(out, "\n%d ok, %d warnings, %d failures\n", report.OK, report.Warn, report.Fail)
		if !report.Healthy() {
			return fmt.Errorf("%d checks failed", report.Fail)
		}
		return nil
	},
}
