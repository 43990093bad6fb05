package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/branding"
	"github.com/addonreg/addonreg/internal/installer"
	"github.com/spf13/cobra"
)

var installSync bool

var installCmd = &cobra.Command{
	Use:   "install <name>...",
	Short: "Download, verify and install addons",
	Long: `Install addons from the catalog. Each archive is downloaded, its digest is
checked against the catalog record, and only then is any existing copy replaced.
Installation stops at the first addon that fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installSync, "sync", false, "Sync the catalog before installing")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	svc := newService()
	out := cmd.OutOrStdout()

	if installSync {
		if _, err := svc.Sync(cmd.Context()); err != nil {
			if _, ok := addon.OutcomeOf(err); !ok {
				return err
			}
			fmt.Fprintf(out, "Warning: %v\n", err)
		}
	}

	for _, name := range args {
		res, err := svc.Install(cmd.Context(), name)
		if err != nil {
			printInstallFailure(out, res, err)
			return err
		}
		printInstalled(out, res)
	}
	return nil
}

func printInstalled(w io.Writer, res *installer.Result) {
	fmt.Fprintf(w, "Installed %s %s\n", res.Name, res.Version)
	for _, p := range res.Paths {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

func printInstallFailure(w io.Writer, res *installer.Result, err error) {
	if !errors.Is(err, addon.ErrExtractManually) || res == nil || res.Pending == nil {
		return
	}
	fmt.Fprintf(w, "The archive for %s could not be extracted automatically.\n", res.Name)
	fmt.Fprintf(w, "It was kept at %s\n", res.Pending.Path)
	fmt.Fprintf(w, "Save it with '%s pending save %s <destination>' and extract it into the addons directory.\n",
		branding.CLIName(), res.Name)
}
