package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/installer"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var (
	showYAML   bool
	showToggle bool
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show catalog details of an addon",
	Long: `Print the catalog record of an addon. --toggle flips whether 'list' shows the
addon's description, and the choice is remembered.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showYAML, "yaml", false, "Print the raw record as YAML")
	showCmd.Flags().BoolVar(&showToggle, "toggle", false, "Toggle the expanded state in 'list'")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	name := args[0]
	svc := newService()
	out := cmd.OutOrStdout()

	rec, ok := svc.Catalog()[name]
	if !ok {
		return addon.NewError(addon.NotInRegistry, name, nil)
	}

	if showToggle {
		expanded, err := svc.ToggleExpanded(name)
		if err != nil {
			return err
		}
		rec.Expanded = expanded
	}

	if showYAML {
		data, err := yaml.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	var installed *installer.Status
	statuses, err := svc.Statuses()
	if err != nil {
		return err
	}
	for i := range statuses {
		if statuses[i].Name == name {
			installed = &statuses[i]
		}
	}
	printRecord(out, name, rec, installed)
	return nil
}

func printRecord(w io.Writer, name string, rec *addon.Record, st *installer.Status) {
	info := rec.Info
	fmt.Fprintf(w, "%s (%s)\n", info.Name, name)
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
		}
	}
	field("Version", info.Version.String())
	field("Category", info.Category)
	field("Author", info.Author)
	field("Description", info.Description)
	field("Location", info.Location)
	if len(info.HostVersion) > 0 {
		field("Requires", info.HostVersion.String())
	}
	field("Wiki", info.WikiURL)
	field("Tracker", info.TrackerURL)
	field("Archive", rec.URL)
	if alg, sum, ok := rec.Digest(); ok {
		field("Digest", alg+":"+sum)
	} else {
		field("Digest", "none (cannot be installed)")
	}
	if len(rec.Peers) > 0 {
		field("Peers", strings.Join(rec.Peers, ", "))
	}
	field("Registry", rec.SourceLocation)

	switch {
	case st == nil || st.Installed == nil:
		field("Installed", "no")
	case st.Outdated():
		field("Installed", st.Installed.Version.String()+" (update available)")
	case st.Installed.Untracked():
		field("Installed", "yes (unknown version)")
	default:
		field("Installed", st.Installed.Version.String())
	}
	field("Expanded", fmt.Sprint(rec.Expanded))

	if info.Warning != "" {
		fmt.Fprintf(w, "\nWarning: %s\n", info.Warning)
	}
}
