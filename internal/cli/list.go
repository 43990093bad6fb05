package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/addonreg/addonreg/internal/installer"
	"github.com/spf13/cobra"
)

var (
	listInstalled    bool
	listNotInstalled bool
	listOutdated     bool
	listCategory     string
	listSearch       string
	listJSON         bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog and installed addons",
	Long:  `List every addon known to the catalog or present in the addons directory.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listInstalled, "installed", false, "Only installed addons")
	listCmd.Flags().BoolVar(&listNotInstalled, "not-installed", false, "Only addons that are not installed")
	listCmd.Flags().BoolVar(&listOutdated, "outdated", false, "Only installed addons with a newer catalog version")
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Match name or author (case-insensitive)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.MarkFlagsMutuallyExclusive("installed", "not-installed")
	rootCmd.AddCommand(listCmd)
}

// listFilter selects statuses for display.
type listFilter struct {
	installed    bool
	notInstalled bool
	outdated     bool
	category     string
	search       string
}

func (f listFilter) matches(st installer.Status) bool {
	if f.installed && st.Installed == nil {
		return false
	}
	if f.notInstalled && st.Installed != nil {
		return false
	}
	if f.outdated && !st.Outdated() {
		return false
	}
	if f.category != "" {
		if st.Record == nil || !strings.EqualFold(st.Record.Info.Category, f.category) {
			return false
		}
	}
	if f.search != "" {
		q := strings.ToLower(f.search)
		fields := []string{st.Name}
		if st.Record != nil {
			fields = append(fields, st.Record.Info.Name, st.Record.Info.Author)
		}
		found := false
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// listEntry represents an addon for display.
type listEntry struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Category    string `json:"category,omitempty"`
	Available   string `json:"available,omitempty"`
	Installed   string `json:"installed,omitempty"`
	Outdated    bool   `json:"outdated,omitempty"`
	Description string `json:"description,omitempty"`
	Expanded    bool   `json:"-"`
}

func toListEntry(st installer.Status) listEntry {
	e := listEntry{Name: st.Name, Outdated: st.Outdated()}
	if st.Record != nil {
		e.DisplayName = st.Record.Info.Name
		e.Category = st.Record.Info.Category
		e.Available = st.Record.Info.Version.String()
		e.Description = st.Record.Info.Description
		e.Expanded = st.Record.Expanded
	}
	if st.Installed != nil {
		e.Installed = st.Installed.Version.String()
		if st.Installed.Untracked() {
			e.Installed = "?"
		}
	}
	return e
}

func runList(cmd *cobra.Command, args []string) error {
	svc := newService()
	statuses, err := svc.Statuses()
	if err != nil {
		return fmt.Errorf("listing addons: %w", err)
	}

	filter := listFilter{
		installed:    listInstalled,
		notInstalled: listNotInstalled,
		outdated:     listOutdated,
		category:     listCategory,
		search:       listSearch,
	}
	var entries []listEntry
	for _, st := range statuses {
		if filter.matches(st) {
			entries = append(entries, toListEntry(st))
		}
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching addons.")
		return nil
	}
	if listJSON {
		return printListJSON(cmd, entries)
	}
	return printListTable(cmd, entries)
}

func printListTable(cmd *cobra.Command, entries []listEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tAVAILABLE\tINSTALLED")
	for _, e := range entries {
		installed := e.Installed
		if installed == "" {
			installed = "-"
		} else if e.Outdated {
			installed += " (outdated)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, dash(e.Category), dash(e.Available), installed)
		if e.Expanded && e.Description != "" {
			fmt.Fprintf(w, "  %s\t\t\t\n", e.Description)
		}
	}
	return w.Flush()
}

func printListJSON(cmd *cobra.Command, entries []listEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
