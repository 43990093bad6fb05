package cli

import (
	"testing"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/installer"
	"github.com/addonreg/addonreg/internal/inventory"
)

func TestListFilterMatches(t *testing.T) {
	rec := &addon.Record{Info: addon.Info{
		Name:     "Node Wrangler",
		Author:   "Bartek Skorupa",
		Category: "Node",
		Version:  addon.Version{3, 4},
	}}
	catalogOnly := installer.Status{Name: "node_wrangler", Record: rec}
	current := installer.Status{Name: "node_wrangler", Record: rec, Installed: &inventory.Module{Name: "node_wrangler", Version: addon.Version{3, 4}}}
	outdated := installer.Status{Name: "node_wrangler", Record: rec, Installed: &inventory.Module{Name: "node_wrangler", Version: addon.Version{3, 3}}}
	manual := installer.Status{Name: "hand_copied", Installed: &inventory.Module{Name: "hand_copied"}}

	tests := []struct {
		name     string
		filter   listFilter
		status   installer.Status
		expected bool
	}{
		{"no filter", listFilter{}, catalogOnly, true},
		{"installed excludes catalog only", listFilter{installed: true}, catalogOnly, false},
		{"installed includes manual copy", listFilter{installed: true}, manual, true},
		{"not installed", listFilter{notInstalled: true}, catalogOnly, true},
		{"not installed excludes installed", listFilter{notInstalled: true}, current, false},
		{"outdated", listFilter{outdated: true}, outdated, true},
		{"outdated excludes current", listFilter{outdated: true}, current, false},
		{"outdated excludes unknown version", listFilter{outdated: true}, manual, false},
		{"category case insensitive", listFilter{category: "node"}, catalogOnly, true},
		{"category mismatch", listFilter{category: "Mesh"}, catalogOnly, false},
		{"category needs a record", listFilter{category: "Node"}, manual, false},
		{"search by key", listFilter{search: "wrangler"}, catalogOnly, true},
		{"search by display name", listFilter{search: "node wr"}, catalogOnly, true},
		{"search by author", listFilter{search: "skorupa"}, catalogOnly, true},
		{"search no match", listFilter{search: "sculpt"}, catalogOnly, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.matches(tt.status); got != tt.expected {
				t.Errorf("matches = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestToListEntry(t *testing.T) {
	st := installer.Status{
		Name:      "x",
		Record:    &addon.Record{Info: addon.Info{Name: "X", Version: addon.Version{2}}},
		Installed: &inventory.Module{Name: "x"},
	}
	e := toListEntry(st)
	if e.Available != "2" || e.Installed != "?" || e.Outdated {
		t.Errorf("entry = %+v", e)
	}
}
