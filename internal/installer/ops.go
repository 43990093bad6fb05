package installer

import (
	"context"
	"fmt"
	"sort"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/inventory"
	"github.com/addonreg/addonreg/internal/registry"
)

// Status joins a catalog record with the matching installed unit. Either
// side may be missing.
type Status struct {
	Name      string
	Record    *addon.Record
	Installed *inventory.Module
}

// Outdated reports whether the catalog offers a newer version than the
// installed one. Units installed without a receipt have no known version
// and are never reported as outdated.
func (st Status) Outdated() bool {
	if st.Record == nil || st.Installed == nil || st.Installed.Version == nil {
		return false
	}
	return addon.IsNewer(st.Record.Info.Version, st.Installed.Version)
}

// Statuses lists every catalog entry and every installed unit, sorted by name.
func (s *Service) Statuses() ([]Status, error) {
	mods, err := s.inventory.Installed()
	if err != nil {
		return nil, err
	}
	catalog := s.Catalog()

	byName := make(map[string]*Status, len(catalog)+len(mods))
	for name, rec := range catalog {
		byName[name] = &Status{Name: name, Record: rec}
	}
	for i := range mods {
		m := &mods[i]
		st, ok := byName[m.Name]
		if !ok {
			st = &Status{Name: m.Name}
			byName[m.Name] = st
		}
		st.Installed = m
	}

	out := make([]Status, 0, len(byName))
	for _, st := range byName {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Outdated lists installed units with a newer catalog version.
func (s *Service) Outdated() ([]Status, error) {
	all, err := s.Statuses()
	if err != nil {
		return nil, err
	}
	var out []Status
	for _, st := range all {
		if st.Outdated() {
			out = append(out, st)
		}
	}
	return out, nil
}

// UpgradeReport is the outcome of UpgradeAll.
type UpgradeReport struct {
	Sync      *registry.MergeResult
	Installed []*Result
}

// UpgradeAll syncs the catalog and reinstalls every outdated unit in name
// order, stopping at the first failed install. A partially failed sync
// does not stop the upgrade; its error is returned when no install fails.
func (s *Service) UpgradeAll(ctx context.Context) (*UpgradeReport, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	report := &UpgradeReport{}
	result, syncErr := s.sync(ctx)
	report.Sync = result
	if _, ok := addon.OutcomeOf(syncErr); !ok {
		return report, syncErr
	}

	outdated, err := s.Outdated()
	if err != nil {
		return report, err
	}
	for _, st := range outdated {
		res, err := s.install(ctx, st.Name)
		if res != nil {
			report.Installed = append(report.Installed, res)
		}
		if err != nil {
			return report, err
		}
	}
	return report, syncErr
}

// Uninstall removes an installed unit.
func (s *Service) Uninstall(name string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.inventory.Remove(name)
}

// ToggleExpanded flips the expanded display state of a catalog entry and
// returns the new value.
func (s *Service) ToggleExpanded(name string) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	rec, ok := s.cfg.Catalog[name]
	if !ok {
		s.mu.Unlock()
		return false, addon.NewError(addon.NotInRegistry, name, nil)
	}
	rec.Expanded = !rec.Expanded
	expanded := rec.Expanded
	s.mu.Unlock()

	return expanded, s.persist()
}

// Reset restores the default configuration and saves it. Installed units
// are left alone.
func (s *Service) Reset() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.cfg = s.defaults()
	s.mu.Unlock()
	return s.persist()
}

// AddSource appends a registry source, giving it the highest precedence.
func (s *Service) AddSource(src addon.Source) error {
	if src.Location == "" {
		return fmt.Errorf("registry location is empty")
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.cfg.SourceIndex(src.Location) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("registry %s is already configured", src.Location)
	}
	s.cfg.Sources = append(s.cfg.Sources, src)
	s.mu.Unlock()
	return s.persist()
}

// RemoveSource drops a registry source together with the catalog entries
// it contributed. It returns how many entries were dropped.
func (s *Service) RemoveSource(location string) (int, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	i := s.cfg.SourceIndex(location)
	if i < 0 {
		s.mu.Unlock()
		return 0, fmt.Errorf("registry %s is not configured", location)
	}
	s.cfg.Sources = append(s.cfg.Sources[:i], s.cfg.Sources[i+1:]...)
	dropped := 0
	for name, rec := range s.cfg.Catalog {
		if rec.SourceLocation == location {
			delete(s.cfg.Catalog, name)
			dropped++
		}
	}
	s.mu.Unlock()
	return dropped, s.persist()
}

// SetNetwork replaces the proxy map and connect timeout.
func (s *Service) SetNetwork(n addon.Network) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.cfg.Network = n
	s.mu.Unlock()
	return s.persist()
}
