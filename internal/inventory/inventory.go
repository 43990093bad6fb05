package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/addonreg/addonreg/internal/addon"
)

// Module is one installed unit.
type Module struct {
	Name        string        `json:"name"`
	Paths       []string      `json:"paths"`
	Version     addon.Version `json:"version,omitempty"`
	Digest      string        `json:"digest,omitempty"`
	Source      string        `json:"source,omitempty"`
	InstalledAt time.Time     `json:"installed_at"`
}

// Untracked reports whether the unit was found on disk without a receipt,
// for example because it was copied in by hand.
func (m *Module) Untracked() bool {
	return m.InstalledAt.IsZero()
}

// Inventory is the view of installed units the install orchestrator needs.
type Inventory interface {
	// Installed returns every installed unit sorted by name.
	Installed() ([]Module, error)
	// Lookup returns the installed unit with the given name.
	Lookup(name string) (*Module, bool, error)
	// Record stores the receipt of a successful install.
	Record(m Module) error
	// Remove deletes the unit's files and its receipt.
	Remove(name string) error
}

// Dir is a filesystem Inventory over one addons directory.
type Dir struct {
	root     string
	receipts string
	mu       sync.Mutex
}

var _ Inventory = (*Dir)(nil)

// NewDir returns an inventory of root whose receipts are kept in
// receiptsPath.
func NewDir(root, receiptsPath string) *Dir {
	return &Dir{root: root, receipts: receiptsPath}
}

// Root returns the addons directory.
func (d *Dir) Root() string { return d.root }

// Installed merges the receipts with what is actually on disk. Receipts
// whose files are gone are ignored; entries without a receipt are reported
// as untracked with no version.
func (d *Dir) Installed() ([]Module, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	receipts, err := d.load()
	if err != nil {
		return nil, err
	}

	found := map[string]Module{}
	for name, m := range receipts {
		if anyExists(m.Paths) {
			found[name] = m
		}
	}

	dirEntries, err := os.ReadDir(d.root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading addons directory: %w", err)
	}
	for _, e := range dirEntries {
		name, ok := unitName(e)
		if !ok || claimed(found, filepath.Join(d.root, e.Name())) {
			continue
		}
		if _, ok := found[name]; ok {
			continue
		}
		found[name] = Module{Name: name, Paths: []string{filepath.Join(d.root, e.Name())}}
	}

	out := make([]Module, 0, len(found))
	for _, m := range found {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Lookup returns the installed unit with the given name.
func (d *Dir) Lookup(name string) (*Module, bool, error) {
	mods, err := d.Installed()
	if err != nil {
		return nil, false, err
	}
	for i := range mods {
		if mods[i].Name == name {
			return &mods[i], true, nil
		}
	}
	return nil, false, nil
}

// Record writes the receipt for m, replacing any earlier one.
func (d *Dir) Record(m Module) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	receipts, err := d.load()
	if err != nil {
		return err
	}
	if m.InstalledAt.IsZero() {
		m.InstalledAt = time.Now().UTC()
	}
	receipts[m.Name] = m
	return d.save(receipts)
}

// Remove deletes every path of the unit and its receipt. Removing a unit
// that is not installed is an error.
func (d *Dir) Remove(name string) error {
	m, ok, err := d.Lookup(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not installed", name)
	}
	for _, path := range m.Paths {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	receipts, err := d.load()
	if err != nil {
		return err
	}
	if _, ok := receipts[name]; !ok {
		return nil
	}
	delete(receipts, name)
	return d.save(receipts)
}

func (d *Dir) load() (map[string]Module, error) {
	data, err := os.ReadFile(d.receipts)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Module{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading install receipts: %w", err)
	}
	receipts := map[string]Module{}
	if err := json.Unmarshal(data, &receipts); err != nil {
		return nil, fmt.Errorf("parsing install receipts: %w", err)
	}
	return receipts, nil
}

func (d *Dir) save(receipts map[string]Module) error {
	if err := os.MkdirAll(filepath.Dir(d.receipts), 0755); err != nil {
		return fmt.Errorf("creating receipts directory: %w", err)
	}
	data, err := json.MarshalIndent(receipts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling install receipts: %w", err)
	}
	tmp := d.receipts + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing install receipts: %w", err)
	}
	if err := os.Rename(tmp, d.receipts); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing install receipts: %w", err)
	}
	return nil
}

// unitName maps a directory entry to the unit it holds: directories by
// name, single files by name without extension. Hidden and cache entries
// are skipped.
func unitName(e os.DirEntry) (string, bool) {
	name := e.Name()
	if strings.HasPrefix(name, ".") || name == "__pycache__" {
		return "", false
	}
	if e.IsDir() {
		return name, true
	}
	if !e.Type().IsRegular() {
		return "", false
	}
	return strings.TrimSuffix(name, filepath.Ext(name)), true
}

func anyExists(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Lstat(p); err == nil {
			return true
		}
	}
	return false
}

func claimed(found map[string]Module, path string) bool {
	for _, m := range found {
		for _, p := range m.Paths {
			if p == path {
				return true
			}
		}
	}
	return false
}
