package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/addonreg/addonreg/internal/addon"
)

const pendingMetaFile = "pending.json"

// Pending is a downloaded archive that could not be extracted
// automatically. The pending store owns the file until it is saved or
// discarded.
type Pending struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	SuggestedName string    `json:"suggested_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// PendingStore keeps pending archives under dir/<name>/.
type PendingStore struct {
	dir string
}

// NewPendingStore returns a store rooted at dir.
func NewPendingStore(dir string) *PendingStore {
	return &PendingStore{dir: dir}
}

// Dir returns the store root.
func (s *PendingStore) Dir() string { return s.dir }

// Hold takes ownership of file, replacing any earlier pending archive for
// the same unit.
func (s *PendingStore) Hold(name, file, suggested string) (*Pending, error) {
	if err := addon.ValidateName(name); err != nil {
		return nil, err
	}
	if addon.ValidateName(suggested) != nil {
		suggested = name
	}
	unitDir := filepath.Join(s.dir, name)
	if err := os.RemoveAll(unitDir); err != nil {
		return nil, fmt.Errorf("clearing pending archive for %s: %w", name, err)
	}
	if err := os.MkdirAll(unitDir, 0755); err != nil {
		return nil, fmt.Errorf("creating pending directory: %w", err)
	}

	p := &Pending{
		Name:          name,
		Path:          filepath.Join(unitDir, suggested),
		SuggestedName: suggested,
		CreatedAt:     time.Now().UTC(),
	}
	if err := moveFile(file, p.Path); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling pending record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(unitDir, pendingMetaFile), data, 0644); err != nil {
		return nil, fmt.Errorf("writing pending record: %w", err)
	}
	return p, nil
}

// Get returns the pending archive for name.
func (s *PendingStore) Get(name string) (*Pending, error) {
	if err := addon.ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name, pendingMetaFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no pending archive for %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading pending record: %w", err)
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing pending record: %w", err)
	}
	return &p, nil
}

// List returns every pending archive sorted by unit name.
func (s *PendingStore) List() ([]*Pending, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading pending directory: %w", err)
	}

	var out []*Pending
	for _, entry := range dirEntries {
		if !entry.IsDir() {
			continue
		}
		p, err := s.Get(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveAs moves the pending archive for name to dest. When dest is an
// existing directory the suggested file name is used inside it. It returns
// the final path.
func (s *PendingStore) SaveAs(name, dest string) (string, error) {
	p, err := s.Get(name)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, p.SuggestedName)
	}
	if err := moveFile(p.Path, dest); err != nil {
		return "", err
	}
	if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
		return dest, fmt.Errorf("clearing pending record: %w", err)
	}
	return dest, nil
}

// Discard deletes the pending archive for name.
func (s *PendingStore) Discard(name string) error {
	if _, err := s.Get(name); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.dir, name))
}

// SuggestedName derives a file name from an archive location: the base
// name of the URL path, or of the local path.
func SuggestedName(location string) string {
	if addon.IsNetwork(location) {
		u, err := url.Parse(location)
		if err != nil {
			return ""
		}
		base := path.Base(u.Path)
		if base == "/" || base == "." {
			return ""
		}
		return base
	}
	base := filepath.Base(strings.TrimPrefix(location, "file://"))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}
