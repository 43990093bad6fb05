package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/archive"
	"github.com/addonreg/addonreg/internal/digest"
)

// Index is a registry document maintained on disk, the file that registry
// sources serve.
type Index struct {
	path    string
	Catalog addon.Catalog
}

// LoadIndex reads the registry document at path. A missing file yields an
// empty index that Save will create.
func LoadIndex(path string) (*Index, error) {
	idx := &Index{path: path, Catalog: addon.Catalog{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry index: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return idx, nil
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("loading registry index %s: %w", path, err)
	}
	idx.Catalog = catalog
	return idx, nil
}

// Path returns the file the index is saved to.
func (idx *Index) Path() string { return idx.path }

// Marshal renders the index the way it is written to disk, tab-indented
// with a trailing newline.
func (idx *Index) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(idx.Catalog, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("marshaling registry index: %w", err)
	}
	return append(data, '\n'), nil
}

// Save validates and writes the index.
func (idx *Index) Save() error {
	data, err := idx.Marshal()
	if err != nil {
		return err
	}
	if err := Validate(data); err != nil {
		return err
	}
	if dir := filepath.Dir(idx.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating index directory: %w", err)
		}
	}
	if err := os.WriteFile(idx.path, data, 0644); err != nil {
		return fmt.Errorf("writing registry index: %w", err)
	}
	return nil
}

// AddOptions describes a unit being published.
type AddOptions struct {
	// Name overrides the key derived from the archive file name.
	Name string
	// Algorithm selects the digest to publish; sha256 when empty.
	Algorithm string
	Info      addon.Info
	Peers     []string
}

// Add downloads the archive at location, computes its digest and inserts
// the resulting record, replacing any record of the same name. Archives
// that are not zip or tar containers are published as single files.
func (idx *Index) Add(ctx context.Context, f Fetcher, location string, opts AddOptions) (string, *addon.Record, error) {
	name := opts.Name
	if name == "" {
		name = NameFromLocation(location)
	}
	if name == "" {
		return "", nil, fmt.Errorf("cannot derive a unit name from %q", location)
	}
	if err := addon.ValidateName(name); err != nil {
		return "", nil, err
	}
	if opts.Info.Name == "" {
		return "", nil, fmt.Errorf("unit %s: info name is required", name)
	}
	if len(opts.Info.Version) == 0 {
		return "", nil, fmt.Errorf("unit %s: info version is required", name)
	}
	if opts.Info.Category == "" {
		return "", nil, fmt.Errorf("unit %s: info category is required", name)
	}

	alg := opts.Algorithm
	if alg == "" {
		alg = addon.AlgSHA256
	}

	data, err := f.ReadAll(ctx, location)
	if err != nil {
		return "", nil, fmt.Errorf("downloading %s: %w", location, err)
	}
	sum, err := digest.Sum(bytes.NewReader(data), alg)
	if err != nil {
		return "", nil, err
	}

	rec := &addon.Record{
		URL:   location,
		File:  archive.DetectBytes(data) == archive.Unknown,
		Peers: append([]string(nil), opts.Peers...),
		Info:  opts.Info,
	}
	switch alg {
	case addon.AlgSHA256:
		rec.SHA256 = sum
	case addon.AlgBLAKE2b:
		rec.BLAKE2b = sum
	}

	idx.Catalog[name] = rec
	return name, rec, nil
}

// Remove deletes the record for name.
func (idx *Index) Remove(name string) error {
	if _, ok := idx.Catalog[name]; !ok {
		return fmt.Errorf("%s is not in the registry", name)
	}
	delete(idx.Catalog, name)
	return nil
}

// List returns "name: version" lines in name order.
func (idx *Index) List() []string {
	lines := make([]string, 0, len(idx.Catalog))
	for _, name := range idx.Catalog.Names() {
		lines = append(lines, fmt.Sprintf("%s: %s", name, idx.Catalog[name].Info.Version))
	}
	return lines
}

// NameFromLocation derives a unit name from the archive file name with
// its extension removed.
func NameFromLocation(location string) string {
	base := archive.SuggestedName(location)
	for _, ext := range []string{".tar.gz", ".tgz", ".zip", ".tar", ".7z", ".py"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
