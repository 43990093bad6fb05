package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/branding"
)

// Default returns the built-in configuration: the branded registry source,
// an empty catalog and default network settings.
func Default() *addon.Configuration {
	var sources []addon.Source
	if url := branding.DefaultRegistryURL(); url != "" {
		sources = append(sources, addon.Source{Location: url, ReportURL: branding.DefaultReportURL()})
	}
	return addon.NewConfiguration(sources...)
}

// FileStore persists the registry state as a JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a store for the document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing or unreadable document yields
// Default(); the returned error then only explains why, and a missing file
// is not reported at all.
func (s *FileStore) Load() (*addon.Configuration, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("reading registry state: %w", err)
	}

	cfg := Default()
	cfg.Sources = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("parsing registry state %s: %w", s.path, err)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = addon.Catalog{}
	}
	return cfg, nil
}

// Save replaces the whole document atomically.
func (s *FileStore) Save(cfg *addon.Configuration) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("marshaling registry state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".addon_registry-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing registry state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing registry state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing registry state: %w", err)
	}
	return nil
}
