package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/addonreg/addonreg/internal/addon"
)

// SourceFailure records why one registry source contributed nothing to a sync.
type SourceFailure struct {
	Source addon.Source
	Err    error
}

// MergeResult is the outcome of merging all configured sources.
type MergeResult struct {
	Catalog  addon.Catalog
	Fetched  []addon.Source
	Failures []SourceFailure
}

// AllSucceeded reports whether every source was fetched and parsed.
func (r *MergeResult) AllSucceeded() bool {
	return len(r.Failures) == 0
}

// Err returns a FailedRetrieveAddonList error naming every failed source,
// or nil when all sources succeeded.
func (r *MergeResult) Err() error {
	if r.AllSucceeded() {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return addon.NewError(addon.FailedRetrieveAddonList, "", errors.Join(errs...))
}

// Merger combines registry sources into a catalog.
type Merger struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithLogger sets the logger used to report failing sources.
func WithLogger(l *slog.Logger) MergerOption {
	return func(m *Merger) {
		m.logger = l
	}
}

// NewMerger returns a Merger reading sources through f.
func NewMerger(f Fetcher, opts ...MergerOption) *Merger {
	m := &Merger{fetcher: f, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge fetches every source in list order and folds the parsed records
// into a copy of prior. Later sources overwrite earlier ones for the same
// name. Records stamped with a source that was fetched this round but no
// longer lists them are pruned; records from failed sources and records
// with no source are kept. prior is not modified.
func (m *Merger) Merge(ctx context.Context, sources []addon.Source, prior addon.Catalog) *MergeResult {
	result := &MergeResult{Catalog: prior.Clone()}
	listed := make(map[string]map[string]bool)

	for _, src := range sources {
		parsed, err := m.fetchAndParse(ctx, src)
		if err != nil {
			m.logger.Warn("registry source failed", "source", src.Location, "error", err)
			result.Failures = append(result.Failures, SourceFailure{Source: src, Err: err})
			continue
		}
		result.Fetched = append(result.Fetched, src)

		names := listed[src.Location]
		if names == nil {
			names = make(map[string]bool, len(parsed))
			listed[src.Location] = names
		}

		for name, rec := range parsed {
			names[name] = true
			rec.SourceLocation = src.Location
			rec.SourceReportURL = src.ReportURL
			if old, ok := result.Catalog[name]; ok {
				rec.Expanded = old.Expanded
			}
			result.Catalog[name] = rec
		}
		m.logger.Debug("registry source merged", "source", src.Location, "records", len(parsed))
	}

	for name, rec := range result.Catalog {
		if rec.SourceLocation == "" {
			continue
		}
		names, fetched := listed[rec.SourceLocation]
		if fetched && !names[name] {
			m.logger.Debug("pruning stale record", "name", name, "source", rec.SourceLocation)
			delete(result.Catalog, name)
		}
	}

	return result
}

func (m *Merger) fetchAndParse(ctx context.Context, src addon.Source) (addon.Catalog, error) {
	content, err := FetchSource(ctx, m.fetcher, src)
	if err != nil {
		return nil, err
	}
	parsed, err := ParseCatalog([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", src.Location, err)
	}
	return parsed, nil
}
