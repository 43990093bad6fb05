package installer

import (
	"context"
	"errors"
	"time"

	"github.com/addonreg/addonreg/internal/registry"
	"go.opentelemetry.io/otel/attribute"
)

// Sync fetches every configured source and merges them into the catalog.
// The merged catalog is saved even when some sources failed; the returned
// error then carries the FailedRetrieveAddonList outcome.
func (s *Service) Sync(ctx context.Context) (*registry.MergeResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.sync(ctx)
}

func (s *Service) sync(ctx context.Context) (result *registry.MergeResult, err error) {
	s.mu.RLock()
	sources := append(s.cfg.Sources[:0:0], s.cfg.Sources...)
	prior := s.cfg.Catalog.Clone()
	s.mu.RUnlock()

	ctx, logger, span, cancel := s.operation(ctx, "sync", attribute.Int("addonreg.sources", len(sources)))
	defer cancel()
	defer func() { endSpan(span, err) }()

	if len(sources) == 0 {
		logger.Warn("no registry sources configured")
	}

	merger := registry.NewMerger(s.fetcher(), registry.WithLogger(logger))
	result = merger.Merge(ctx, sources, prior)

	s.mu.Lock()
	s.cfg.Catalog = result.Catalog
	// A sync that reached no source refreshed nothing.
	if len(result.Fetched) > 0 {
		now := time.Now().UTC()
		s.cfg.SyncedAt = &now
	}
	s.mu.Unlock()

	for _, f := range result.Failures {
		s.metrics.IncSourceFailure(f.Source.Location)
	}
	status := "ok"
	if !result.AllSucceeded() {
		status = "partial"
	}
	s.metrics.IncSync(status)
	logger.Info("sync finished", "units", len(result.Catalog), "fetched", len(result.Fetched), "failed", len(result.Failures))

	return result, errors.Join(result.Err(), s.persist())
}
