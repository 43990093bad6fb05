package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/archive"
	"github.com/addonreg/addonreg/internal/digest"
	"github.com/addonreg/addonreg/internal/fetch"
	"github.com/addonreg/addonreg/internal/inventory"
	"go.opentelemetry.io/otel/attribute"
)

// Result describes a finished install.
type Result struct {
	Name    string
	Version addon.Version
	Paths   []string
	// Pending is set when the archive could not be extracted and was kept
	// for the user to save by hand.
	Pending *archive.Pending
}

// Install fetches, verifies and installs the named unit, replacing any
// existing installation. On failure the error carries an addon.Outcome;
// with ExtractManually the Result names the preserved archive.
func (s *Service) Install(ctx context.Context, name string) (*Result, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.install(ctx, name)
}

func (s *Service) install(ctx context.Context, name string) (res *Result, err error) {
	ctx, logger, span, cancel := s.operation(ctx, "install", attribute.String("addonreg.unit", name))
	defer cancel()
	logger = logger.With("name", name)

	start := time.Now()
	defer func() {
		outcome := outcomeLabel(err)
		s.metrics.IncInstall(outcome)
		s.metrics.ObserveInstallDuration(outcome, time.Since(start))
		endSpan(span, err)
	}()

	s.mu.RLock()
	rec, ok := s.cfg.Catalog[name]
	if ok {
		rec = rec.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return nil, addon.NewError(addon.NotInRegistry, name, nil)
	}
	if err := addon.ValidateName(name); err != nil {
		return nil, err
	}

	alg, expected, ok := rec.Digest()
	if !ok {
		return nil, addon.NewError(addon.NoHash, name, nil)
	}

	verifier, err := digest.NewVerifier(alg, expected)
	if err != nil {
		return nil, err
	}
	tmp, err := s.acquire(ctx, logger, name, rec.URL, verifier)
	if err != nil {
		return nil, err
	}
	sum := verifier.Sum()
	if !verifier.Matches() {
		os.Remove(tmp)
		want := digest.Normalize(expected)
		logger.Warn("digest mismatch, refusing to install", "alg", alg, "expected", want, "actual", sum)
		return nil, addon.NewError(addon.HashMismatch, name, fmt.Errorf("expected %s %s, got %s", alg, want, sum))
	}

	if err := s.removePrior(name); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	_, extractSpan := s.tracer.Start(ctx, "extract")
	placed, err := s.archiver.Install(ctx, archive.Request{
		Name:       name,
		File:       tmp,
		SingleFile: rec.File,
		URL:        rec.URL,
		TargetDir:  s.targetDir,
	})
	endSpan(extractSpan, err)
	if err != nil {
		if placed != nil && placed.Pending != nil {
			logger.Warn("archive needs manual extraction", "pending", placed.Pending.Path)
			return &Result{Name: name, Version: rec.Info.Version, Pending: placed.Pending}, err
		}
		return nil, err
	}

	if err := s.inventory.Record(inventory.Module{
		Name:    name,
		Paths:   placed.Paths,
		Version: rec.Info.Version,
		Digest:  sum,
		Source:  rec.SourceLocation,
	}); err != nil {
		logger.Warn("could not write install receipt", "error", err)
	}

	logger.Info("installed", "version", rec.Info.Version.String(), "paths", placed.Paths)
	return &Result{Name: name, Version: rec.Info.Version, Paths: placed.Paths}, nil
}

// acquire streams location into a temp file, teeing every chunk into h.
// It returns the temp path; the temp file is gone on error.
func (s *Service) acquire(ctx context.Context, logger *slog.Logger, name, location string, h io.Writer) (path string, err error) {
	ctx, span := s.tracer.Start(ctx, "acquire", traceLocation(location))
	defer func() { endSpan(span, err) }()

	network := fetch.OriginOf(location) == fetch.Network
	ioKind := addon.FailedCopy
	if network {
		ioKind = addon.FailedDownload
	}

	if err := os.MkdirAll(s.tmpDir, 0755); err != nil {
		return "", addon.NewError(ioKind, name, fmt.Errorf("creating temp directory: %w", err))
	}
	f, err := os.CreateTemp(s.tmpDir, "addonreg-*")
	if err != nil {
		return "", addon.NewError(ioKind, name, fmt.Errorf("creating temp file: %w", err))
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	rc, err := s.fetcher().Open(ctx, location)
	if err != nil {
		f.Close()
		if network {
			return "", addon.NewError(addon.FailedRequest, name, err)
		}
		return "", addon.NewError(addon.FailedCopy, name, err)
	}
	defer rc.Close()

	n, err := io.Copy(io.MultiWriter(f, h), fetch.ContextReader(ctx, rc))
	if err != nil {
		f.Close()
		return "", addon.NewError(ioKind, name, err)
	}
	if err := f.Close(); err != nil {
		return "", addon.NewError(ioKind, name, fmt.Errorf("closing temp file: %w", err))
	}

	logger.Debug("acquired", "location", location, "bytes", n)
	return f.Name(), nil
}

// removePrior uninstalls an existing copy reported by the inventory.
func (s *Service) removePrior(name string) error {
	_, ok, err := s.inventory.Lookup(name)
	if err != nil {
		return fmt.Errorf("checking existing installation: %w", err)
	}
	if !ok {
		return nil
	}
	if err := s.inventory.Remove(name); err != nil {
		return fmt.Errorf("removing existing installation: %w", err)
	}
	return nil
}

func outcomeLabel(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	if kind, ok := addon.OutcomeOf(err); ok {
		return kind.String()
	}
	return "error"
}
