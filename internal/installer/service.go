package installer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/archive"
	"github.com/addonreg/addonreg/internal/fetch"
	"github.com/addonreg/addonreg/internal/inventory"
	"github.com/addonreg/addonreg/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/addonreg/addonreg/internal/installer"

// Store persists the configuration.
type Store interface {
	Save(cfg *addon.Configuration) error
}

// Fetcher opens registry documents and archives.
type Fetcher interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	ReadAll(ctx context.Context, location string) ([]byte, error)
}

// Service coordinates syncs and installs over one Configuration.
type Service struct {
	opMu sync.Mutex   // one mutating operation at a time
	mu   sync.RWMutex // guards cfg
	cfg  *addon.Configuration

	targetDir  string
	tmpDir     string
	deadline   *time.Duration
	store      Store
	newFetcher func(addon.Network) Fetcher
	archiver   *archive.Installer
	inventory  inventory.Inventory
	defaults   func() *addon.Configuration
	metrics    metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists the configuration after every mutation.
func WithStore(s Store) Option {
	return func(svc *Service) {
		svc.store = s
	}
}

// WithFetchOptions passes options to the transport built from the
// configuration's network settings.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(svc *Service) {
		svc.newFetcher = func(n addon.Network) Fetcher {
			return fetch.New(n, opts...)
		}
	}
}

// WithFetcher replaces the transport entirely.
func WithFetcher(f Fetcher) Option {
	return func(svc *Service) {
		svc.newFetcher = func(addon.Network) Fetcher { return f }
	}
}

// WithArchiveInstaller sets how verified downloads are placed.
func WithArchiveInstaller(in *archive.Installer) Option {
	return func(svc *Service) {
		svc.archiver = in
	}
}

// WithInventory sets the installed-unit inventory.
func WithInventory(inv inventory.Inventory) Option {
	return func(svc *Service) {
		svc.inventory = inv
	}
}

// WithTmpDir sets where downloads are staged.
func WithTmpDir(dir string) Option {
	return func(svc *Service) {
		svc.tmpDir = dir
	}
}

// WithDeadline overrides the configuration's operation deadline. Zero
// disables it.
func WithDeadline(d time.Duration) Option {
	return func(svc *Service) {
		svc.deadline = &d
	}
}

// WithDefaults sets the configuration Reset restores.
func WithDefaults(fn func() *addon.Configuration) Option {
	return func(svc *Service) {
		svc.defaults = fn
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = l
	}
}

// WithTracerProvider sets where spans are sent. The global provider is
// used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(svc *Service) {
		svc.tracer = tp.Tracer(tracerName)
	}
}

// New returns a Service owning cfg and installing into targetDir.
func New(cfg *addon.Configuration, targetDir string, opts ...Option) *Service {
	svc := &Service{
		cfg:       cfg,
		targetDir: targetDir,
		tmpDir:    os.TempDir(),
		newFetcher: func(n addon.Network) Fetcher {
			return fetch.New(n)
		},
		defaults: func() *addon.Configuration { return addon.NewConfiguration() },
		metrics:  metrics.Noop{},
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.cfg == nil {
		svc.cfg = svc.defaults()
	}
	if svc.archiver == nil {
		svc.archiver = archive.New(archive.WithLogger(svc.logger))
	}
	if svc.inventory == nil {
		svc.inventory = inventory.NewDir(targetDir, filepath.Join(targetDir, ".receipts.json"))
	}
	return svc
}

// TargetDir returns the directory units are installed into.
func (s *Service) TargetDir() string { return s.targetDir }

// Configuration returns a snapshot of the current configuration.
func (s *Service) Configuration() *addon.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Catalog returns a snapshot of the current catalog.
func (s *Service) Catalog() addon.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Catalog.Clone()
}

// Inventory returns the installed-unit inventory.
func (s *Service) Inventory() inventory.Inventory { return s.inventory }

func (s *Service) network() addon.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Network
}

func (s *Service) fetcher() Fetcher {
	return s.newFetcher(s.network())
}

// operation derives the context of one mutating operation: deadline, op id
// logger and span.
func (s *Service) operation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *slog.Logger, trace.Span, context.CancelFunc) {
	deadline := s.network().OperationDeadline()
	if s.deadline != nil {
		deadline = *s.deadline
	}
	cancel := context.CancelFunc(func() {})
	if deadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, deadline)
	}

	opID := uuid.NewString()
	attrs = append(attrs, attribute.String("addonreg.op_id", opID))
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	logger := s.logger.With("op", opID, "operation", name)
	return ctx, logger, span, cancel
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// persist saves the current configuration. Callers hold opMu.
func (s *Service) persist() error {
	if s.store == nil {
		return nil
	}
	s.mu.RLock()
	snapshot := s.cfg.Clone()
	s.mu.RUnlock()
	if err := s.store.Save(snapshot); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	return nil
}

func traceLocation(location string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("addonreg.location", location))
}
