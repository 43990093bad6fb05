package cli

import (
	"log/slog"

	"github.com/addonreg/addonreg/internal/archive"
	"github.com/addonreg/addonreg/internal/branding"
	"github.com/addonreg/addonreg/internal/config"
	"github.com/addonreg/addonreg/internal/fetch"
	"github.com/addonreg/addonreg/internal/installer"
	"github.com/addonreg/addonreg/internal/inventory"
	"github.com/addonreg/addonreg/internal/metrics"
)

// promMetrics is set when a metrics textfile is configured.
var promMetrics *metrics.Prom

// fetchOptions builds transport options from user settings.
func fetchOptions() []fetch.Option {
	return []fetch.Option{
		fetch.WithUserAgent(branding.CLIName() + "/" + buildVersion),
		fetch.WithS3Region(config.Get(config.KeyS3Region)),
		fetch.WithS3Endpoint(config.Get(config.KeyS3Endpoint)),
	}
}

func pendingStore() *archive.PendingStore {
	return archive.NewPendingStore(config.PendingDir())
}

// newService loads the persisted state and wires the install service.
func newService() *installer.Service {
	logger := slog.Default()

	store := config.NewFileStore(config.StatePath())
	cfg, err := store.Load()
	if err != nil {
		logger.Warn("registry state unreadable, using defaults", "path", store.Path(), "error", err)
	}

	var m metrics.Metrics = metrics.Noop{}
	if config.MetricsFile() != "" {
		if promMetrics == nil {
			promMetrics = metrics.NewProm(branding.CLIName())
		}
		m = promMetrics
	}

	addonsDir := config.AddonsDir()
	opts := []installer.Option{
		installer.WithStore(store),
		installer.WithDefaults(config.Default),
		installer.WithTmpDir(config.TmpDir()),
		installer.WithFetchOptions(fetchOptions()...),
		installer.WithInventory(inventory.NewDir(addonsDir, config.ReceiptsPath())),
		installer.WithArchiveInstaller(archive.New(
			archive.WithPendingStore(pendingStore()),
			archive.WithLogger(logger),
		)),
		installer.WithMetrics(m),
		installer.WithLogger(logger),
	}
	if d, ok := config.Deadline(); ok {
		opts = append(opts, installer.WithDeadline(d))
	}
	return installer.New(cfg, addonsDir, opts...)
}

func flushMetrics() error {
	path := config.MetricsFile()
	if promMetrics == nil || path == "" {
		return nil
	}
	return promMetrics.WriteTextfile(path)
}
