package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/branding"
	"github.com/addonreg/addonreg/internal/config"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	logLevelFlag string
)

// Commands that never need the staleness reminder.
var noBanner = map[string]bool{
	"sync": true, "config": true, "get": true, "set": true, "version": true,
	"registry": true, "reset": true, "help": true, "completion": true,
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps a local catalog of addons merged from one or more registries,
and installs addons after verifying their archive digest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		setupLogging()

		if noBanner[cmd.Name()] || (cmd.Parent() != nil && noBanner[cmd.Parent().Name()]) {
			return
		}
		cfg, _ := config.NewFileStore(config.StatePath()).Load()
		if len(cfg.Sources) > 0 && cfg.IsStale(addon.DefaultStaleAge) {
			if cfg.SyncedAt == nil {
				fmt.Fprintf(os.Stderr, "Catalog has never been synced. Run '%s sync'.\n", branding.CLIName())
			} else {
				fmt.Fprintf(os.Stderr, "Catalog is more than 7 days old. Run '%s sync'.\n", branding.CLIName())
			}
		}
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return flushMetrics()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
}

// setupLogging installs the default slog logger. The flag wins over the
// log_level setting.
func setupLogging() {
	level := logLevelFlag
	if level == "" {
		level = config.Get(config.KeyLogLevel)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	// Interrupts cancel downloads at the next chunk.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(os.Stderr, err)
		// PersistentPostRunE does not run after a failed RunE.
		_ = flushMetrics()
	}
	return err
}

func printError(w *os.File, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var addonErr *addon.Error
	if errors.As(err, &addonErr) {
		if hint := addonErr.Kind.Hint(); hint != "" {
			fmt.Fprintf(w, "  %s\n", hint)
		}
	}
}
