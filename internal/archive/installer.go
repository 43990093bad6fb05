package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/platform"
)

// DefaultSingleFileExt is used for single-file addons whose URL has no
// extension.
const DefaultSingleFileExt = ".py"

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", filepath.Base(name), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Installer places verified downloads into a target directory.
type Installer struct {
	pending *PendingStore
	lookup  func() (string, bool)
	run     Runner
	logger  *slog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithPendingStore sets where unextractable archives are parked.
func WithPendingStore(s *PendingStore) Option {
	return func(in *Installer) {
		in.pending = s
	}
}

// WithArchiverLookup replaces the PATH lookup of the external archiver.
func WithArchiverLookup(lookup func() (string, bool)) Option {
	return func(in *Installer) {
		in.lookup = lookup
	}
}

// WithRunner replaces how the external archiver is executed.
func WithRunner(r Runner) Option {
	return func(in *Installer) {
		in.run = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Installer) {
		in.logger = l
	}
}

// New returns an Installer.
func New(opts ...Option) *Installer {
	in := &Installer{
		lookup: platform.LookArchiver,
		run:    execRunner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Request describes one placement. File is consumed: on return it has been
// moved, removed, or handed to the pending store.
type Request struct {
	Name       string
	File       string
	SingleFile bool
	URL        string
	TargetDir  string
}

// Result lists what was installed.
type Result struct {
	Paths   []string
	Format  Format
	Pending *Pending
}

// SingleFileExt returns the extension a single-file addon is installed with.
func SingleFileExt(location string) string {
	if ext := filepath.Ext(SuggestedName(location)); ext != "" {
		return ext
	}
	return DefaultSingleFileExt
}

// RemoveInstalled deletes an existing installation of name in targetDir,
// either a directory or a single file with one of the given extensions.
func RemoveInstalled(targetDir, name string, exts ...string) error {
	if err := addon.ValidateName(name); err != nil {
		return err
	}
	candidates := []string{filepath.Join(targetDir, name)}
	for _, ext := range exts {
		if ext != "" {
			candidates = append(candidates, filepath.Join(targetDir, name+ext))
		}
	}
	for _, path := range candidates {
		if _, err := os.Lstat(path); err != nil {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing existing installation at %s: %w", path, err)
		}
	}
	return nil
}

// Install replaces any installation of req.Name in req.TargetDir with the
// content of req.File. When no extraction path works it returns an
// ExtractManually error together with a Result whose Pending field names the
// preserved file.
func (in *Installer) Install(ctx context.Context, req Request) (res *Result, err error) {
	held := false
	defer func() {
		if !held {
			os.Remove(req.File)
		}
	}()

	if err := addon.ValidateName(req.Name); err != nil {
		return nil, err
	}
	ext := SingleFileExt(req.URL)
	if err := RemoveInstalled(req.TargetDir, req.Name, ext, DefaultSingleFileExt); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.TargetDir, 0755); err != nil {
		return nil, fmt.Errorf("creating target directory: %w", err)
	}

	if req.SingleFile {
		dest := filepath.Join(req.TargetDir, req.Name+ext)
		if err := moveFile(req.File, dest); err != nil {
			return nil, err
		}
		in.logger.Debug("installed single file", "name", req.Name, "path", dest)
		return &Result{Paths: []string{dest}}, nil
	}

	format, err := DetectFile(req.File)
	if err != nil {
		return nil, err
	}

	var extract func(archivePath, destDir string) error
	switch format {
	case Zip:
		extract = extractZip
	case Tar:
		extract = func(archivePath, destDir string) error { return extractTar(archivePath, destDir, false) }
	case TarGzip:
		extract = func(archivePath, destDir string) error { return extractTar(archivePath, destDir, true) }
	default:
		return in.extractExternal(ctx, req, &held)
	}
	paths, err := extractStaged(req.File, req.TargetDir, extract)
	if err != nil {
		return nil, fmt.Errorf("extracting %s archive for %s: %w", format, req.Name, err)
	}
	in.logger.Debug("extracted archive", "name", req.Name, "format", format.String(), "entries", len(paths))
	return &Result{Paths: paths, Format: format}, nil
}

func (in *Installer) extractExternal(ctx context.Context, req Request, held *bool) (*Result, error) {
	var cause error
	if archiver, ok := in.lookup(); ok {
		paths, err := extractStaged(req.File, req.TargetDir, func(file, stage string) error {
			return in.run(ctx, archiver, platform.ArchiverArgs(stage, file)...)
		})
		if err == nil {
			in.logger.Debug("extracted with external archiver", "name", req.Name, "archiver", archiver)
			return &Result{Paths: paths}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		cause = err
	} else {
		cause = errors.New("no external archiver found on PATH")
	}

	pending := &Pending{Name: req.Name, Path: req.File, SuggestedName: SuggestedName(req.URL)}
	if in.pending != nil {
		p, err := in.pending.Hold(req.Name, req.File, pending.SuggestedName)
		if err != nil {
			in.logger.Warn("could not move archive to pending store", "name", req.Name, "error", err)
		} else {
			pending = p
		}
	}
	*held = true
	return &Result{Pending: pending}, addon.NewError(addon.ExtractManually, req.Name, cause)
}
