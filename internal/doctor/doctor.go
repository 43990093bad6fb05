package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/archive"
	"github.com/addonreg/addonreg/internal/registry"
)

// Paths names everything the checks inspect.
type Paths struct {
	ConfigDir  string
	StateFile  string
	AddonsDir  string
	PendingDir string
}

// Report counts check results by severity.
type Report struct {
	OK    int
	Warn  int
	Fail  int
	Fixed int
}

// Healthy reports whether no check failed.
func (r *Report) Healthy() bool { return r.Fail == 0 }

type checker struct {
	w      io.Writer
	fix    bool
	report *Report
}

func (c *checker) ok(format string, args ...any) {
	c.report.OK++
	fmt.Fprintf(c.w, "  [ OK ] "+format+"\n", args...)
}

func (c *checker) warn(format string, args ...any) {
	c.report.Warn++
	fmt.Fprintf(c.w, "  [WARN] "+format+"\n", args...)
}

func (c *checker) miss(format string, args ...any) {
	c.report.Warn++
	fmt.Fprintf(c.w, "  [MISS] "+format+"\n", args...)
}

func (c *checker) fail(format string, args ...any) {
	c.report.Fail++
	fmt.Fprintf(c.w, "  [FAIL] "+format+"\n", args...)
}

func (c *checker) fixed(format string, args ...any) {
	c.report.Fixed++
	fmt.Fprintf(c.w, "  [FIX ] "+format+"\n", args...)
}

// CheckSetup validates the local directories and files. When fix is true,
// missing directories are created.
func CheckSetup(w io.Writer, p Paths, lookArchiver func() (string, bool), fix bool) *Report {
	c := &checker{w: w, fix: fix, report: &Report{}}
	fmt.Fprintln(w, "Setup check:")

	c.checkDir(p.ConfigDir)
	c.checkState(p.StateFile)
	c.checkDir(p.AddonsDir)
	c.checkWritable(p.AddonsDir)
	c.checkPending(p.PendingDir)

	if path, ok := lookArchiver(); ok {
		c.ok("external archiver %s", path)
	} else {
		c.warn("no external archiver (7z) on PATH; only zip and tar archives can be extracted")
	}
	return c.report
}

func (c *checker) checkDir(path string) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		c.miss("%s does not exist", path)
		if c.fix {
			if mkErr := os.MkdirAll(path, 0755); mkErr != nil {
				c.fail("could not create %s: %v", path, mkErr)
				return
			}
			c.fixed("created %s", path)
		}
		return
	}
	if err != nil {
		c.fail("%s: %v", path, err)
		return
	}
	if !info.IsDir() {
		c.fail("%s exists but is not a directory", path)
		return
	}
	c.ok("%s exists", path)
}

func (c *checker) checkWritable(dir string) {
	if _, err := os.Stat(dir); err != nil {
		return // already reported
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		c.fail("%s is not writable: %v", dir, err)
		return
	}
	f.Close()
	os.Remove(f.Name())
	c.ok("%s is writable", dir)
}

func (c *checker) checkState(path string) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c.miss("%s does not exist (defaults are used until the first save)", path)
		return
	}
	if err != nil {
		c.fail("%s: %v", path, err)
		return
	}
	var cfg addon.Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		c.fail("%s is not valid JSON, defaults will be used: %v", path, err)
		return
	}
	c.ok("%s: %d addons, %d registries", path, len(cfg.Catalog), len(cfg.Sources))

	var noHash []string
	for _, name := range cfg.Catalog.Names() {
		if _, _, ok := cfg.Catalog[name].Digest(); !ok {
			noHash = append(noHash, name)
		}
	}
	if len(noHash) > 0 {
		c.warn("%d catalog entries have no digest and cannot be installed: %v", len(noHash), noHash)
	}
}

func (c *checker) checkPending(dir string) {
	items, err := archive.NewPendingStore(dir).List()
	if err != nil {
		c.fail("%s: %v", dir, err)
		return
	}
	if len(items) == 0 {
		c.ok("no archives awaiting manual extraction")
		return
	}
	for _, p := range items {
		c.warn("%s awaits manual extraction: %s", p.Name, filepath.Base(p.Path))
	}
}

// CheckRegistries fetches and validates every source.
func CheckRegistries(ctx context.Context, w io.Writer, f registry.Fetcher, sources []addon.Source) *Report {
	c := &checker{w: w, report: &Report{}}
	fmt.Fprintln(w, "Registry check:")
	if len(sources) == 0 {
		c.warn("no registries configured")
		return c.report
	}
	for _, src := range sources {
		text, err := registry.FetchSource(ctx, f, src)
		if err != nil {
			c.fail("%s: %v", src.Location, err)
			continue
		}
		catalog, err := registry.ParseCatalog([]byte(text))
		if err != nil {
			c.fail("%s: %v", src.Location, err)
			continue
		}
		c.ok("%s: %d addons", src.Location, len(catalog))
	}
	return c.report
}
