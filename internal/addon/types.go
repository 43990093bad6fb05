package addon

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Digest algorithm names as they appear as record keys.
const (
	AlgSHA256  = "sha256"
	AlgBLAKE2b = "blake2b"
)

const (
	// DefaultTimeoutSeconds is the default connect timeout.
	DefaultTimeoutSeconds = 4.0
	// DefaultDeadlineSeconds bounds a whole sync or install.
	DefaultDeadlineSeconds = 300.0
	// DefaultStaleAge is how old a catalog may get before a sync reminder.
	DefaultStaleAge = 7 * 24 * time.Hour
)

// Source is one registry location. Order in Configuration.Sources defines
// override precedence: later sources win for the same unit name.
type Source struct {
	Location  string `json:"url" yaml:"url"`
	ReportURL string `json:"report-url,omitempty" yaml:"report-url,omitempty"`
}

// IsNetwork reports whether location names a remote resource rather than a
// local path. file:// locations are treated as local.
func IsNetwork(location string) bool {
	return strings.Contains(location, "://") && !strings.HasPrefix(location, "file://")
}

// Info is the descriptive metadata published for a unit.
type Info struct {
	Name        string  `json:"name" yaml:"name"`
	Version     Version `json:"version" yaml:"version,flow"`
	Category    string  `json:"category,omitempty" yaml:"category,omitempty"`
	Author      string  `json:"author,omitempty" yaml:"author,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Location    string  `json:"location,omitempty" yaml:"location,omitempty"`
	WikiURL     string  `json:"wiki_url,omitempty" yaml:"wiki_url,omitempty"`
	TrackerURL  string  `json:"tracker_url,omitempty" yaml:"tracker_url,omitempty"`
	Warning     string  `json:"warning,omitempty" yaml:"warning,omitempty"`
	HostVersion Version `json:"blender,omitempty" yaml:"blender,omitempty,flow"`
}

// Record is one catalog entry, keyed by unit name inside a Catalog.
type Record struct {
	URL     string   `json:"url" yaml:"url"`
	SHA256  string   `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	BLAKE2b string   `json:"blake2b,omitempty" yaml:"blake2b,omitempty"`
	File    bool     `json:"file,omitempty" yaml:"file,omitempty"`
	Peers   []string `json:"peers,omitempty" yaml:"peers,omitempty"`
	Info    Info     `json:"info" yaml:"info"`

	// Stamped by the merger; empty for preloaded entries.
	SourceLocation  string `json:"registry-url,omitempty" yaml:"registry-url,omitempty"`
	SourceReportURL string `json:"registry-report-url,omitempty" yaml:"registry-report-url,omitempty"`

	Expanded bool `json:"show_expanded,omitempty" yaml:"-"`
}

// Digest returns the algorithm and expected hex digest of the record's
// archive. sha256 is preferred when several are present.
func (r *Record) Digest() (alg, hex string, ok bool) {
	switch {
	case r.SHA256 != "":
		return AlgSHA256, r.SHA256, true
	case r.BLAKE2b != "":
		return AlgBLAKE2b, r.BLAKE2b, true
	}
	return "", "", false
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Peers = append([]string(nil), r.Peers...)
	c.Info.Version = append(Version(nil), r.Info.Version...)
	c.Info.HostVersion = append(Version(nil), r.Info.HostVersion...)
	return &c
}

// ValidateName rejects unit names that cannot be used as a single entry of
// the addons directory: empty, "." or "..", or containing a path separator.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.VolumeName(name) != "" {
		return fmt.Errorf("invalid unit name %q", name)
	}
	return nil
}

// Catalog maps unit names to records.
type Catalog map[string]*Record

// Names returns the catalog keys in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for name, rec := range c {
		out[name] = rec.Clone()
	}
	return out
}

// Network holds transport settings. A nil Timeout waits forever for a
// connection, matching a null "requests-timeout".
type Network struct {
	Proxies  map[string]string `json:"requests-proxies"`
	Timeout  *float64          `json:"requests-timeout"`
	Deadline *float64          `json:"request-deadline,omitempty"`
}

// ConnectTimeout returns the connect timeout, or zero for none.
func (n Network) ConnectTimeout() time.Duration {
	if n.Timeout == nil || *n.Timeout <= 0 {
		return 0
	}
	return time.Duration(*n.Timeout * float64(time.Second))
}

// OperationDeadline returns the total time budget of one sync or install.
func (n Network) OperationDeadline() time.Duration {
	if n.Deadline == nil {
		return time.Duration(DefaultDeadlineSeconds * float64(time.Second))
	}
	if *n.Deadline <= 0 {
		return 0
	}
	return time.Duration(*n.Deadline * float64(time.Second))
}

// Configuration is the persisted registry state.
type Configuration struct {
	Catalog  Catalog    `json:"addons"`
	Sources  []Source   `json:"registries"`
	SyncedAt *time.Time `json:"synced-at,omitempty"`
	Network
}

// NewConfiguration returns a configuration with default network settings,
// an empty catalog and the given sources.
func NewConfiguration(sources ...Source) *Configuration {
	timeout := DefaultTimeoutSeconds
	return &Configuration{
		Catalog: Catalog{},
		Sources: append([]Source(nil), sources...),
		Network: Network{Timeout: &timeout},
	}
}

// Clone returns a deep copy of the configuration.
func (c *Configuration) Clone() *Configuration {
	data, err := json.Marshal(c)
	if err != nil {
		// Every field is plain data.
		panic(err)
	}
	var out Configuration
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	if out.Catalog == nil {
		out.Catalog = Catalog{}
	}
	return &out
}

// IsStale reports whether the catalog was last synced more than maxAge ago.
// A catalog that was never synced is stale.
func (c *Configuration) IsStale(maxAge time.Duration) bool {
	if c.SyncedAt == nil {
		return true
	}
	return time.Since(*c.SyncedAt) > maxAge
}

// SourceIndex returns the index of the source with the given location, or -1.
func (c *Configuration) SourceIndex(location string) int {
	for i, s := range c.Sources {
		if s.Location == location {
			return i
		}
	}
	return -1
}
