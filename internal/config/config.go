package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/addonreg/addonreg/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Setting keys.
const (
	KeyAddonsDir   = "addons_dir"
	KeyStateFile   = "state_file"
	KeyTmpDir      = "tmp_dir"
	KeyMetricsFile = "metrics_file"
	KeyLogLevel    = "log_level"
	KeyS3Region    = "s3_region"
	KeyS3Endpoint  = "s3_endpoint"
	KeyDeadline    = "deadline"
)

// Keys lists every setting accepted by `config get|set`.
var Keys = []string{
	KeyAddonsDir, KeyStateFile, KeyTmpDir, KeyMetricsFile,
	KeyLogLevel, KeyS3Region, KeyS3Endpoint, KeyDeadline,
}

// Dir returns the path to the config directory (~/.addonreg/). ADDONREG_HOME
// overrides it.
func Dir() string {
	if dir := os.Getenv(branding.EnvVar("HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.addonreg/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyLogLevel, "warn")

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// IsKnownKey reports whether key is a recognized setting.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	if key == KeyDeadline && value != "" {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid deadline %q: %w", value, err)
		}
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func getOr(key, fallback string) string {
	if v := Get(key); v != "" {
		return v
	}
	return fallback
}

// StatePath returns the registry state document path.
func StatePath() string {
	return getOr(KeyStateFile, filepath.Join(Dir(), "addon_registry.json"))
}

// AddonsDir returns the directory units are installed into.
func AddonsDir() string {
	return getOr(KeyAddonsDir, filepath.Join(Dir(), "addons"))
}

// TmpDir returns where downloads are staged before verification.
func TmpDir() string {
	return getOr(KeyTmpDir, os.TempDir())
}

// PendingDir returns where archives awaiting manual extraction are kept.
func PendingDir() string {
	return filepath.Join(Dir(), "pending")
}

// ReceiptsPath returns the install receipts file.
func ReceiptsPath() string {
	return filepath.Join(Dir(), "receipts.json")
}

// MetricsFile returns the Prometheus textfile path, or "" when disabled.
func MetricsFile() string {
	return Get(KeyMetricsFile)
}

// Deadline returns the deadline override from settings. ok is false when
// the state document's request-deadline should apply.
func Deadline() (d time.Duration, ok bool) {
	v := Get(KeyDeadline)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
