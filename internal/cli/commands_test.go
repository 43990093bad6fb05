package cli

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/config"
	"github.com/spf13/viper"
)

// setupCLI points the CLI at a temp home with an empty registry list.
func setupCLI(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("ADDONREG_HOME", home)
	t.Setenv("ADDONREG_ADDONS_DIR", filepath.Join(home, "addons"))
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := config.NewFileStore(filepath.Join(home, "addon_registry.json")).Save(addon.NewConfiguration()); err != nil {
		t.Fatal(err)
	}
	return home
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func serveRegistry(t *testing.T) *httptest.Server {
	t.Helper()
	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	w, _ := zw.Create("hello/__init__.py")
	w.Write([]byte("bl_info = {'name': 'Hello'}"))
	zw.Close()
	sum := sha256.Sum256(archive.Bytes())

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/hello.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive.Bytes())
	})
	mux.HandleFunc("/addons.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"hello": {"url": "%s/hello.zip", "sha256": "%s",
			"info": {"name": "Hello", "version": [1, 2], "category": "Demo", "author": "Ada"}}}`,
			srv.URL, hex.EncodeToString(sum[:]))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSyncInstallUninstallFlow(t *testing.T) {
	home := setupCLI(t)
	srv := serveRegistry(t)

	if _, err := executeCommand(t, "sources", "add", srv.URL+"/addons.json"); err != nil {
		t.Fatalf("sources add: %v", err)
	}

	out, err := executeCommand(t, "sync")
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 addons from 1 of 1 registries") {
		t.Errorf("sync output:\n%s", out)
	}

	out, err = executeCommand(t, "install", "hello")
	if err != nil {
		t.Fatalf("install: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Installed hello 1.2") {
		t.Errorf("install output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, "addons", "hello", "__init__.py")); err != nil {
		t.Errorf("addon not installed: %v", err)
	}

	out, err = executeCommand(t, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []listEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("list --json output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Installed != "1.2" || entries[0].Available != "1.2" {
		t.Errorf("entries = %+v", entries)
	}

	if _, err := executeCommand(t, "uninstall", "hello"); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "addons", "hello")); !os.IsNotExist(err) {
		t.Error("addon directory should be removed")
	}
}

func TestInstallUnknownAddon(t *testing.T) {
	setupCLI(t)

	_, err := executeCommand(t, "install", "nope")
	if kind, _ := addon.OutcomeOf(err); kind != addon.NotInRegistry {
		t.Errorf("err = %v, want NotInRegistry", err)
	}
}

func TestShowToggleExpanded(t *testing.T) {
	home := setupCLI(t)
	cfg := addon.NewConfiguration()
	cfg.Catalog["hello"] = &addon.Record{
		URL:  "https://example.com/hello.zip",
		Info: addon.Info{Name: "Hello", Version: addon.Version{1}, Warning: "Experimental"},
	}
	store := config.NewFileStore(filepath.Join(home, "addon_registry.json"))
	store.Save(cfg)

	out, err := executeCommand(t, "show", "hello", "--toggle")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Warning: Experimental") || !strings.Contains(out, "none (cannot be installed)") {
		t.Errorf("show output:\n%s", out)
	}

	saved, _ := store.Load()
	if !saved.Catalog["hello"].Expanded {
		t.Error("toggle should persist the expanded state")
	}
	showToggle = false
}

func TestRegistryAddSimulate(t *testing.T) {
	setupCLI(t)
	src := filepath.Join(t.TempDir(), "measure.py")
	os.WriteFile(src, []byte("bl_info = {}"), 0644)
	index := filepath.Join(t.TempDir(), "addons.json")

	out, err := executeCommand(t, "registry", "add", src, "--index", index,
		"--version", "0.3", "--category", "Mesh", "--simulate")
	if err != nil {
		t.Fatalf("registry add: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"file": true`) || !strings.Contains(out, `"sha256"`) {
		t.Errorf("simulated index:\n%s", out)
	}
	if _, err := os.Stat(index); !os.IsNotExist(err) {
		t.Error("--simulate must not write the index")
	}
	regSimulate = false
}

func TestConfigSetGet(t *testing.T) {
	setupCLI(t)

	if _, err := executeCommand(t, "config", "set", "log_level", "debug"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err := executeCommand(t, "config", "get", "log_level")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "debug" {
		t.Errorf("config get = %q", out)
	}
	if _, err := executeCommand(t, "config", "get", "nope"); err == nil {
		t.Error("unknown key should fail")
	}
}
