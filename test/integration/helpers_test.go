//go:build integration

package integration_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/addonreg/addonreg/internal/archive"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // ADDONREG_HOME: state, receipts, pending archives
	AddonsDir  string // ADDONREG_ADDONS_DIR: where addons get installed
	PublishDir string // a registry maintainer's working directory
}

// setupTestEnv creates isolated temp directories and sets environment variables
// so all operations are sandboxed. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:    t.TempDir(),
		AddonsDir:  t.TempDir(),
		PublishDir: t.TempDir(),
	}
	t.Setenv("ADDONREG_HOME", env.HomeDir)
	t.Setenv("ADDONREG_ADDONS_DIR", env.AddonsDir)
	return env
}

// writeZip creates a zip archive at path from name -> content.
func writeZip(t *testing.T, path string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to not exist", path)
	}
}

func archivePendingStore(env *testEnv) *archive.PendingStore {
	return archive.NewPendingStore(filepath.Join(env.HomeDir, "pending"))
}
