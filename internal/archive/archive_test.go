package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/addonreg/addonreg/internal/addon"
)

// createTestZip builds a zip archive from name -> content.
func createTestZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// createTestTarGz builds a tar.gz archive from name -> content.
func createTestTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	gw.Close()
	return buf.Bytes()
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "download")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func noArchiver() (string, bool) { return "", false }

func assertGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s should have been removed", path)
	}
}

func TestInstallZip(t *testing.T) {
	target := t.TempDir()
	file := writeTemp(t, createTestZip(t, map[string]string{
		"x/__init__.py": "bl_info = {}",
		"x/util.py":     "pass",
	}))

	res, err := New(WithArchiverLookup(noArchiver)).Install(context.Background(), Request{
		Name: "x", File: file, URL: "http://host/x.zip", TargetDir: target,
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if res.Format != Zip {
		t.Errorf("Format = %v, want zip", res.Format)
	}
	if len(res.Paths) != 1 || res.Paths[0] != filepath.Join(target, "x") {
		t.Errorf("Paths = %v", res.Paths)
	}
	data, err := os.ReadFile(filepath.Join(target, "x", "__init__.py"))
	if err != nil || string(data) != "bl_info = {}" {
		t.Errorf("extracted content = %q, %v", data, err)
	}
	assertGone(t, file)
}

func TestInstallReplacesPriorInstallation(t *testing.T) {
	target := t.TempDir()
	archive := createTestZip(t, map[string]string{"x/__init__.py": "v2"})

	stale := filepath.Join(target, "x", "stale.py")
	os.MkdirAll(filepath.Dir(stale), 0755)
	os.WriteFile(stale, []byte("old"), 0644)
	os.WriteFile(filepath.Join(target, "x.py"), []byte("old single file"), 0644)

	in := New(WithArchiverLookup(noArchiver))
	for i := 0; i < 2; i++ {
		_, err := in.Install(context.Background(), Request{
			Name: "x", File: writeTemp(t, archive), URL: "http://host/x.zip", TargetDir: target,
		})
		if err != nil {
			t.Fatalf("install %d: %v", i+1, err)
		}
	}

	assertGone(t, stale)
	assertGone(t, filepath.Join(target, "x.py"))
	dirEntries, _ := os.ReadDir(target)
	if len(dirEntries) != 1 {
		t.Errorf("target has %d entries, want exactly one copy", len(dirEntries))
	}
}

func TestInstallSingleFile(t *testing.T) {
	target := t.TempDir()
	file := writeTemp(t, []byte("bl_info = {}"))

	res, err := New().Install(context.Background(), Request{
		Name: "tool", File: file, SingleFile: true, URL: "https://host/scripts/tool.py", TargetDir: target,
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	dest := filepath.Join(target, "tool.py")
	if len(res.Paths) != 1 || res.Paths[0] != dest {
		t.Errorf("Paths = %v", res.Paths)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("single file not installed: %v", err)
	}
	assertGone(t, file)
}

func TestInstallTarGz(t *testing.T) {
	target := t.TempDir()
	file := writeTemp(t, createTestTarGz(t, map[string]string{"y/__init__.py": "pass"}))

	res, err := New(WithArchiverLookup(noArchiver)).Install(context.Background(), Request{
		Name: "y", File: file, URL: "http://host/y.tar.gz", TargetDir: target,
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if res.Format != TarGzip {
		t.Errorf("Format = %v, want tar.gz", res.Format)
	}
	if _, err := os.Stat(filepath.Join(target, "y", "__init__.py")); err != nil {
		t.Errorf("tar.gz not extracted: %v", err)
	}
}

func TestInstallUnknownFormatWithoutArchiver(t *testing.T) {
	target := t.TempDir()
	store := NewPendingStore(filepath.Join(t.TempDir(), "pending"))
	file := writeTemp(t, []byte("Rar!\x1a\x07\x00 opaque"))

	res, err := New(WithArchiverLookup(noArchiver), WithPendingStore(store)).Install(context.Background(), Request{
		Name: "z", File: file, URL: "http://host/dl/z-1.0.rar?x=1", TargetDir: target,
	})
	if !errors.Is(err, addon.ErrExtractManually) {
		t.Fatalf("err = %v, want ExtractManually", err)
	}
	if res == nil || res.Pending == nil {
		t.Fatal("expected a pending archive")
	}
	if res.Pending.SuggestedName != "z-1.0.rar" {
		t.Errorf("SuggestedName = %q", res.Pending.SuggestedName)
	}
	if _, err := os.Stat(res.Pending.Path); err != nil {
		t.Errorf("pending archive must be preserved: %v", err)
	}

	listed, err := store.List()
	if err != nil || len(listed) != 1 || listed[0].Name != "z" {
		t.Errorf("List = %v, %v", listed, err)
	}

	saveDir := t.TempDir()
	dest, err := store.SaveAs("z", saveDir)
	if err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if dest != filepath.Join(saveDir, "z-1.0.rar") {
		t.Errorf("dest = %q", dest)
	}
	if _, err := store.Get("z"); err == nil {
		t.Error("pending record should be cleared after save")
	}
}

func TestInstallUnknownFormatWithArchiver(t *testing.T) {
	target := t.TempDir()
	file := writeTemp(t, []byte("7z\xbc\xaf\x27\x1c opaque"))

	var gotArgs []string
	runner := func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return os.MkdirAll(filepath.Join(strings.TrimPrefix(args[1], "-o"), "w"), 0755)
	}

	res, err := New(
		WithArchiverLookup(func() (string, bool) { return "/usr/bin/7z", true }),
		WithRunner(runner),
	).Install(context.Background(), Request{Name: "w", File: file, URL: "http://host/w.7z", TargetDir: target})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	stagePrefix := "-o" + filepath.Join(target, stagingPrefix)
	if len(gotArgs) != 4 || gotArgs[0] != "x" || !strings.HasPrefix(gotArgs[1], stagePrefix) || gotArgs[2] != "-y" || gotArgs[3] != file {
		t.Errorf("archiver args = %v", gotArgs)
	}
	if len(res.Paths) != 1 || res.Paths[0] != filepath.Join(target, "w") {
		t.Errorf("Paths = %v", res.Paths)
	}
	assertGone(t, file)
	assertNoStaging(t, target)
}

func TestInstallArchiverFailureFallsBackToPending(t *testing.T) {
	file := writeTemp(t, []byte("opaque"))
	failing := func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 2")
	}

	res, err := New(
		WithArchiverLookup(func() (string, bool) { return "7z", true }),
		WithRunner(failing),
	).Install(context.Background(), Request{Name: "v", File: file, URL: "http://host/v.bin", TargetDir: t.TempDir()})

	if got, _ := addon.OutcomeOf(err); got != addon.ExtractManually {
		t.Fatalf("outcome = %v", got)
	}
	if res.Pending.Path != file {
		t.Errorf("without a store the temp file stays put, got %q", res.Pending.Path)
	}
	if _, err := os.Stat(file); err != nil {
		t.Error("temp file must not be deleted in the manual fallback")
	}
}

func TestInstallRejectsEscapingEntries(t *testing.T) {
	target := filepath.Join(t.TempDir(), "addons")
	file := writeTemp(t, createTestZip(t, map[string]string{"../evil.py": "boom"}))

	_, err := New().Install(context.Background(), Request{Name: "evil", File: file, URL: "x.zip", TargetDir: target})
	if err == nil {
		t.Fatal("expected error for path traversal entry")
	}
	assertGone(t, filepath.Join(filepath.Dir(target), "evil.py"))
	assertGone(t, file)
}

func assertNoStaging(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), stagingPrefix) {
			t.Errorf("staging directory %s left behind", e.Name())
		}
	}
}

func TestInstallRejectsUnsafeNames(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "addons")
	victim := filepath.Join(root, "victim")
	if err := os.MkdirAll(victim, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(victim, "keep.txt"), []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"../victim", "..", ".", "", "a/b", "/abs"} {
		t.Run(name, func(t *testing.T) {
			file := writeTemp(t, []byte("bl_info = {}"))
			_, err := New().Install(context.Background(), Request{
				Name: name, File: file, SingleFile: true, URL: "victim.py", TargetDir: target,
			})
			if err == nil {
				t.Fatalf("Install(%q) should fail", name)
			}
			assertGone(t, file)
		})
	}
	if _, err := os.Stat(filepath.Join(victim, "keep.txt")); err != nil {
		t.Errorf("sibling of the target directory was touched: %v", err)
	}
	assertGone(t, filepath.Join(root, "victim.py"))

	if err := RemoveInstalled(target, "../victim", ".py"); err == nil {
		t.Error("RemoveInstalled should reject a name outside the target directory")
	}
	if _, err := os.Stat(victim); err != nil {
		t.Errorf("victim removed: %v", err)
	}
}

func TestPendingStoreRejectsUnsafeNames(t *testing.T) {
	root := t.TempDir()
	store := NewPendingStore(filepath.Join(root, "pending"))
	sibling := filepath.Join(root, "x")
	if err := os.MkdirAll(sibling, 0755); err != nil {
		t.Fatal(err)
	}

	file := writeTemp(t, []byte("opaque"))
	if _, err := store.Hold("../x", file, "x.rar"); err == nil {
		t.Fatal("Hold should reject ../x")
	}
	if _, err := os.Stat(sibling); err != nil {
		t.Errorf("sibling removed: %v", err)
	}
	if err := store.Discard("../x"); err == nil {
		t.Error("Discard should reject ../x")
	}

	p, err := store.Hold("odd", file, "..")
	if err != nil {
		t.Fatal(err)
	}
	if p.SuggestedName != "odd" || filepath.Dir(p.Path) != filepath.Join(store.Dir(), "odd") {
		t.Errorf("pending = %+v", p)
	}
}

func TestInstallFailedExtractionLeavesTargetUntouched(t *testing.T) {
	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	for _, name := range []string{"ok/a.py", "../evil.py"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("pass"))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	tw.WriteHeader(&tar.Header{Name: "ok/a.py", Mode: 0644, Size: 4, Typeflag: tar.TypeReg})
	tw.Write([]byte("pass"))
	tw.WriteHeader(&tar.Header{Name: "ok/b.py", Mode: 0644, Size: 4096, Typeflag: tar.TypeReg})
	tw.Write(make([]byte, 100))
	truncatedTar := tarBuf.Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"escaping entry after valid ones", zipBuf.Bytes()},
		{"truncated tar", truncatedTar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := t.TempDir()
			other := filepath.Join(target, "other", "__init__.py")
			if err := os.MkdirAll(filepath.Dir(other), 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(other, []byte("other"), 0644); err != nil {
				t.Fatal(err)
			}

			file := writeTemp(t, tt.data)
			_, err := New().Install(context.Background(), Request{Name: "ok", File: file, URL: "ok.zip", TargetDir: target})
			if err == nil {
				t.Fatal("expected extraction error")
			}
			assertGone(t, filepath.Join(target, "ok"))
			assertGone(t, filepath.Join(filepath.Dir(target), "evil.py"))
			assertNoStaging(t, target)
			if _, err := os.Stat(other); err != nil {
				t.Errorf("unrelated unit removed: %v", err)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tarHeader := make([]byte, 512)
	copy(tarHeader[257:], "ustar")

	tests := []struct {
		name   string
		header []byte
		want   Format
	}{
		{"zip", []byte("PK\x03\x04rest"), Zip},
		{"empty zip", []byte("PK\x05\x06"), Zip},
		{"tar", tarHeader, Tar},
		{"python source", []byte("import bpy\n"), Unknown},
		{"empty", nil, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.header); got != tt.want {
				t.Errorf("Detect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFileGzipWithoutTar(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("just compressed text"))
	gw.Close()

	format, err := DetectFile(writeTemp(t, buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if format != Unknown {
		t.Errorf("plain gzip detected as %v", format)
	}
}

func TestSuggestedName(t *testing.T) {
	tests := map[string]string{
		"https://host/dl/addon-1.2.zip?token=x": "addon-1.2.zip",
		"https://host/":                         "",
		"/srv/addons/tool.py":                   "tool.py",
		"file:///srv/addons/tool.py":            "tool.py",
	}
	for in, want := range tests {
		if got := SuggestedName(in); got != want {
			t.Errorf("SuggestedName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SingleFileExt("https://host/download"); got != DefaultSingleFileExt {
		t.Errorf("SingleFileExt without extension = %q", got)
	}
}
