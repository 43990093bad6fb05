package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/addonreg/addonreg/internal/platform"
)

// stagingPrefix marks the hidden directory an archive is unpacked into
// before its entries are moved into the target directory.
const stagingPrefix = ".extract-"

// extractStaged unpacks archivePath into a staging directory inside destDir
// and moves the top-level entries into destDir only when every entry was
// written. On error destDir is left as it was.
func extractStaged(archivePath, destDir string, extract func(archivePath, stageDir string) error) ([]string, error) {
	stage, err := os.MkdirTemp(destDir, stagingPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	if err := extract(archivePath, stage); err != nil {
		return nil, err
	}

	staged, err := os.ReadDir(stage)
	if err != nil {
		return nil, fmt.Errorf("reading staging directory: %w", err)
	}
	paths := make([]string, 0, len(staged))
	for _, entry := range staged {
		dest := filepath.Join(destDir, entry.Name())
		if err := os.RemoveAll(dest); err != nil {
			return paths, fmt.Errorf("replacing %s: %w", dest, err)
		}
		if err := os.Rename(filepath.Join(stage, entry.Name()), dest); err != nil {
			return paths, fmt.Errorf("moving %s into place: %w", entry.Name(), err)
		}
		paths = append(paths, dest)
	}
	sort.Strings(paths)
	return paths, nil
}

// safeJoin resolves an archive entry name under destDir and rejects names
// that would escape it.
func safeJoin(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes the target directory", name)
	}
	return filepath.Join(destDir, clean), nil
}

// extractZip writes every entry of a zip archive under destDir.
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		dest, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", dest, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening zip entry %s: %w", f.Name, err)
		}
		err = writeFile(dest, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// extractTar writes every regular file and directory of a tar stream under
// destDir. Links and special files are skipped.
func extractTar(archivePath, destDir string, gzipped bool) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		dest, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", dest, err)
			}
		case tar.TypeReg:
			if err := writeFile(dest, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		}
	}
}

func writeFile(dest string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dest, err)
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	if perm := mode.Perm(); perm != 0 {
		return platform.Chmod(dest, perm|0600)
	}
	return nil
}
