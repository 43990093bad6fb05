package archive

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// Format is a container format recognized by its magic bytes.
type Format int

const (
	Unknown Format = iota
	Zip
	Tar
	TarGzip
)

func (f Format) String() string {
	switch f {
	case Zip:
		return "zip"
	case Tar:
		return "tar"
	case TarGzip:
		return "tar.gz"
	default:
		return "unknown"
	}
}

const (
	tarMagicOffset = 257
	headerSize     = 512
)

var (
	zipMagics = [][]byte{
		[]byte("PK\x03\x04"),
		[]byte("PK\x05\x06"), // empty archive
		[]byte("PK\x07\x08"), // spanned
	}
	gzipMagic = []byte{0x1f, 0x8b}
	tarMagic  = []byte("ustar")
)

// Detect classifies the first bytes of a file. A gzip stream is reported as
// TarGzip only by DetectFile, which can look inside it.
func Detect(header []byte) Format {
	for _, m := range zipMagics {
		if bytes.HasPrefix(header, m) {
			return Zip
		}
	}
	if isTarHeader(header) {
		return Tar
	}
	return Unknown
}

func isTarHeader(header []byte) bool {
	end := tarMagicOffset + len(tarMagic)
	return len(header) >= end && bytes.Equal(header[tarMagicOffset:end], tarMagic)
}

// DetectFile reads the magic bytes of the file at path.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Unknown, fmt.Errorf("reading %s: %w", path, err)
	}
	header = header[:n]

	if format := Detect(header); format != Unknown {
		return format, nil
	}
	if !bytes.HasPrefix(header, gzipMagic) {
		return Unknown, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Unknown, fmt.Errorf("rewinding %s: %w", path, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		return Unknown, nil
	}
	defer gz.Close()

	inner := make([]byte, headerSize)
	n, _ = io.ReadFull(gz, inner)
	if isTarHeader(inner[:n]) {
		return TarGzip, nil
	}
	return Unknown, nil
}

// DetectBytes classifies an in-memory file, looking inside gzip streams the
// same way DetectFile does.
func DetectBytes(data []byte) Format {
	if format := Detect(data); format != Unknown {
		return format
	}
	if !bytes.HasPrefix(data, gzipMagic) {
		return Unknown
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return Unknown
	}
	defer gz.Close()

	inner := make([]byte, headerSize)
	n, _ := io.ReadFull(gz, inner)
	if isTarHeader(inner[:n]) {
		return TarGzip
	}
	return Unknown
}
