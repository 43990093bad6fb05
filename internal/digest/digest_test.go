package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/addonreg/addonreg/internal/addon"
)

var archiveBytes = []byte("PK\x03\x04 not really a zip, but bytes are bytes")

func correctDigest() string {
	h := sha256.Sum256(archiveBytes)
	return hex.EncodeToString(h[:])
}

// flipHex changes the first hex character of d.
func flipHex(d string) string {
	c := byte('0')
	if d[0] == '0' {
		c = '1'
	}
	return string(c) + d[1:]
}

func TestVerify(t *testing.T) {
	d := correctDigest()

	tests := []struct {
		name     string
		expected string
		want     bool
	}{
		{"correct digest", d, true},
		{"uppercase digest", strings.ToUpper(d), true},
		{"one flipped character", flipHex(d), false},
		{"empty digest", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Verify(bytes.NewReader(archiveBytes), addon.AlgSHA256, tt.expected)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifierAsTee(t *testing.T) {
	v, err := NewVerifier(addon.AlgSHA256, correctDigest())
	if err != nil {
		t.Fatal(err)
	}
	var disk bytes.Buffer
	if _, err := bytes.NewReader(archiveBytes).WriteTo(teeWriter{&disk, v}); err != nil {
		t.Fatal(err)
	}
	if !v.Matches() {
		t.Errorf("Matches() = false, sum %s", v.Sum())
	}
	if !bytes.Equal(disk.Bytes(), archiveBytes) {
		t.Error("tee altered written bytes")
	}
}

type teeWriter struct {
	a, b interface{ Write([]byte) (int, error) }
}

func (t teeWriter) Write(p []byte) (int, error) {
	if _, err := t.a.Write(p); err != nil {
		return 0, err
	}
	return t.b.Write(p)
}

func TestBLAKE2b(t *testing.T) {
	sum, err := Sum(bytes.NewReader(archiveBytes), addon.AlgBLAKE2b)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum) != 64 {
		t.Errorf("blake2b-256 digest length = %d, want 64", len(sum))
	}
	ok, err := Verify(bytes.NewReader(archiveBytes), addon.AlgBLAKE2b, sum)
	if err != nil || !ok {
		t.Errorf("Verify blake2b = (%v, %v)", ok, err)
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := New("md5"); err == nil {
		t.Error("expected error for md5")
	}
}
