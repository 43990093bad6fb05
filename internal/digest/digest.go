// Package digest hashes archive bytes while they are written to disk and
// compares the result with the hex digest published in a registry record.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/addonreg/addonreg/internal/addon"
	"golang.org/x/crypto/blake2b"
)

// New returns a fresh hash for the named algorithm.
func New(alg string) (hash.Hash, error) {
	switch alg {
	case addon.AlgSHA256:
		return sha256.New(), nil
	case addon.AlgBLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", alg)
	}
}

// Normalize lowercases and trims a hex digest for comparison.
func Normalize(hexDigest string) string {
	return strings.ToLower(strings.TrimSpace(hexDigest))
}

// Verifier is an io.Writer that hashes everything written to it. Tee a
// download through it to verify without a second pass over the file.
type Verifier struct {
	h        hash.Hash
	expected string
}

// NewVerifier returns a Verifier expecting expectedHex under alg.
func NewVerifier(alg, expectedHex string) (*Verifier, error) {
	h, err := New(alg)
	if err != nil {
		return nil, err
	}
	return &Verifier{h: h, expected: Normalize(expectedHex)}, nil
}

func (v *Verifier) Write(p []byte) (int, error) {
	return v.h.Write(p)
}

// Sum returns the lowercase hex digest of the bytes written so far.
func (v *Verifier) Sum() string {
	return hex.EncodeToString(v.h.Sum(nil))
}

// Matches reports whether the bytes written so far hash to the expected digest.
func (v *Verifier) Matches() bool {
	return v.expected != "" && v.Sum() == v.expected
}

// Verify hashes the whole stream and compares it with expectedHex.
func Verify(r io.Reader, alg, expectedHex string) (bool, error) {
	v, err := NewVerifier(alg, expectedHex)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(v, r); err != nil {
		return false, fmt.Errorf("hashing stream: %w", err)
	}
	return v.Matches(), nil
}

// Sum hashes the whole stream and returns its lowercase hex digest.
func Sum(r io.Reader, alg string) (string, error) {
	h, err := New(alg)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
