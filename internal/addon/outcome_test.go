package addon

import (
	"errors"
	"fmt"
	"testing"
)

func TestOutcomeOf(t *testing.T) {
	wrapped := fmt.Errorf("installing: %w", NewError(HashMismatch, "foo", errors.New("expected aa, got bb")))

	tests := []struct {
		name     string
		err      error
		expected Outcome
		ok       bool
	}{
		{"nil is none", nil, None, true},
		{"direct", NewError(NoHash, "foo", nil), NoHash, true},
		{"wrapped", wrapped, HashMismatch, true},
		{"unclassified", errors.New("disk full"), None, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OutcomeOf(tt.err)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("OutcomeOf = (%v, %v), want (%v, %v)", got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewError(FailedRequest, "x", errors.New("503")))
	if !errors.Is(err, ErrFailedRequest) {
		t.Error("expected errors.Is to match ErrFailedRequest")
	}
	if errors.Is(err, ErrFailedDownload) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewError(NotInRegistry, "foo", nil)
	if got, want := err.Error(), "foo: Addon is not in the registry."; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOutcomeCodesStable(t *testing.T) {
	if None != 0 || ExtractManually != 1 || NotInRegistry != 8 {
		t.Error("outcome numbering changed")
	}
	if HashMismatch.String() != "hash_mismatch" {
		t.Errorf("String() = %q", HashMismatch.String())
	}
	if Outcome(42).Title() != "" {
		t.Error("unknown outcome should have empty title")
	}
}
