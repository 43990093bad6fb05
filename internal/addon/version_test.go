package addon

import (
	"reflect"
	"testing"
)

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name      string
		candidate Version
		baseline  Version
		expected  bool
	}{
		{"higher minor", Version{1, 5, 0}, Version{1, 4, 9}, true},
		{"lower minor", Version{1, 4, 9}, Version{1, 5, 0}, false},
		{"shorter equal prefix", Version{1, 4}, Version{1, 4, 0}, false},
		{"longer equal prefix", Version{1, 4, 0}, Version{1, 4}, true},
		{"equal", Version{1, 4}, Version{1, 4}, false},
		{"extra trailing component", Version{1, 2, 0, 1}, Version{1, 2, 0}, true},
		{"major wins over length", Version{2}, Version{1, 9, 9, 9}, true},
		{"empty baseline", Version{0}, nil, true},
		{"both empty", nil, nil, false},
		{"large components", Version{1, 1 << 40}, Version{1, 1<<40 - 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNewer(tt.candidate, tt.baseline); got != tt.expected {
				t.Errorf("IsNewer(%v, %v) = %v, want %v", tt.candidate, tt.baseline, got, tt.expected)
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected Version
		wantErr  bool
	}{
		{"1.4.0", Version{1, 4, 0}, false},
		{"v2.1", Version{2, 1}, false},
		{" 3 ", Version{3}, false},
		{"1.2.0.1", Version{1, 2, 0, 1}, false},
		{"", nil, true},
		{"1.x", nil, true},
		{"1.-2", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	if got := (Version{1, 4, 0}).String(); got != "1.4.0" {
		t.Errorf("String() = %q, want %q", got, "1.4.0")
	}
	if got := Version(nil).String(); got != "-" {
		t.Errorf("String() of empty = %q, want %q", got, "-")
	}
}
