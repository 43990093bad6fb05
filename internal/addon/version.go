package addon

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an ordered sequence of non-negative integers such as [1 4 0].
// It has no fixed arity.
type Version []int

// IsNewer reports whether candidate is newer than baseline. Components are
// compared over the shared prefix; when the prefix is equal the longer
// version wins, so [1 2 0 1] is newer than [1 2 0] and [1 4] is not newer
// than [1 4 0].
func IsNewer(candidate, baseline Version) bool {
	n := min(len(candidate), len(baseline))
	for i := 0; i < n; i++ {
		if candidate[i] != baseline[i] {
			return candidate[i] > baseline[i]
		}
	}
	return len(candidate) > len(baseline)
}

// ParseVersion parses a dotted version string ("1.4.0", "v2.1") into a
// Version. The number of components is preserved.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}
	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parsing version %q: component %q is not a number", s, p)
		}
		if n < 0 {
			return nil, fmt.Errorf("parsing version %q: negative component %d", s, n)
		}
		v = append(v, n)
	}
	return v, nil
}

// String renders the version in dotted form. An empty version renders as "-".
func (v Version) String() string {
	if len(v) == 0 {
		return "-"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}
