package registry

import (
	"context"
	"fmt"

	"github.com/addonreg/addonreg/internal/addon"
)

// Fetcher reads the whole content at a location.
type Fetcher interface {
	ReadAll(ctx context.Context, location string) ([]byte, error)
}

// FetchSource retrieves the raw catalog text of one registry source. Every
// failure is reported as a single opaque error; callers only need to know
// that the source failed.
func FetchSource(ctx context.Context, f Fetcher, src addon.Source) (string, error) {
	data, err := f.ReadAll(ctx, src.Location)
	if err != nil {
		return "", fmt.Errorf("fetching registry %s: %w", src.Location, err)
	}
	return string(data), nil
}
