package player

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedLocator is returned when a resolver cannot handle a locator.
var ErrUnsupportedLocator = errors.New("unsupported audio locator")

// Resolver turns an audio locator (URL or path) into a readable local file path.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, locator string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, locator string) (string, error) {
	return f(ctx, locator)
}

// LocalResolver resolves plain paths and file:// URLs. Relative paths are
// taken from BaseDir.
type LocalResolver struct {
	BaseDir string
}

func (r LocalResolver) Resolve(_ context.Context, locator string) (string, error) {
	path := locator
	if strings.Contains(locator, "://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", err
		}
		if u.Scheme != "file" {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedLocator, locator)
		}
		path = u.Path
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsupportedLocator)
	}
	if !filepath.IsAbs(path) && r.BaseDir != "" {
		path = filepath.Join(r.BaseDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
