package testsupport

import (
	"path/filepath"
	"testing"

	"vidshelf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.VideosDir = filepath.Join(base, "videos")
	cfg.Paths.OrganizedDir = filepath.Join(base, "organized")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ThumbCacheDir = filepath.Join(base, "thumbs")
	cfg.Site.Domain = "example.com"
	cfg.Crawl.RetryBackoffMS = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDomain overrides the site domain on the test config.
func WithDomain(domain string) ConfigOption {
	return func(c *config.Config) {
		c.Site.Domain = domain
	}
}

// WithPaginationMode overrides the crawl pagination mode.
func WithPaginationMode(mode string) ConfigOption {
	return func(c *config.Config) {
		c.Crawl.PaginationMode = mode
	}
}
