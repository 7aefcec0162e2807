package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.VideosDir) == "" {
		problems = append(problems, "paths.videos_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.OrganizedDir) == "" {
		problems = append(problems, "paths.organized_dir must not be empty")
	}
	if c.Paths.VideosDir != "" && c.Paths.VideosDir == c.Paths.OrganizedDir {
		problems = append(problems, "paths.organized_dir must differ from paths.videos_dir")
	}

	if c.Crawl.Workers < 1 {
		problems = append(problems, fmt.Sprintf("crawl.workers must be at least 1 (got %d)", c.Crawl.Workers))
	}
	if c.Crawl.RequestTimeout < 1 {
		problems = append(problems, fmt.Sprintf("crawl.request_timeout must be at least 1 second (got %d)", c.Crawl.RequestTimeout))
	}
	if c.Crawl.RetryAttempts < 0 {
		problems = append(problems, fmt.Sprintf("crawl.retry_attempts must not be negative (got %d)", c.Crawl.RetryAttempts))
	}
	switch c.Crawl.PaginationMode {
	case "probe", "pager":
	default:
		problems = append(problems, fmt.Sprintf("crawl.pagination_mode must be %q or %q (got %q)", "probe", "pager", c.Crawl.PaginationMode))
	}
	if c.Crawl.MaxProbePages < 1 {
		problems = append(problems, fmt.Sprintf("crawl.max_probe_pages must be at least 1 (got %d)", c.Crawl.MaxProbePages))
	}

	if c.Matching.MinSimilarity < 0 || c.Matching.MinSimilarity > 1 {
		problems = append(problems, fmt.Sprintf("matching.min_similarity must be between 0 and 1 (got %g)", c.Matching.MinSimilarity))
	}
	if c.Matching.AmbiguityMargin < 0 || c.Matching.AmbiguityMargin > 1 {
		problems = append(problems, fmt.Sprintf("matching.ambiguity_margin must be between 0 and 1 (got %g)", c.Matching.AmbiguityMargin))
	}
	if len(c.Matching.VideoExtensions) == 0 {
		problems = append(problems, "matching.video_extensions must not be empty")
	}

	if c.Metadata.RequestTimeout < 1 {
		problems = append(problems, fmt.Sprintf("metadata.request_timeout must be at least 1 second (got %d)", c.Metadata.RequestTimeout))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be %q or %q (got %q)", "console", "json", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
