package config

import (
	"fmt"
	"strings"
)

// normalize expands every path field and canonicalizes string settings so
// the rest of the program never re-checks case or whitespace.
func (c *Config) normalize() error {
	pathFields := []struct {
		name  string
		value *string
	}{
		{"paths.videos_dir", &c.Paths.VideosDir},
		{"paths.organized_dir", &c.Paths.OrganizedDir},
		{"paths.state_dir", &c.Paths.StateDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.thumb_cache_dir", &c.Paths.ThumbCacheDir},
	}
	for _, field := range pathFields {
		expanded, err := expandPath(*field.value)
		if err != nil {
			return fmt.Errorf("expand %s: %w", field.name, err)
		}
		*field.value = expanded
	}

	c.Site.Domain = strings.TrimSpace(c.Site.Domain)
	c.Site.Domain = strings.TrimPrefix(c.Site.Domain, "https://")
	c.Site.Domain = strings.TrimPrefix(c.Site.Domain, "http://")
	c.Site.Domain = strings.TrimRight(c.Site.Domain, "/")
	c.Site.ListingPath = normalizeSitePath(c.Site.ListingPath)
	c.Site.TagsPath = normalizeSitePath(c.Site.TagsPath)
	c.Site.ModelsPath = normalizeSitePath(c.Site.ModelsPath)

	c.Crawl.PaginationMode = strings.ToLower(strings.TrimSpace(c.Crawl.PaginationMode))
	if c.Crawl.PaginationMode == "" {
		c.Crawl.PaginationMode = "probe"
	}

	extensions := make([]string, 0, len(c.Matching.VideoExtensions))
	for _, ext := range c.Matching.VideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions = append(extensions, ext)
	}
	c.Matching.VideoExtensions = extensions

	c.Linking.UntaggedFolder = strings.TrimSpace(c.Linking.UntaggedFolder)
	if c.Linking.UntaggedFolder == "" {
		c.Linking.UntaggedFolder = "tag no tag"
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

func normalizeSitePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
