// Package sitemap discovers and parses XML sitemaps as the fast path for
// finding video and category page URLs before falling back to pagination
// crawling.
package sitemap

import (
	"context"
	"encoding/xml"
	"errors"
	"log/slog"
	"strings"

	"vidshelf/internal/fetch"
	"vidshelf/internal/logging"
	"vidshelf/internal/services"
)

// Well-known sitemap locations probed in order.
var sitemapPaths = []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml"}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName  xml.Name   `xml:"sitemapindex"`
	Sitemaps []urlEntry `xml:"sitemap"`
}

// Result partitions sitemap URLs by what part of the site they point at.
type Result struct {
	VideoURLs    []string
	CategoryURLs []string
	OtherURLs    []string
}

// Classifier decides which bucket a sitemap URL belongs in, typically built
// from the configured site paths.
type Classifier struct {
	ListingSegment string
	TagsSegment    string
	ModelsSegment  string
}

// NewClassifier derives URL classification segments from the configured site
// paths. Path values like "/categories/updates" classify by their last
// segment.
func NewClassifier(listingPath, tagsPath, modelsPath string) Classifier {
	return Classifier{
		ListingSegment: lastSegment(listingPath),
		TagsSegment:    lastSegment(tagsPath),
		ModelsSegment:  lastSegment(modelsPath),
	}
}

func lastSegment(p string) string {
	p = strings.Trim(p, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		p = p[idx+1:]
	}
	return strings.ToLower(p)
}

func (c Classifier) classify(url string) string {
	lowered := strings.ToLower(url)
	if c.ListingSegment != "" && strings.Contains(lowered, "/"+c.ListingSegment+"/") {
		return "video"
	}
	if c.TagsSegment != "" && strings.Contains(lowered, "/"+c.TagsSegment+"/") {
		return "category"
	}
	if c.ModelsSegment != "" && strings.Contains(lowered, "/"+c.ModelsSegment+"/") {
		return "category"
	}
	return "other"
}

// Discover probes the well-known sitemap locations for baseURL, follows one
// level of sitemap index indirection, and classifies every URL found.
// Returns services.ErrNotFound when the site exposes no sitemap at all.
func Discover(ctx context.Context, fetcher fetch.Fetcher, baseURL string, classifier Classifier, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "sitemap"))

	var body string
	var found bool
	for _, path := range sitemapPaths {
		url := baseURL + path
		page, err := fetcher.FetchPage(ctx, url)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			return nil, err
		}
		logger.Debug("sitemap found", logging.String(logging.FieldURL, url))
		body = page
		found = true
		break
	}
	if !found {
		return nil, services.Wrap(services.ErrNotFound, "sitemap", "discover", "no sitemap at well-known locations for "+baseURL, nil)
	}

	urls, nested, err := Parse(body)
	if err != nil {
		return nil, err
	}

	// One level of index indirection is enough for the sites this tool
	// targets.
	for _, nestedURL := range nested {
		page, err := fetcher.FetchPage(ctx, nestedURL)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			return nil, err
		}
		childURLs, _, err := Parse(page)
		if err != nil {
			logger.Warn("skipping malformed child sitemap",
				logging.String(logging.FieldURL, nestedURL),
				logging.Error(err))
			continue
		}
		urls = append(urls, childURLs...)
	}

	result := &Result{}
	seen := make(map[string]bool, len(urls))
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		switch classifier.classify(url) {
		case "video":
			result.VideoURLs = append(result.VideoURLs, url)
		case "category":
			result.CategoryURLs = append(result.CategoryURLs, url)
		default:
			result.OtherURLs = append(result.OtherURLs, url)
		}
	}

	logger.Info("sitemap parsed",
		logging.Int("videos", len(result.VideoURLs)),
		logging.Int("categories", len(result.CategoryURLs)),
		logging.Int("other", len(result.OtherURLs)))
	return result, nil
}

// Parse decodes a sitemap document. For a urlset it returns the page URLs;
// for a sitemapindex it returns the child sitemap URLs in the second slice.
func Parse(body string) (urls []string, childSitemaps []string, err error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, nil, services.Wrap(services.ErrCatalogFormat, "sitemap", "parse", "empty sitemap document", nil)
	}

	var set urlSet
	if err := xml.Unmarshal([]byte(trimmed), &set); err == nil && len(set.URLs) > 0 {
		for _, entry := range set.URLs {
			urls = append(urls, strings.TrimSpace(entry.Loc))
		}
		return urls, nil, nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal([]byte(trimmed), &index); err == nil && len(index.Sitemaps) > 0 {
		for _, entry := range index.Sitemaps {
			childSitemaps = append(childSitemaps, strings.TrimSpace(entry.Loc))
		}
		return nil, childSitemaps, nil
	}

	return nil, nil, services.Wrap(services.ErrCatalogFormat, "sitemap", "parse", "document is neither urlset nor sitemapindex", nil)
}
