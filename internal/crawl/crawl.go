// Package crawl fetches paginated listing pages and extracts video and
// category links, guaranteeing full pagination coverage even when the
// pager widget only renders a window of nearby page numbers.
package crawl

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"vidshelf/internal/config"
	"vidshelf/internal/fetch"
	"vidshelf/internal/logging"
	"vidshelf/internal/services"
)

// Gap records a listing page that could not be fetched after retries. Gaps
// are surfaced to the caller so incomplete coverage is never silent.
type Gap struct {
	Page   int
	URL    string
	Reason string
}

// Result is one category crawl's output. Entities are deduplicated by URL
// and ordered by the page they first appeared on.
type Result struct {
	RootURL      string
	Entities     []Entity
	Links        []string
	PagesFetched int
	Gaps         []Gap
}

// Crawler walks paginated listings. One Crawler is safe for sequential use
// across categories; page fetches within a category run on a bounded pool.
type Crawler struct {
	fetcher       fetch.Fetcher
	workers       int
	probeMode     bool
	maxProbePages int
	segment       string
	logger        *slog.Logger
}

// New builds a Crawler from configuration. segment is the URL path segment
// identifying video pages, derived from the site's listing path.
func New(cfg *config.Config, fetcher fetch.Fetcher, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Crawler{
		fetcher:       fetcher,
		workers:       cfg.Crawl.Workers,
		probeMode:     cfg.Crawl.PaginationMode == "probe",
		maxProbePages: cfg.Crawl.MaxProbePages,
		segment:       listingSegment(cfg.Site.ListingPath),
		logger:        logger.With(logging.String(logging.FieldComponent, "crawl")),
	}
}

func listingSegment(listingPath string) string {
	return lastSegment(listingPath)
}

func lastSegment(p string) string {
	trimmed := p
	for len(trimmed) > 0 && trimmed[len(trimmed)-1] == '/' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '/' {
			return trimmed[i+1:]
		}
	}
	return trimmed
}

// CrawlListing walks every page of a video listing rooted at rootURL.
func (c *Crawler) CrawlListing(ctx context.Context, rootURL string) (*Result, error) {
	return c.crawl(ctx, rootURL, func(doc *goquery.Document, pageURL string) pageItems {
		return pageItems{entities: extractEntities(doc, pageURL, c.segment)}
	})
}

// CrawlCategoryIndex walks every page of a tag or model index rooted at
// rootURL, collecting category page links.
func (c *Crawler) CrawlCategoryIndex(ctx context.Context, rootURL string) (*Result, error) {
	return c.crawl(ctx, rootURL, func(doc *goquery.Document, pageURL string) pageItems {
		return pageItems{links: extractCategoryLinks(doc, pageURL)}
	})
}

type pageItems struct {
	entities []Entity
	links    []string
}

func (p pageItems) empty() bool {
	return len(p.entities) == 0 && len(p.links) == 0
}

type extractFunc func(doc *goquery.Document, pageURL string) pageItems

func (c *Crawler) crawl(ctx context.Context, rootURL string, extract extractFunc) (*Result, error) {
	logger := c.logger.With(logging.String(logging.FieldURL, rootURL))

	// Page 1 is fetched alone: it carries the pager widget that shapes the
	// rest of the crawl. Failing here fails the whole category.
	firstBody, err := c.fetcher.FetchPage(ctx, rootURL)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "crawl", "fetch first page", rootURL, err)
	}
	firstDoc, err := parseDocument(firstBody)
	if err != nil {
		return nil, services.Wrap(services.ErrCatalogFormat, "crawl", "parse first page", rootURL, err)
	}

	pager := parsePager(firstDoc)
	logger.Debug("pager parsed",
		logging.Int("max_visible", pager.MaxVisible),
		logging.String("pattern", string(pager.Pattern)),
		logging.Bool("has_next", pager.HasNext))

	pages := map[int]pageItems{1: extract(firstDoc, rootURL)}
	var gaps []Gap
	var mu sync.Mutex

	// Visible pages run on the bounded pool. A page that exhausts its
	// retries becomes a coverage gap, not a crawl failure.
	if pager.MaxVisible > 1 {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(c.workers)
		for page := 2; page <= pager.MaxVisible; page++ {
			group.Go(func() error {
				items, gap := c.fetchPageItems(groupCtx, rootURL, page, pager.Pattern, extract)
				mu.Lock()
				defer mu.Unlock()
				if gap != nil {
					gaps = append(gaps, *gap)
					return nil
				}
				pages[page] = items
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Probe mode keeps going past the widget's highest page until a page
	// comes back empty, covering sites that only render nearby page links.
	probed := pager.MaxVisible
	if c.probeMode {
		for page := pager.MaxVisible + 1; page <= c.maxProbePages; page++ {
			items, gap := c.fetchPageItems(ctx, rootURL, page, pager.Pattern, extract)
			if gap != nil {
				if gap.Reason == "not found" {
					break
				}
				gaps = append(gaps, *gap)
				break
			}
			if items.empty() {
				break
			}
			pages[page] = items
			probed = page
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if probed > pager.MaxVisible {
			logger.Info("pager undercounted, probed beyond visible pages",
				logging.Int("visible_pages", pager.MaxVisible),
				logging.Int("pages", probed))
		}
	}

	result := &Result{RootURL: rootURL, PagesFetched: len(pages), Gaps: gaps}
	assemble(result, pages)

	logger.Debug("category crawl complete",
		logging.Int("pages", result.PagesFetched),
		logging.Int("entities", len(result.Entities)),
		logging.Int("coverage_gaps", len(result.Gaps)))
	return result, nil
}

func (c *Crawler) fetchPageItems(ctx context.Context, rootURL string, page int, pattern PagePattern, extract extractFunc) (pageItems, *Gap) {
	url := pageURL(rootURL, page, pattern)
	body, err := c.fetcher.FetchPage(ctx, url)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return pageItems{}, &Gap{Page: page, URL: url, Reason: "not found"}
		}
		c.logger.Warn("page skipped after retries",
			logging.String(logging.FieldURL, url),
			logging.Int(logging.FieldPage, page),
			logging.Error(err))
		return pageItems{}, &Gap{Page: page, URL: url, Reason: err.Error()}
	}
	doc, err := parseDocument(body)
	if err != nil {
		return pageItems{}, &Gap{Page: page, URL: url, Reason: "unparseable html: " + err.Error()}
	}
	return extract(doc, url), nil
}

// assemble flattens per-page items into URL-deduplicated slices ordered by
// page number, so crawl output is stable regardless of fetch completion
// order.
func assemble(result *Result, pages map[int]pageItems) {
	numbers := make([]int, 0, len(pages))
	for page := range pages {
		numbers = append(numbers, page)
	}
	sort.Ints(numbers)

	seenEntities := make(map[string]bool)
	seenLinks := make(map[string]bool)
	for _, page := range numbers {
		for _, entity := range pages[page].entities {
			if seenEntities[entity.URL] {
				continue
			}
			seenEntities[entity.URL] = true
			result.Entities = append(result.Entities, entity)
		}
		for _, link := range pages[page].links {
			if seenLinks[link] {
				continue
			}
			seenLinks[link] = true
			result.Links = append(result.Links, link)
		}
	}
}
