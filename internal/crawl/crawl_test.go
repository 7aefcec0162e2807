package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"vidshelf/internal/config"
	"vidshelf/internal/services"
)

// fakeSite serves a paginated listing from memory. Pages beyond totalPages
// return an empty listing; pages in failPages return a transient error.
type fakeSite struct {
	mu         sync.Mutex
	totalPages int
	perPage    int
	visible    int
	failPages  map[int]bool
	notFound   bool
	fetched    []string
}

func (f *fakeSite) FetchPage(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	page := 1
	if idx := strings.Index(url, "page="); idx >= 0 {
		_, _ = fmt.Sscanf(url[idx:], "page=%d", &page)
	}

	if f.failPages[page] {
		return "", services.Wrap(services.ErrTransient, "fetch", "get page", url, nil)
	}
	if page > f.totalPages {
		if f.notFound {
			return "", services.Wrap(services.ErrNotFound, "fetch", "get page", url, nil)
		}
		return f.render(page, 0), nil
	}
	return f.render(page, f.perPage), nil
}

func (f *fakeSite) render(page, count int) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&sb, `<div class="videoBlock"><a href="/updates/video-%d-%d">Video %d %d</a></div>`, page, i, page, i)
	}
	sb.WriteString(`<div class="pagination">`)
	limit := f.visible
	if limit > f.totalPages {
		limit = f.totalPages
	}
	for p := 1; p <= limit; p++ {
		fmt.Fprintf(&sb, `<a href="?page=%d">%d</a>`, p, p)
	}
	sb.WriteString("</div></body></html>")
	return sb.String()
}

func testCrawler(fetcher *fakeSite, mode string) *Crawler {
	cfg := config.Default()
	cfg.Crawl.Workers = 3
	cfg.Crawl.PaginationMode = mode
	cfg.Crawl.MaxProbePages = 50
	cfg.Site.ListingPath = "/categories/updates"
	return New(&cfg, fetcher, nil)
}

func TestCrawlCoversPagesBeyondVisiblePager(t *testing.T) {
	site := &fakeSite{totalPages: 12, perPage: 4, visible: 5}
	crawler := testCrawler(site, "probe")

	result, err := crawler.CrawlListing(context.Background(), "https://example.com/categories/updates")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}

	if result.PagesFetched != 12 {
		t.Fatalf("pages fetched = %d, want 12", result.PagesFetched)
	}
	if len(result.Entities) != 48 {
		t.Fatalf("entities = %d, want 48", len(result.Entities))
	}
	if len(result.Gaps) != 0 {
		t.Fatalf("gaps = %v, want none", result.Gaps)
	}

	// Page 12's entities must be present even though the pager stopped at 5.
	found := false
	for _, entity := range result.Entities {
		if strings.Contains(entity.URL, "video-12-") {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("entities from page 12 missing")
	}
}

func TestCrawlPagerModeStopsAtVisible(t *testing.T) {
	site := &fakeSite{totalPages: 12, perPage: 2, visible: 5}
	crawler := testCrawler(site, "pager")

	result, err := crawler.CrawlListing(context.Background(), "https://example.com/categories/updates")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if result.PagesFetched != 5 {
		t.Fatalf("pages fetched = %d, want 5", result.PagesFetched)
	}
	if len(result.Entities) != 10 {
		t.Fatalf("entities = %d, want 10", len(result.Entities))
	}
}

func TestCrawlProbeStopsOnNotFound(t *testing.T) {
	site := &fakeSite{totalPages: 7, perPage: 1, visible: 3, notFound: true}
	crawler := testCrawler(site, "probe")

	result, err := crawler.CrawlListing(context.Background(), "https://example.com/categories/updates")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if result.PagesFetched != 7 {
		t.Fatalf("pages fetched = %d, want 7", result.PagesFetched)
	}
	if len(result.Gaps) != 0 {
		t.Fatalf("out-of-range probe must not record a gap, got %v", result.Gaps)
	}
}

func TestCrawlRecordsGapForFailedPage(t *testing.T) {
	site := &fakeSite{totalPages: 5, perPage: 2, visible: 5, failPages: map[int]bool{3: true}}
	crawler := testCrawler(site, "pager")

	result, err := crawler.CrawlListing(context.Background(), "https://example.com/categories/updates")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("gaps = %v, want exactly one", result.Gaps)
	}
	if result.Gaps[0].Page != 3 {
		t.Fatalf("gap page = %d, want 3", result.Gaps[0].Page)
	}
	if len(result.Entities) != 8 {
		t.Fatalf("entities = %d, want 8 from the four good pages", len(result.Entities))
	}
}

func TestCrawlFirstPageFailureIsFatal(t *testing.T) {
	site := &fakeSite{totalPages: 3, perPage: 1, visible: 3, failPages: map[int]bool{1: true}}
	crawler := testCrawler(site, "probe")

	_, err := crawler.CrawlListing(context.Background(), "https://example.com/categories/updates")
	if err == nil {
		t.Fatal("expected error when the first page cannot be fetched")
	}
}

func TestCrawlDeterministicOrder(t *testing.T) {
	site := &fakeSite{totalPages: 6, perPage: 3, visible: 6}
	crawler := testCrawler(site, "pager")

	first, err := crawler.CrawlListing(context.Background(), "https://example.com/categories/updates")
	if err != nil {
		t.Fatal(err)
	}
	second, err := crawler.CrawlListing(context.Background(), "https://example.com/categories/updates")
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Entities) != len(second.Entities) {
		t.Fatalf("entity counts differ: %d vs %d", len(first.Entities), len(second.Entities))
	}
	for i := range first.Entities {
		if first.Entities[i].URL != second.Entities[i].URL {
			t.Fatalf("order differs at %d: %q vs %q", i, first.Entities[i].URL, second.Entities[i].URL)
		}
	}
}

func TestCrawlCategoryIndex(t *testing.T) {
	fetcher := &staticFetcher{body: `<html><body>
<div class="tagsContainer">
  <a href="/tags/rope">rope</a>
  <a href="/tags/suspension">suspension</a>
</div>
</body></html>`}
	crawler := testCrawler(&fakeSite{}, "pager")
	crawler.fetcher = fetcher

	result, err := crawler.CrawlCategoryIndex(context.Background(), "https://example.com/tags")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(result.Links) != 2 {
		t.Fatalf("links = %v, want 2", result.Links)
	}
}

type staticFetcher struct {
	body string
}

func (s *staticFetcher) FetchPage(context.Context, string) (string, error) {
	return s.body, nil
}
