package runner

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"vidshelf/internal/catalog"
	"vidshelf/internal/crawl"
	"vidshelf/internal/ledger"
	"vidshelf/internal/logging"
	"vidshelf/internal/services"
	"vidshelf/internal/sitemap"
	"vidshelf/internal/textutil"
)

// CrawlReport summarizes one discovery pass over the remote site.
type CrawlReport struct {
	RunID        string      `json:"run_id"`
	Videos       int         `json:"videos"`
	Categories   int         `json:"categories"`
	PagesFetched int         `json:"pages_fetched"`
	UsedSitemap  bool        `json:"used_sitemap"`
	Gaps         []crawl.Gap `json:"gaps,omitempty"`
}

// Crawl discovers the site's videos and categories and rewrites the three
// state list files. Coverage gaps are persisted so a later run can retry
// the pages that failed.
func (r *Runner) Crawl(ctx context.Context) (*CrawlReport, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return r.crawl(ctx)
}

// crawl is the lock-free body, shared with Run.
func (r *Runner) crawl(ctx context.Context) (*CrawlReport, error) {
	baseURL := r.cfg.BaseURL()
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "crawl",
			"site domain is not configured", nil)
	}
	logger := r.logger.With(logging.String(logging.FieldComponent, "runner"))
	crawler := crawl.New(r.cfg, r.client, r.logger)
	report := &CrawlReport{RunID: r.runID}

	refs, usedSitemap, extraVideoURLs, err := r.discoverCategories(ctx, crawler, baseURL, report)
	if err != nil {
		return nil, err
	}
	report.UsedSitemap = usedSitemap
	report.Categories = len(refs)

	builder := catalog.NewBuilder()

	listingURL := baseURL + r.cfg.Site.ListingPath
	listing, err := crawler.CrawlListing(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	r.absorbResult(ctx, builder, listing, nil, report)

	for _, ref := range refs {
		res, err := crawler.CrawlListing(ctx, ref.URL)
		if err != nil {
			// A dead category page should not sink the whole crawl.
			logger.Warn("category crawl failed",
				logging.String("category", ref.Name), logging.Error(err))
			continue
		}
		assoc := catalog.Association{Kind: ref.Kind, Name: ref.Name}
		r.absorbResult(ctx, builder, res, []catalog.Association{assoc}, report)
	}

	for _, url := range extraVideoURLs {
		builder.Add(url, "")
	}

	cat := builder.Build()
	report.Videos = cat.Len()

	if err := catalog.WriteVideoList(r.videoListPath(), cat.Entities()); err != nil {
		return nil, err
	}
	if err := catalog.WriteCategoryList(r.categoryListPath(), refs); err != nil {
		return nil, err
	}
	if err := catalog.WriteAssociations(r.associationListPath(), cat.Entities()); err != nil {
		return nil, err
	}

	logger.Info("crawl complete",
		logging.Int("videos", report.Videos),
		logging.Int("categories", report.Categories),
		logging.Int("pages", report.PagesFetched),
		logging.Int("gaps", len(report.Gaps)))
	return report, nil
}

// absorbResult feeds one crawl result into the builder and records its
// coverage gaps.
func (r *Runner) absorbResult(ctx context.Context, builder *catalog.Builder, res *crawl.Result, assocs []catalog.Association, report *CrawlReport) {
	for _, item := range res.Entities {
		entity := builder.Add(item.URL, item.Title, assocs...)
		if entity.ThumbURL == "" {
			entity.ThumbURL = item.ThumbURL
		}
	}
	report.PagesFetched += res.PagesFetched
	report.Gaps = append(report.Gaps, res.Gaps...)
	r.recordGaps(ctx, res)
}

// recordGaps persists a result's coverage gaps, or clears earlier ones when
// the root crawled cleanly.
func (r *Runner) recordGaps(ctx context.Context, res *crawl.Result) {
	if r.store == nil {
		return
	}
	if len(res.Gaps) == 0 {
		if err := r.store.ResolveGapsForRoot(ctx, res.RootURL); err != nil {
			r.logger.Warn("failed to resolve coverage gaps", logging.Error(err))
		}
		return
	}
	for _, gap := range res.Gaps {
		rec := ledger.GapRecord{
			RootURL:    res.RootURL,
			Page:       gap.Page,
			URL:        gap.URL,
			Reason:     gap.Reason,
			RunID:      r.runID,
			RecordedAt: time.Now().UTC(),
		}
		if err := r.store.RecordGap(ctx, rec); err != nil {
			r.logger.Warn("failed to record coverage gap", logging.Error(err))
		}
	}
}

// discoverCategories finds category pages via the sitemap fast path, falling
// back to crawling the tag and model index pages when no sitemap exists.
// Sitemap discovery also yields video URLs that may not appear on any
// listing page; those come back as extras.
func (r *Runner) discoverCategories(ctx context.Context, crawler *crawl.Crawler, baseURL string, report *CrawlReport) ([]catalog.CategoryRef, bool, []string, error) {
	classifier := sitemap.NewClassifier(r.cfg.Site.ListingPath, r.cfg.Site.TagsPath, r.cfg.Site.ModelsPath)
	smResult, err := sitemap.Discover(ctx, r.client, baseURL, classifier, r.logger)
	if err == nil {
		refs := make([]catalog.CategoryRef, 0, len(smResult.CategoryURLs))
		for _, url := range smResult.CategoryURLs {
			refs = append(refs, categoryRefFromURL(url))
		}
		sortCategoryRefs(refs)
		return refs, true, smResult.VideoURLs, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return nil, false, nil, err
	}

	var refs []catalog.CategoryRef
	seen := make(map[string]bool)
	for _, index := range []struct {
		path string
		kind catalog.Kind
	}{
		{r.cfg.Site.TagsPath, catalog.KindTag},
		{r.cfg.Site.ModelsPath, catalog.KindModel},
	} {
		if index.path == "" {
			continue
		}
		res, err := crawler.CrawlCategoryIndex(ctx, baseURL+index.path)
		if err != nil {
			return nil, false, nil, err
		}
		report.PagesFetched += res.PagesFetched
		report.Gaps = append(report.Gaps, res.Gaps...)
		r.recordGaps(ctx, res)
		for _, link := range res.Links {
			if seen[link] {
				continue
			}
			seen[link] = true
			refs = append(refs, catalog.CategoryRef{
				URL:  link,
				Kind: index.kind,
				Name: categoryName(link),
			})
		}
	}
	sortCategoryRefs(refs)
	return refs, false, nil, nil
}

func categoryRefFromURL(url string) catalog.CategoryRef {
	return catalog.CategoryRef{
		URL:  url,
		Kind: catalog.ClassifyCategoryURL(url),
		Name: categoryName(url),
	}
}

// categoryName derives a display name from a category URL's last path
// segment.
func categoryName(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return textutil.NameFromSlug(trimmed)
}

func sortCategoryRefs(refs []catalog.CategoryRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Name < refs[j].Name
	})
}
