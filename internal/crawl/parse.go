package crawl

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selector lists are tried in order; the first one that yields results wins.
// Sites vary in markup, so each list starts with the most specific layout
// and degrades to a generic anchor scan.
var (
	videoSelectorTemplates = []string{
		"div.videoBlock a[href*='/%s/']",
		".videoThumb a[href*='/%s/']",
		".updateItem a[href*='/%s/']",
		"div.update a[href*='/%s/']",
		"a[href*='/%s/']",
	}

	categorySelectors = []string{
		".tagsContainer a",
		".tags a",
		".tagList a",
		".modelBlock a",
		".models a",
		".modelList a",
	}

	paginationSelectors = []string{
		"div.pagination",
		".pagination",
		"nav.pagination",
		".page-numbers",
		".pager",
		".paginate",
	}
)

var (
	queryPagePattern = regexp.MustCompile(`[?&]page=(\d+)`)
	pathPagePattern  = regexp.MustCompile(`/page/(\d+)`)
)

// PagePattern is how a site encodes page numbers in listing URLs.
type PagePattern string

const (
	// PatternQuery appends "?page=N".
	PatternQuery PagePattern = "query"
	// PatternPath appends "/page/N".
	PatternPath PagePattern = "path"
)

// Entity is one video link extracted from a listing page.
type Entity struct {
	URL      string
	Title    string
	ThumbURL string
}

// PagerInfo is what the pagination widget revealed on a page. MaxVisible is
// the highest page number present in the widget, which may undercount the
// real total when the site only renders nearby page links.
type PagerInfo struct {
	MaxVisible int
	Pattern    PagePattern
	HasNext    bool
}

func parseDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// extractEntities pulls video links out of a listing page. Hrefs are
// resolved against pageURL, deduplicated, and returned in DOM order.
// segment is the URL path segment that identifies video pages ("updates"
// for a listing path of /categories/updates).
func extractEntities(doc *goquery.Document, pageURL, segment string) []Entity {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	for _, template := range videoSelectorTemplates {
		selector := fmt.Sprintf(template, segment)
		entities := collectEntities(doc, base, selector, segment)
		if len(entities) > 0 {
			return entities
		}
	}
	return nil
}

func collectEntities(doc *goquery.Document, base *url.URL, selector, segment string) []Entity {
	var entities []Entity
	seen := make(map[string]int)

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" || !strings.Contains(resolved, "/"+segment+"/") {
			return
		}
		// Pagination links for the listing itself share the segment.
		if queryPagePattern.MatchString(resolved) || pathPagePattern.MatchString(resolved) {
			return
		}

		title := linkTitle(sel)
		thumb := linkThumb(sel, base)

		if idx, dup := seen[resolved]; dup {
			// The same video often appears twice per block: once as a
			// thumbnail link and once as a title link. Keep the entry with
			// the better text.
			if entities[idx].Title == "" && title != "" {
				entities[idx].Title = title
			}
			if entities[idx].ThumbURL == "" && thumb != "" {
				entities[idx].ThumbURL = thumb
			}
			return
		}
		seen[resolved] = len(entities)
		entities = append(entities, Entity{URL: resolved, Title: title, ThumbURL: thumb})
	})
	return entities
}

func linkTitle(sel *goquery.Selection) string {
	if text := strings.TrimSpace(sel.Text()); text != "" {
		return collapseSpace(text)
	}
	if title, ok := sel.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return collapseSpace(title)
	}
	if alt, ok := sel.Find("img").Attr("alt"); ok && strings.TrimSpace(alt) != "" {
		return collapseSpace(alt)
	}
	return ""
}

func linkThumb(sel *goquery.Selection, base *url.URL) string {
	img := sel.Find("img")
	if src, ok := img.Attr("src"); ok {
		return resolveURL(base, src)
	}
	if src, ok := img.Attr("data-src"); ok {
		return resolveURL(base, src)
	}
	return ""
}

// extractCategoryLinks pulls tag and model page links from a tag/model index
// page or a video detail page.
func extractCategoryLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	for _, selector := range categorySelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok {
				return
			}
			resolved := resolveURL(base, href)
			if resolved == "" || seen[resolved] {
				return
			}
			seen[resolved] = true
			links = append(links, resolved)
		})
	}
	return links
}

// parsePager inspects the pagination widget. The highest page number found
// in link hrefs or link text becomes MaxVisible; the href shapes decide the
// page URL pattern. A page without any recognized widget reports MaxVisible
// 1 with the query pattern.
func parsePager(doc *goquery.Document) PagerInfo {
	info := PagerInfo{MaxVisible: 1, Pattern: PatternQuery}

	var widget *goquery.Selection
	for _, selector := range paginationSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			widget = found.First()
			break
		}
	}
	if widget == nil {
		return info
	}

	var pages []int
	patternVotes := map[PagePattern]int{}

	widget.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if m := queryPagePattern.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				pages = append(pages, n)
				patternVotes[PatternQuery]++
			}
		}
		if m := pathPagePattern.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				pages = append(pages, n)
				patternVotes[PatternPath]++
			}
		}
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if n, err := strconv.Atoi(text); err == nil {
			pages = append(pages, n)
		}
		if text == "next" || text == ">" || text == "»" || text == "→" {
			info.HasNext = true
		}
	})

	if len(pages) > 0 {
		sort.Ints(pages)
		info.MaxVisible = pages[len(pages)-1]
	}
	if patternVotes[PatternPath] > patternVotes[PatternQuery] {
		info.Pattern = PatternPath
	}
	return info
}

// pageURL builds the URL for a given page number of a listing. Page 1 is the
// root itself.
func pageURL(root string, page int, pattern PagePattern) string {
	if page <= 1 {
		return root
	}
	switch pattern {
	case PatternPath:
		return strings.TrimRight(root, "/") + "/page/" + strconv.Itoa(page)
	default:
		separator := "?"
		if strings.Contains(root, "?") {
			separator = "&"
		}
		return root + separator + "page=" + strconv.Itoa(page)
	}
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
