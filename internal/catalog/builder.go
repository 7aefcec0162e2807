package catalog

import (
	"strings"
	"unicode/utf8"

	"vidshelf/internal/textutil"
)

// Titles longer than this are shortened before they reach the filesystem.
const maxTitleLength = 200

// Builder aggregates crawled (url, raw title) pairs into a catalog with
// distinguishable titles. Entities arrive in crawl order; Build preserves
// that order.
type Builder struct {
	catalog *Catalog
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{catalog: New()}
}

// Add records one crawled entity. Duplicate URLs merge their associations
// into the first occurrence. An empty raw title falls back to a name derived
// from the URL's last path segment.
func (b *Builder) Add(url, rawTitle string, associations ...Association) *Entity {
	title := cleanTitle(rawTitle)
	if title == "" {
		title = textutil.UpperTitleFromSlug(lastPathSegment(url))
	}
	entity := &Entity{URL: url, Title: title}
	for _, assoc := range associations {
		entity.AddAssociation(assoc)
	}
	return b.catalog.Upsert(entity)
}

// Build finalizes the catalog: titles are shortened to a filesystem-safe
// length and colliding normalized titles are disambiguated. The first entity
// with a given normalized title keeps the plain title; each later collider
// gets a short URL hash so no two stored titles are equal.
func (b *Builder) Build() *Catalog {
	seen := make(map[string]bool, b.catalog.Len())
	for _, entity := range b.catalog.Entities() {
		entity.Title = truncateTitle(entity.Title, entity.URL)
		key := entity.NormalizedTitle()
		if seen[key] {
			entity.Hash = URLHash(entity.URL)
		} else {
			seen[key] = true
		}
	}
	return b.catalog
}

func cleanTitle(raw string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(raw)), " ")
}

func lastPathSegment(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, "."); idx > 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

// truncateTitle shortens overlong titles at a word boundary and appends a
// URL hash so two long titles sharing a prefix stay distinguishable after
// the cut.
func truncateTitle(title, url string) string {
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	hash := URLHash(url)
	budget := maxTitleLength - len(hash) - 1
	runes := []rune(title)
	cut := budget
	for i := budget; i > budget/2; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + " " + hash
}
