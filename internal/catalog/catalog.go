// Package catalog models the deduplicated set of remote videos discovered by
// crawling, together with the flat list files that persist it between runs.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"vidshelf/internal/textutil"
)

// Kind classifies a category association.
type Kind string

const (
	KindTag   Kind = "tag"
	KindModel Kind = "model"
)

// Association ties an entity to one tag or model category.
type Association struct {
	Kind Kind
	Name string
}

// Key returns the stable identity of the association.
func (a Association) Key() string {
	return string(a.Kind) + ":" + strings.ToLower(a.Name)
}

// FolderName is the organized-tree directory name for this category.
func (a Association) FolderName() string {
	return string(a.Kind) + " " + textutil.SanitizeCategoryName(a.Name)
}

// Entity is one discovered remote video. URL is the unique key; Title is the
// display title after normalization and collision handling; Hash is the short
// disambiguation suffix, set only when another entity shares the same
// normalized title.
type Entity struct {
	URL          string
	Title        string
	Hash         string
	Associations []Association
	ThumbURL     string
}

// NormalizedTitle returns the comparison form of the entity's title, used as
// the lookup key against the local inventory.
func (e *Entity) NormalizedTitle() string {
	return textutil.NormalizeTitle(e.Title)
}

// StoredTitle is the title as written to the video list file, with the
// disambiguation hash folded in when present.
func (e *Entity) StoredTitle() string {
	if e.Hash == "" {
		return e.Title
	}
	return e.Title + " " + e.Hash
}

// AddAssociation records a category membership, deduplicated by kind+name.
func (e *Entity) AddAssociation(assoc Association) {
	assoc.Name = strings.TrimSpace(assoc.Name)
	if assoc.Name == "" {
		return
	}
	key := assoc.Key()
	for _, existing := range e.Associations {
		if existing.Key() == key {
			return
		}
	}
	e.Associations = append(e.Associations, assoc)
}

// Catalog is an ordered, URL-deduplicated collection of entities. Iteration
// order is insertion order, which downstream matching relies on for
// deterministic tie-breaks.
type Catalog struct {
	entities []*Entity
	byURL    map[string]*Entity
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{byURL: make(map[string]*Entity)}
}

// Len reports the number of entities.
func (c *Catalog) Len() int {
	return len(c.entities)
}

// Entities returns the entities in insertion order. The slice is shared;
// callers must not reorder it.
func (c *Catalog) Entities() []*Entity {
	return c.entities
}

// ByURL looks up an entity by its canonical URL.
func (c *Catalog) ByURL(url string) (*Entity, bool) {
	entity, ok := c.byURL[url]
	return entity, ok
}

// Upsert inserts the entity or, if the URL is already present, merges its
// associations into the existing record and returns that record.
func (c *Catalog) Upsert(entity *Entity) *Entity {
	if existing, ok := c.byURL[entity.URL]; ok {
		for _, assoc := range entity.Associations {
			existing.AddAssociation(assoc)
		}
		if existing.ThumbURL == "" {
			existing.ThumbURL = entity.ThumbURL
		}
		return existing
	}
	c.entities = append(c.entities, entity)
	c.byURL[entity.URL] = entity
	return entity
}

// Categories returns every distinct association across the catalog, sorted by
// kind then name for stable output.
func (c *Catalog) Categories() []Association {
	seen := make(map[string]Association)
	for _, entity := range c.entities {
		for _, assoc := range entity.Associations {
			seen[assoc.Key()] = assoc
		}
	}
	out := make([]Association, 0, len(seen))
	for _, assoc := range seen {
		out = append(out, assoc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// URLHash returns the first 8 hex characters of the SHA-256 of the URL. The
// prefix stays stable across runs, so it is safe to persist in list files and
// embed in download filenames.
func URLHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:8]
}
