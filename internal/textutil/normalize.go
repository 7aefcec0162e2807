package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// nonWordPattern matches runs of characters that are neither letters nor digits.
	nonWordPattern = regexp.MustCompile(`[^\pL\pN]+`)

	titleCaser = cases.Title(language.English)
	foldCaser  = cases.Fold()
)

// NormalizeTitle applies the canonical title transform used on both sides of
// a match: case fold, replace every non-alphanumeric run with a single space,
// trim. Catalog titles and local filenames must pass through this exact
// function; any divergence silently downgrades exact matches to fuzzy ones.
func NormalizeTitle(title string) string {
	folded := foldCaser.String(title)
	return strings.TrimSpace(nonWordPattern.ReplaceAllString(folded, " "))
}

// NameFromSlug turns a URL path segment such as "rope-escape-challenge" into
// a display name ("Rope Escape Challenge"). Underscores and dashes become
// spaces and each word is title-cased. Returns "Unknown" for empty input.
func NameFromSlug(slug string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	cleaned = strings.TrimSpace(nonWordPattern.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return "Unknown"
	}
	return titleCaser.String(cleaned)
}

// UpperTitleFromSlug is NameFromSlug with full uppercasing, used for
// URL-derived fallback titles of catalog entries that carry no usable
// display title. The uppercase form makes the synthetic origin visible in
// the list files.
func UpperTitleFromSlug(slug string) string {
	name := NameFromSlug(slug)
	if name == "Unknown" {
		return "UNKNOWN"
	}
	return strings.ToUpper(name)
}
