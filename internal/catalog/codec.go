package catalog

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"vidshelf/internal/fileutil"
	"vidshelf/internal/services"
	"vidshelf/internal/textutil"
)

// VideoListName and CategoryListName are the catalog file names under the
// state directory.
const (
	VideoListName    = "list_video.txt"
	CategoryListName = "list_tag.txt"
)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

// ParseIssue records one malformed list file line. The line is skipped, not
// fatal.
type ParseIssue struct {
	Line    int
	Message string
}

func (p ParseIssue) String() string {
	return fmt.Sprintf("line %d: %s", p.Line, p.Message)
}

// ReadVideoList parses a list_video.txt file. Lines are pipe-delimited:
// "URL|TITLE|HASH", "URL|TITLE", or a legacy bare "URL". Blank lines and
// lines starting with '#' are ignored. Malformed lines are collected as
// issues and skipped. A file where no line parses at all is an error.
func ReadVideoList(path string) ([]*Entity, []ParseIssue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrFilesystem, "catalog", "open video list", path, err)
	}
	defer file.Close()

	var (
		entities []*Entity
		issues   []ParseIssue
		lineNo   int
		nonEmpty int
	)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		nonEmpty++

		entity, issue := parseVideoLine(line)
		if issue != "" {
			issues = append(issues, ParseIssue{Line: lineNo, Message: issue})
			continue
		}
		if seen[entity.URL] {
			issues = append(issues, ParseIssue{Line: lineNo, Message: "duplicate url " + entity.URL})
			continue
		}
		seen[entity.URL] = true
		entities = append(entities, entity)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, services.Wrap(services.ErrFilesystem, "catalog", "read video list", path, err)
	}
	if nonEmpty > 0 && len(entities) == 0 {
		return nil, issues, services.Wrap(services.ErrCatalogFormat, "catalog", "parse video list", "no parseable entries in "+path, nil)
	}
	return entities, issues, nil
}

func parseVideoLine(line string) (*Entity, string) {
	fields := strings.Split(line, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "" {
		return nil, "missing url field"
	}
	entity := &Entity{URL: fields[0]}

	switch len(fields) {
	case 1:
		entity.Title = textutil.UpperTitleFromSlug(lastPathSegment(entity.URL))
	case 2:
		entity.Title = fields[1]
	default:
		entity.Title = fields[1]
		last := fields[len(fields)-1]
		if hashPattern.MatchString(last) {
			entity.Title = strings.Join(fields[1:len(fields)-1], "|")
			entity.Hash = last
		} else {
			entity.Title = strings.Join(fields[1:], "|")
		}
	}
	if entity.Title == "" {
		entity.Title = textutil.UpperTitleFromSlug(lastPathSegment(entity.URL))
	}
	return entity, ""
}

// WriteVideoList persists entities via temp-then-rename, so an interrupted
// run never truncates an existing catalog file.
func WriteVideoList(path string, entities []*Entity) error {
	var sb strings.Builder
	sb.WriteString("# vidshelf video catalog: URL|TITLE[|HASH]\n")
	for _, entity := range entities {
		sb.WriteString(entity.URL)
		sb.WriteString("|")
		sb.WriteString(entity.Title)
		if entity.Hash != "" {
			sb.WriteString("|")
			sb.WriteString(entity.Hash)
		}
		sb.WriteString("\n")
	}
	if err := fileutil.WriteFileAtomic(path, []byte(sb.String()), 0o644); err != nil {
		return services.Wrap(services.ErrFilesystem, "catalog", "write video list", path, err)
	}
	return nil
}

// CategoryRef is one tag or model page discovered on the site.
type CategoryRef struct {
	URL  string
	Kind Kind
	Name string
}

// ReadCategoryList parses a list_tag.txt file. Lines are "URL" or
// "URL|kind"; when the kind annotation is absent it is inferred from the URL
// path segment, defaulting to tag.
func ReadCategoryList(path string) ([]CategoryRef, []ParseIssue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrFilesystem, "catalog", "open category list", path, err)
	}
	defer file.Close()

	var (
		refs   []CategoryRef
		issues []ParseIssue
		lineNo int
	)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "|")
		url := strings.TrimSpace(fields[0])
		if url == "" {
			issues = append(issues, ParseIssue{Line: lineNo, Message: "missing url field"})
			continue
		}
		if seen[url] {
			continue
		}
		seen[url] = true

		kind := ClassifyCategoryURL(url)
		if len(fields) > 1 {
			switch strings.ToLower(strings.TrimSpace(fields[1])) {
			case "tag":
				kind = KindTag
			case "model":
				kind = KindModel
			default:
				issues = append(issues, ParseIssue{Line: lineNo, Message: "unknown kind " + fields[1]})
				continue
			}
		}
		refs = append(refs, CategoryRef{
			URL:  url,
			Kind: kind,
			Name: textutil.NameFromSlug(lastPathSegment(url)),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, services.Wrap(services.ErrFilesystem, "catalog", "read category list", path, err)
	}
	return refs, issues, nil
}

// WriteCategoryList persists category page URLs with their kind annotation.
func WriteCategoryList(path string, refs []CategoryRef) error {
	var sb strings.Builder
	sb.WriteString("# vidshelf category pages: URL|kind\n")
	for _, ref := range refs {
		sb.WriteString(ref.URL)
		sb.WriteString("|")
		sb.WriteString(string(ref.Kind))
		sb.WriteString("\n")
	}
	if err := fileutil.WriteFileAtomic(path, []byte(sb.String()), 0o644); err != nil {
		return services.Wrap(services.ErrFilesystem, "catalog", "write category list", path, err)
	}
	return nil
}

// ClassifyCategoryURL infers a category kind from the URL path. Model pages
// live under a /models/ segment on the sites this tool targets; everything
// else is treated as a tag page.
func ClassifyCategoryURL(url string) Kind {
	lowered := strings.ToLower(url)
	if strings.Contains(lowered, "/model") {
		return KindModel
	}
	return KindTag
}
