package catalog

import (
	"bufio"
	"os"
	"strings"

	"vidshelf/internal/fileutil"
	"vidshelf/internal/services"
)

// AssociationListName is the state file carrying entity-category
// memberships between the crawl and organize phases.
const AssociationListName = "list_assoc.txt"

// WriteAssociations persists every entity's category memberships as
// "URL|kind|name" lines.
func WriteAssociations(path string, entities []*Entity) error {
	var sb strings.Builder
	sb.WriteString("# vidshelf associations: URL|kind|name\n")
	for _, entity := range entities {
		for _, assoc := range entity.Associations {
			sb.WriteString(entity.URL)
			sb.WriteString("|")
			sb.WriteString(string(assoc.Kind))
			sb.WriteString("|")
			sb.WriteString(assoc.Name)
			sb.WriteString("\n")
		}
	}
	if err := fileutil.WriteFileAtomic(path, []byte(sb.String()), 0o644); err != nil {
		return services.Wrap(services.ErrFilesystem, "catalog", "write associations", path, err)
	}
	return nil
}

// ApplyAssociations reads an association file and attaches memberships to
// the matching catalog entities. Unknown URLs and malformed lines are
// skipped; a missing file is not an error, it just leaves every entity
// untagged.
func ApplyAssociations(path string, cat *Catalog) ([]ParseIssue, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrFilesystem, "catalog", "open associations", path, err)
	}
	defer file.Close()

	var issues []ParseIssue
	lineNo := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "|", 3)
		if len(fields) != 3 {
			issues = append(issues, ParseIssue{Line: lineNo, Message: "want URL|kind|name"})
			continue
		}
		kind := Kind(strings.ToLower(strings.TrimSpace(fields[1])))
		if kind != KindTag && kind != KindModel {
			issues = append(issues, ParseIssue{Line: lineNo, Message: "unknown kind " + fields[1]})
			continue
		}
		entity, ok := cat.ByURL(strings.TrimSpace(fields[0]))
		if !ok {
			continue
		}
		entity.AddAssociation(Association{Kind: kind, Name: strings.TrimSpace(fields[2])})
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "catalog", "read associations", path, err)
	}
	return issues, nil
}
