// Package inventory indexes the local video folder by normalized title so
// catalog entities can be matched against files on disk.
package inventory

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vidshelf/internal/logging"
	"vidshelf/internal/services"
	"vidshelf/internal/textutil"
)

// LocalFile is one video file found during a scan. Files are link targets,
// never link sources.
type LocalFile struct {
	Path            string
	NormalizedTitle string
	SizeBytes       int64
	Extension       string
	// SourceFolder is the name of the immediate parent directory relative
	// to the scan root, or the root's own name for top-level files. It
	// names the "source <folder>" passthrough category.
	SourceFolder string
}

// FileName returns the base name of the file.
func (f LocalFile) FileName() string {
	return filepath.Base(f.Path)
}

// Inventory maps normalized titles to the files carrying them. Two files
// may normalize to the same title; both are retained under that key.
type Inventory struct {
	byTitle map[string][]LocalFile
	files   []LocalFile
}

// Len reports the total number of indexed files.
func (inv *Inventory) Len() int {
	return len(inv.files)
}

// Files returns every indexed file in lexical path order.
func (inv *Inventory) Files() []LocalFile {
	return inv.files
}

// Lookup returns the files whose name normalizes to title, in lexical path
// order.
func (inv *Inventory) Lookup(normalizedTitle string) []LocalFile {
	return inv.byTitle[normalizedTitle]
}

// Scanner walks the local video folder.
type Scanner struct {
	extensions map[string]bool
	logger     *slog.Logger
}

// NewScanner builds a Scanner accepting the given file extensions (lowercase,
// dot-prefixed).
func NewScanner(extensions []string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	accept := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		accept[strings.ToLower(ext)] = true
	}
	return &Scanner{
		extensions: accept,
		logger:     logger.With(logging.String(logging.FieldComponent, "inventory")),
	}
}

// Scan walks root one level deep: files directly under root plus files in
// its immediate subdirectories. The organized output tree often lives under
// a sibling path, so symlinks are not followed. An unreadable root is fatal;
// an unreadable subdirectory is skipped with a warning.
func (s *Scanner) Scan(root string) (*Inventory, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "inventory", "read folder", root, err)
	}

	inv := &Inventory{byTitle: make(map[string][]LocalFile)}
	rootName := filepath.Base(root)

	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		if entry.IsDir() {
			subdir := filepath.Join(root, entry.Name())
			subEntries, err := os.ReadDir(subdir)
			if err != nil {
				s.logger.Warn("skipping unreadable subdirectory",
					logging.String("dir", subdir),
					logging.Error(err))
				continue
			}
			for _, sub := range subEntries {
				if sub.IsDir() || sub.Type()&fs.ModeSymlink != 0 {
					continue
				}
				s.index(inv, filepath.Join(subdir, sub.Name()), entry.Name())
			}
			continue
		}
		s.index(inv, filepath.Join(root, entry.Name()), rootName)
	}

	s.finalize(inv)
	s.logger.Debug("inventory scanned",
		logging.String("dir", root),
		logging.Int("files", inv.Len()))
	return inv, nil
}

func (s *Scanner) index(inv *Inventory, path, sourceFolder string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !s.extensions[ext] {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("skipping unreadable file",
			logging.String("file", path),
			logging.Error(err))
		return
	}

	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	inv.files = append(inv.files, LocalFile{
		Path:            path,
		NormalizedTitle: textutil.NormalizeTitle(stem),
		SizeBytes:       info.Size(),
		Extension:       ext,
		SourceFolder:    sourceFolder,
	})
}

// finalize sorts files by path and rebuilds the title index, so collision
// lookups and tie-breaks see lexical path order.
func (s *Scanner) finalize(inv *Inventory) {
	sort.Slice(inv.files, func(i, j int) bool {
		return inv.files[i].Path < inv.files[j].Path
	})
	for _, file := range inv.files {
		inv.byTitle[file.NormalizedTitle] = append(inv.byTitle[file.NormalizedTitle], file)
	}
}
