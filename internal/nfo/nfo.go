// Package nfo writes per-category descriptor files and thumbnails in the
// layout media servers expect. Artwork fetches are cached on disk so each
// category's image is downloaded at most once across runs.
package nfo

import (
	"context"
	"encoding/xml"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"vidshelf/internal/catalog"
	"vidshelf/internal/config"
	"vidshelf/internal/fetch"
	"vidshelf/internal/fileutil"
	"vidshelf/internal/logging"
	"vidshelf/internal/services"
	"vidshelf/internal/textutil"
)

type movieDoc struct {
	XMLName xml.Name `xml:"movie"`
	Title   string   `xml:"title"`
	Plot    string   `xml:"plot,omitempty"`
	Tags    []string `xml:"tag,omitempty"`
	Genres  []string `xml:"genre,omitempty"`
	Actors  []actor  `xml:"actor,omitempty"`
}

type actor struct {
	Name string `xml:"name"`
	Role string `xml:"role,omitempty"`
}

// Emitter writes category metadata. One Emitter serves a whole run.
type Emitter struct {
	downloader fetch.Downloader
	cacheDir   string
	emitNFO    bool
	downloadOK bool
	logger     *slog.Logger
}

// NewEmitter builds an Emitter from metadata configuration. downloader may
// be nil when thumbnail downloads are disabled.
func NewEmitter(cfg *config.Config, downloader fetch.Downloader, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Emitter{
		downloader: downloader,
		cacheDir:   cfg.Paths.ThumbCacheDir,
		emitNFO:    cfg.Metadata.EmitNFO,
		downloadOK: cfg.Metadata.DownloadThumbnails && downloader != nil,
		logger:     logger.With(logging.String(logging.FieldComponent, "nfo")),
	}
}

// EmitCategory writes the descriptor and thumbnail for one category folder.
// A failed artwork fetch leaves the folder usable and is not an error; only
// descriptor write failures propagate.
func (e *Emitter) EmitCategory(ctx context.Context, folderPath string, assoc catalog.Association, thumbURL string) error {
	if e.emitNFO {
		if err := e.writeDescriptor(folderPath, assoc); err != nil {
			return err
		}
	}
	if e.downloadOK && thumbURL != "" {
		e.placeThumbnail(ctx, folderPath, assoc, thumbURL)
	}
	return nil
}

func (e *Emitter) writeDescriptor(folderPath string, assoc catalog.Association) error {
	doc := movieDoc{Title: assoc.Name}
	switch assoc.Kind {
	case catalog.KindTag:
		doc.Tags = []string{assoc.Name}
		doc.Genres = []string{assoc.Name}
		doc.Plot = "Videos tagged " + assoc.Name + "."
	case catalog.KindModel:
		doc.Actors = []actor{{Name: assoc.Name}}
		doc.Plot = "Videos featuring " + assoc.Name + "."
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "nfo", "marshal descriptor", assoc.Name, err)
	}
	content := xml.Header + string(body) + "\n"

	path := filepath.Join(folderPath, "folder.nfo")
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return services.Wrap(services.ErrFilesystem, "nfo", "write descriptor", path, err)
	}
	return nil
}

// placeThumbnail copies the category's image from the on-disk cache into
// the folder, downloading into the cache first when it is missing.
func (e *Emitter) placeThumbnail(ctx context.Context, folderPath string, assoc catalog.Association, thumbURL string) {
	dest := filepath.Join(folderPath, "folder"+thumbExtension(thumbURL))
	if _, err := os.Stat(dest); err == nil {
		return
	}

	cached := filepath.Join(e.cacheDir, cacheKey(assoc)+thumbExtension(thumbURL))
	if _, err := os.Stat(cached); err != nil {
		if err := os.MkdirAll(e.cacheDir, 0o755); err != nil {
			e.logger.Warn("thumbnail cache unavailable", logging.Error(err))
			return
		}
		if err := e.downloader.Download(ctx, thumbURL, cached); err != nil {
			e.logger.Warn("thumbnail fetch failed",
				logging.String(logging.FieldURL, thumbURL),
				logging.String(logging.FieldCategory, assoc.Name),
				logging.Error(err))
			return
		}
	}

	if err := fileutil.CopyFile(cached, dest); err != nil {
		e.logger.Warn("thumbnail copy failed",
			logging.String("file", dest),
			logging.Error(err))
	}
}

// EmitVideo writes a descriptor next to one organized link, carrying the
// entity's title, tags, and models.
func (e *Emitter) EmitVideo(folderPath, linkName string, entity *catalog.Entity) error {
	if !e.emitNFO {
		return nil
	}

	doc := movieDoc{Title: entity.Title}
	for _, assoc := range entity.Associations {
		switch assoc.Kind {
		case catalog.KindTag:
			doc.Tags = append(doc.Tags, assoc.Name)
			doc.Genres = append(doc.Genres, assoc.Name)
		case catalog.KindModel:
			doc.Actors = append(doc.Actors, actor{Name: assoc.Name})
		}
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "nfo", "marshal video descriptor", entity.Title, err)
	}

	stem := strings.TrimSuffix(linkName, filepath.Ext(linkName))
	path := filepath.Join(folderPath, stem+".nfo")
	if err := fileutil.WriteFileAtomic(path, []byte(xml.Header+string(body)+"\n"), 0o644); err != nil {
		return services.Wrap(services.ErrFilesystem, "nfo", "write video descriptor", path, err)
	}
	return nil
}

func cacheKey(assoc catalog.Association) string {
	return string(assoc.Kind) + "-" + strings.ReplaceAll(textutil.SanitizeCategoryName(strings.ToLower(assoc.Name)), " ", "-")
}

func thumbExtension(thumbURL string) string {
	parsed, err := url.Parse(thumbURL)
	if err != nil {
		return ".jpg"
	}
	switch ext := strings.ToLower(filepath.Ext(parsed.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	default:
		return ".jpg"
	}
}
