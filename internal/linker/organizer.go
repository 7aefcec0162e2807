// Package linker realizes resolved matches as filesystem links in the
// organized tree, falling back through link strategies so the tree can be
// built on filesystems that reject symlinks or hard links.
package linker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vidshelf/internal/catalog"
	"vidshelf/internal/config"
	"vidshelf/internal/fileutil"
	"vidshelf/internal/inventory"
	"vidshelf/internal/ledger"
	"vidshelf/internal/logging"
	"vidshelf/internal/match"
	"vidshelf/internal/services"
	"vidshelf/internal/textutil"
)

// Failure describes one link that no strategy could create.
type Failure struct {
	LinkPath string
	Reason   string
}

// Report tallies one organize pass. Fallback counts links that needed any
// strategy after the first; copies are included and logged prominently.
type Report struct {
	Created  int
	Skipped  int
	Fallback int
	Failed   int
	Failures []Failure
	// Folders lists every category folder touched, in first-touch order,
	// for the metadata emitter.
	Folders []string
}

// Organizer creates links sequentially. Link creation is never concurrent:
// the exists-then-create sequence on a target path must not race with
// itself.
type Organizer struct {
	root     string
	untagged string
	chain    []Strategy
	store    *ledger.Store
	runID    string
	logger   *slog.Logger
}

// New builds an Organizer. store may be nil, which disables strategy
// recording (and with it the repair pass).
func New(cfg *config.Config, store *ledger.Store, runID string, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{
		root:     cfg.Paths.OrganizedDir,
		untagged: cfg.Linking.UntaggedFolder,
		chain:    strategies(cfg.Linking.AllowCopyFallback),
		store:    store,
		runID:    runID,
		logger:   logger.With(logging.String(logging.FieldComponent, "linker")),
	}
}

// Organize ensures a link exists for every matched result in each of its
// category folders. Existing links that already resolve to the right file
// are left untouched, so a re-run on an unchanged tree writes nothing.
func (o *Organizer) Organize(ctx context.Context, resolution *match.Resolution) (*Report, error) {
	report := &Report{}
	seenFolders := make(map[string]bool)

	for _, result := range resolution.Results {
		if result.Status != match.StatusMatched {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		for _, folder := range o.FoldersFor(result.Entity, result.File) {
			if !seenFolders[folder] {
				seenFolders[folder] = true
				report.Folders = append(report.Folders, folder)
			}
			o.ensureLink(ctx, report, folder, result.Entity, result.File)
		}
	}

	o.logger.Info("organize pass complete",
		logging.Int("links_created", report.Created),
		logging.Int("links_skipped", report.Skipped),
		logging.Int("links_fallback", report.Fallback),
		logging.Int("links_failed", report.Failed))
	return report, nil
}

// FoldersFor lists the category folders one matched video belongs in: one
// per tag and model association, the untagged folder when there are none,
// and always the source passthrough folder.
func (o *Organizer) FoldersFor(entity *catalog.Entity, file *inventory.LocalFile) []string {
	var folders []string
	for _, assoc := range entity.Associations {
		folders = append(folders, assoc.FolderName())
	}
	if len(folders) == 0 {
		folders = append(folders, o.untagged)
	}
	folders = append(folders, "source "+textutil.SanitizeCategoryName(file.SourceFolder))
	return folders
}

func (o *Organizer) ensureLink(ctx context.Context, report *Report, folder string, entity *catalog.Entity, file *inventory.LocalFile) {
	dir := filepath.Join(o.root, folder)
	linkPath := filepath.Join(dir, file.FileName())

	if existsAt(linkPath) {
		if pointsToSameFile(linkPath, file.Path) {
			o.recordExisting(ctx, folder, linkPath, entity, file)
			report.Skipped++
			return
		}
		// Another source dropped a same-named file here; qualify ours
		// with its source folder.
		linkPath = conflictName(linkPath, file.SourceFolder)
		if existsAt(linkPath) {
			if pointsToSameFile(linkPath, file.Path) {
				o.recordExisting(ctx, folder, linkPath, entity, file)
				report.Skipped++
				return
			}
			report.Failed++
			report.Failures = append(report.Failures, Failure{LinkPath: linkPath, Reason: "conflicting file already present"})
			return
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		report.Failed++
		report.Failures = append(report.Failures, Failure{LinkPath: linkPath, Reason: err.Error()})
		return
	}

	for i, strategy := range o.chain {
		outcome, err := strategy.Create(file.Path, linkPath)
		switch outcome {
		case Success:
			report.Created++
			if i > 0 {
				report.Fallback++
			}
			if strategy.Name == StrategyCopy {
				o.logger.Warn("link fell back to a full copy",
					logging.String("link", linkPath),
					logging.String("file", file.Path))
			} else {
				o.logger.Debug("link created",
					logging.String("link", linkPath),
					logging.String(logging.FieldStrategy, strategy.Name))
			}
			o.record(ctx, ledger.LinkRecord{
				EntityURL:      entity.URL,
				FilePath:       file.Path,
				CategoryFolder: folder,
				LinkPath:       linkPath,
				Strategy:       strategy.Name,
				RunID:          o.runID,
			})
			return
		case UnsupportedOnFilesystem:
			o.logger.Debug("link strategy unsupported here",
				logging.String(logging.FieldStrategy, strategy.Name),
				logging.String("link", linkPath))
		default:
			o.logger.Debug("link strategy failed",
				logging.String(logging.FieldStrategy, strategy.Name),
				logging.String("link", linkPath),
				logging.Error(err))
		}
	}

	report.Failed++
	report.Failures = append(report.Failures, Failure{
		LinkPath: linkPath,
		Reason:   "all link strategies failed",
	})
	o.logger.Error("no link strategy succeeded",
		logging.String("link", linkPath),
		logging.String("file", file.Path))
}

func (o *Organizer) record(ctx context.Context, record ledger.LinkRecord) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordLink(ctx, record); err != nil {
		o.logger.Warn("ledger record failed",
			logging.String("link", record.LinkPath),
			logging.Error(err))
	}
}

// recordExisting backfills a ledger row for a correct link found on disk
// with no record, so repair passes see links made by earlier versions.
func (o *Organizer) recordExisting(ctx context.Context, folder, linkPath string, entity *catalog.Entity, file *inventory.LocalFile) {
	if o.store == nil {
		return
	}
	known, err := o.store.LinkStrategy(ctx, linkPath)
	if err != nil || known != "" {
		return
	}
	o.record(ctx, ledger.LinkRecord{
		EntityURL:      entity.URL,
		FilePath:       file.Path,
		CategoryFolder: folder,
		LinkPath:       linkPath,
		Strategy:       detectStrategy(linkPath, file.Path),
		RunID:          o.runID,
	})
}

func existsAt(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// pointsToSameFile reports whether the entry at linkPath already refers to
// targetPath: a symlink resolving to it, a hard link sharing its inode, or
// a copy with identical content.
func pointsToSameFile(linkPath, targetPath string) bool {
	info, err := os.Lstat(linkPath)
	if err != nil {
		return false
	}

	if info.Mode()&os.ModeSymlink != 0 {
		dest, err := os.Readlink(linkPath)
		if err != nil {
			return false
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(filepath.Dir(linkPath), dest)
		}
		return filepath.Clean(dest) == filepath.Clean(targetPath)
	}

	targetInfo, err := os.Stat(targetPath)
	if err != nil {
		return false
	}
	if os.SameFile(info, targetInfo) {
		return true
	}
	if info.Size() != targetInfo.Size() {
		return false
	}
	same, err := fileutil.SameContent(linkPath, targetPath)
	return err == nil && same
}

func detectStrategy(linkPath, targetPath string) string {
	info, err := os.Lstat(linkPath)
	if err != nil {
		return StrategyCopy
	}
	if info.Mode()&os.ModeSymlink != 0 {
		if dest, err := os.Readlink(linkPath); err == nil && !filepath.IsAbs(dest) {
			return StrategyRelativeSymlink
		}
		return StrategySymlink
	}
	if targetInfo, err := os.Stat(targetPath); err == nil && os.SameFile(info, targetInfo) {
		return StrategyHardlink
	}
	return StrategyCopy
}

// conflictName qualifies a link name with its source folder:
// "video.mp4" becomes "video (batch one).mp4".
func conflictName(linkPath, sourceFolder string) string {
	dir := filepath.Dir(linkPath)
	name := filepath.Base(linkPath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	qualified := fmt.Sprintf("%s (%s)%s", stem, textutil.SanitizeCategoryName(sourceFolder), ext)
	return filepath.Join(dir, qualified)
}

// VerifyRoot checks the organized root is usable before a pass starts.
func VerifyRoot(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return services.Wrap(services.ErrFilesystem, "linker", "prepare organized root", root, err)
	}
	return nil
}
