package runner

import (
	"context"
	"path/filepath"

	"vidshelf/internal/catalog"
	"vidshelf/internal/inventory"
	"vidshelf/internal/ledger"
	"vidshelf/internal/linker"
	"vidshelf/internal/logging"
	"vidshelf/internal/match"
	"vidshelf/internal/nfo"
	"vidshelf/internal/services"
)

// ScanReport summarizes one local inventory scan.
type ScanReport struct {
	Files   int            `json:"files"`
	Sources map[string]int `json:"sources"`
}

// AmbiguousEntry is one match the resolver declined to make automatically.
type AmbiguousEntry struct {
	Title     string  `json:"title"`
	Candidate string  `json:"candidate"`
	Score     float64 `json:"score"`
	RunnerUp  float64 `json:"runner_up"`
}

// MatchReport summarizes one resolve pass without touching the organized
// tree.
type MatchReport struct {
	Videos      int              `json:"videos"`
	Files       int              `json:"files"`
	Matched     int              `json:"matched"`
	Unmatched   int              `json:"unmatched"`
	Ambiguous   int              `json:"ambiguous"`
	Orphans     []string         `json:"orphans,omitempty"`
	AmbiguousAt []AmbiguousEntry `json:"ambiguous_entries,omitempty"`
	ListIssues  []string         `json:"list_issues,omitempty"`
}

// OrganizeReport extends a match report with link and metadata outcomes.
type OrganizeReport struct {
	RunID string `json:"run_id"`
	MatchReport
	LinksCreated  int              `json:"links_created"`
	LinksSkipped  int              `json:"links_skipped"`
	LinksFallback int              `json:"links_fallback"`
	LinksFailed   int              `json:"links_failed"`
	Failures      []linker.Failure `json:"failures,omitempty"`
	Folders       int              `json:"folders"`
}

// Scan walks the local video folder and reports what it holds.
func (r *Runner) Scan(ctx context.Context) (*ScanReport, error) {
	inv, err := r.scanInventory()
	if err != nil {
		return nil, err
	}
	report := &ScanReport{Files: inv.Len(), Sources: make(map[string]int)}
	for _, file := range inv.Files() {
		report.Sources[file.SourceFolder]++
	}
	return report, nil
}

// Match loads the persisted catalog, scans the local folder, and resolves
// which file belongs to which video. Nothing on disk changes.
func (r *Runner) Match(ctx context.Context) (*MatchReport, error) {
	cat, issues, err := r.loadCatalog()
	if err != nil {
		return nil, err
	}
	inv, err := r.scanInventory()
	if err != nil {
		return nil, err
	}
	resolution := match.NewResolver(r.cfg, r.logger).Resolve(cat, inv)
	return buildMatchReport(cat, inv, resolution, issues), nil
}

// Organize runs the full local half of the pipeline: resolve matches, build
// the organized link tree, and emit metadata, recording the run in the
// ledger.
func (r *Runner) Organize(ctx context.Context) (*OrganizeReport, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return r.organize(ctx)
}

// organize is the lock-free body, shared with Run.
func (r *Runner) organize(ctx context.Context) (*OrganizeReport, error) {
	cat, issues, err := r.loadCatalog()
	if err != nil {
		return nil, err
	}
	inv, err := r.scanInventory()
	if err != nil {
		return nil, err
	}
	if err := linker.VerifyRoot(r.cfg.Paths.OrganizedDir); err != nil {
		return nil, err
	}

	resolution := match.NewResolver(r.cfg, r.logger).Resolve(cat, inv)

	if r.store != nil {
		if err := r.store.StartRun(ctx, r.runID); err != nil {
			r.logger.Warn("failed to record run start", logging.Error(err))
		}
	}

	organizer := linker.New(r.cfg, r.store, r.runID, r.logger)
	linkReport, err := organizer.Organize(ctx, resolution)
	if err != nil {
		return nil, err
	}

	r.emitMetadata(ctx, cat, resolution, organizer, linkReport)

	report := &OrganizeReport{
		RunID:         r.runID,
		MatchReport:   *buildMatchReport(cat, inv, resolution, issues),
		LinksCreated:  linkReport.Created,
		LinksSkipped:  linkReport.Skipped,
		LinksFallback: linkReport.Fallback,
		LinksFailed:   linkReport.Failed,
		Failures:      linkReport.Failures,
		Folders:       len(linkReport.Folders),
	}

	if r.store != nil {
		summary := ledger.RunSummary{
			ID:            r.runID,
			Matched:       report.Matched,
			Unmatched:     report.Unmatched,
			Ambiguous:     report.Ambiguous,
			Orphans:       len(report.Orphans),
			LinksCreated:  report.LinksCreated,
			LinksSkipped:  report.LinksSkipped,
			LinksFallback: report.LinksFallback,
			LinksFailed:   report.LinksFailed,
		}
		if err := r.store.FinishRun(ctx, summary); err != nil {
			r.logger.Warn("failed to record run summary", logging.Error(err))
		}
	}

	r.logger.Info("organize complete",
		logging.Int("matched", report.Matched),
		logging.Int("unmatched", report.Unmatched),
		logging.Int("ambiguous", report.Ambiguous),
		logging.Int("links_created", report.LinksCreated),
		logging.Int("links_failed", report.LinksFailed))
	return report, nil
}

// Run executes crawl and organize back to back under a single run lock.
func (r *Runner) Run(ctx context.Context) (*CrawlReport, *OrganizeReport, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, nil, err
	}
	defer release()

	crawlReport, err := r.crawl(ctx)
	if err != nil {
		return nil, nil, err
	}
	organizeReport, err := r.organize(ctx)
	if err != nil {
		return crawlReport, nil, err
	}
	return crawlReport, organizeReport, nil
}

// Repair upgrades hardlink and copy links in the organized tree to symlinks
// where the filesystem now allows them.
func (r *Runner) Repair(ctx context.Context) (*linker.RepairReport, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	organizer := linker.New(r.cfg, r.store, r.runID, r.logger)
	return organizer.Repair(ctx)
}

// History returns recent run summaries and any unresolved coverage gaps.
func (r *Runner) History(ctx context.Context, limit int) ([]ledger.RunSummary, []ledger.GapRecord, error) {
	if r.store == nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "runner", "history",
			"run history requires the state database", nil)
	}
	runs, err := r.store.RecentRuns(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	gaps, err := r.store.OpenGaps(ctx)
	if err != nil {
		return nil, nil, err
	}
	return runs, gaps, nil
}

// loadCatalog reads the persisted list files back into a catalog. Parse
// issues are reported, not fatal; a missing association file just leaves
// entities untagged.
func (r *Runner) loadCatalog() (*catalog.Catalog, []string, error) {
	entities, issues, err := catalog.ReadVideoList(r.videoListPath())
	if err != nil {
		return nil, nil, err
	}

	cat := catalog.New()
	for _, entity := range entities {
		cat.Upsert(entity)
	}

	assocIssues, err := catalog.ApplyAssociations(r.associationListPath(), cat)
	if err != nil {
		return nil, nil, err
	}

	var all []string
	for _, issue := range issues {
		all = append(all, issue.String())
	}
	for _, issue := range assocIssues {
		all = append(all, issue.String())
	}
	return cat, all, nil
}

func (r *Runner) scanInventory() (*inventory.Inventory, error) {
	scanner := inventory.NewScanner(r.cfg.Matching.VideoExtensions, r.logger)
	return scanner.Scan(r.cfg.Paths.VideosDir)
}

// emitMetadata writes category descriptors and artwork for every category
// folder the organizer touched, plus a per-link descriptor for each matched
// video. Metadata failures are logged and never abort the run.
func (r *Runner) emitMetadata(ctx context.Context, cat *catalog.Catalog, resolution *match.Resolution, organizer *linker.Organizer, linkReport *linker.Report) {
	if !r.cfg.Metadata.EmitNFO && !r.cfg.Metadata.DownloadThumbnails {
		return
	}
	emitter := nfo.NewEmitter(r.cfg, r.client, r.logger)

	byFolder := make(map[string]catalog.Association)
	thumbs := make(map[string]string)
	for _, assoc := range cat.Categories() {
		byFolder[assoc.FolderName()] = assoc
	}
	for _, entity := range cat.Entities() {
		if entity.ThumbURL == "" {
			continue
		}
		for _, assoc := range entity.Associations {
			key := assoc.FolderName()
			if _, ok := thumbs[key]; !ok {
				thumbs[key] = entity.ThumbURL
			}
		}
	}

	for _, folder := range linkReport.Folders {
		assoc, ok := byFolder[folder]
		if !ok {
			continue
		}
		folderPath := filepath.Join(r.cfg.Paths.OrganizedDir, folder)
		if err := emitter.EmitCategory(ctx, folderPath, assoc, thumbs[folder]); err != nil {
			r.logger.Warn("category metadata failed",
				logging.String(logging.FieldCategory, assoc.Name), logging.Error(err))
		}
	}

	for _, result := range resolution.Results {
		if result.Status != match.StatusMatched {
			continue
		}
		for _, folder := range organizer.FoldersFor(result.Entity, result.File) {
			folderPath := filepath.Join(r.cfg.Paths.OrganizedDir, folder)
			if err := emitter.EmitVideo(folderPath, result.File.FileName(), result.Entity); err != nil {
				r.logger.Warn("video metadata failed",
					logging.String("title", result.Entity.Title), logging.Error(err))
			}
		}
	}
}

func buildMatchReport(cat *catalog.Catalog, inv *inventory.Inventory, resolution *match.Resolution, issues []string) *MatchReport {
	matched, unmatched, ambiguous := resolution.Counts()
	report := &MatchReport{
		Videos:     cat.Len(),
		Files:      inv.Len(),
		Matched:    matched,
		Unmatched:  unmatched,
		Ambiguous:  ambiguous,
		ListIssues: issues,
	}
	for _, orphan := range resolution.Orphans {
		report.Orphans = append(report.Orphans, orphan.FileName())
	}
	for _, result := range resolution.Results {
		if result.Status != match.StatusAmbiguous {
			continue
		}
		report.AmbiguousAt = append(report.AmbiguousAt, AmbiguousEntry{
			Title:     result.Entity.StoredTitle(),
			Candidate: result.Candidate,
			Score:     result.Score,
			RunnerUp:  result.RunnerUp,
		})
	}
	return report
}
