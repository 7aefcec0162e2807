package linker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vidshelf/internal/catalog"
	"vidshelf/internal/config"
	"vidshelf/internal/inventory"
	"vidshelf/internal/ledger"
	"vidshelf/internal/match"
)

type fixture struct {
	cfg   *config.Config
	store *ledger.Store
	video inventory.LocalFile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.VideosDir = filepath.Join(dir, "videos")
	cfg.Paths.OrganizedDir = filepath.Join(dir, "organized")
	cfg.Paths.StateDir = filepath.Join(dir, "state")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.ThumbCacheDir = filepath.Join(dir, "thumbs")

	videoPath := filepath.Join(cfg.Paths.VideosDir, "batch one", "amazing video.mp4")
	if err := os.MkdirAll(filepath.Dir(videoPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(videoPath, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := ledger.Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{
		cfg:   &cfg,
		store: store,
		video: inventory.LocalFile{
			Path:            videoPath,
			NormalizedTitle: "amazing video",
			SizeBytes:       11,
			Extension:       ".mp4",
			SourceFolder:    "batch one",
		},
	}
}

func (f *fixture) resolution(entity *catalog.Entity) *match.Resolution {
	return &match.Resolution{Results: []match.Result{{
		Entity: entity,
		Status: match.StatusMatched,
		File:   &f.video,
		Score:  1.0,
	}}}
}

func taggedEntity() *catalog.Entity {
	return &catalog.Entity{
		URL:   "https://example.com/updates/amazing-video",
		Title: "Amazing Video",
		Associations: []catalog.Association{
			{Kind: catalog.KindTag, Name: "rope"},
			{Kind: catalog.KindModel, Name: "Jane Doe"},
		},
	}
}

func TestOrganizeCreatesLinksPerCategory(t *testing.T) {
	f := newFixture(t)
	organizer := New(f.cfg, f.store, "run-1", nil)

	report, err := organizer.Organize(context.Background(), f.resolution(taggedEntity()))
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	if report.Created != 3 {
		t.Fatalf("created = %d, want 3 (tag, model, source)", report.Created)
	}
	if report.Failed != 0 {
		t.Fatalf("failures: %v", report.Failures)
	}

	for _, folder := range []string{"tag rope", "model Jane Doe", "source batch one"} {
		link := filepath.Join(f.cfg.Paths.OrganizedDir, folder, "amazing video.mp4")
		info, err := os.Lstat(link)
		if err != nil {
			t.Fatalf("missing link in %q: %v", folder, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			t.Fatalf("link in %q is not a symlink", folder)
		}
		data, err := os.ReadFile(link)
		if err != nil {
			t.Fatalf("reading through link: %v", err)
		}
		if string(data) != "video bytes" {
			t.Fatalf("link content = %q", data)
		}
	}

	strategy, err := f.store.LinkStrategy(context.Background(),
		filepath.Join(f.cfg.Paths.OrganizedDir, "tag rope", "amazing video.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategySymlink {
		t.Fatalf("recorded strategy = %q, want symlink", strategy)
	}
}

func TestOrganizeUntaggedFolder(t *testing.T) {
	f := newFixture(t)
	organizer := New(f.cfg, f.store, "run-1", nil)

	entity := &catalog.Entity{URL: "https://example.com/updates/x", Title: "Amazing Video"}
	report, err := organizer.Organize(context.Background(), f.resolution(entity))
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 2 {
		t.Fatalf("created = %d, want 2 (untagged + source)", report.Created)
	}
	if _, err := os.Lstat(filepath.Join(f.cfg.Paths.OrganizedDir, "tag no tag", "amazing video.mp4")); err != nil {
		t.Fatalf("untagged link missing: %v", err)
	}
}

func TestOrganizeIdempotent(t *testing.T) {
	f := newFixture(t)
	organizer := New(f.cfg, f.store, "run-1", nil)

	if _, err := organizer.Organize(context.Background(), f.resolution(taggedEntity())); err != nil {
		t.Fatal(err)
	}

	report, err := organizer.Organize(context.Background(), f.resolution(taggedEntity()))
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 0 {
		t.Fatalf("re-run created = %d, want 0", report.Created)
	}
	if report.Skipped != 3 {
		t.Fatalf("re-run skipped = %d, want 3", report.Skipped)
	}
}

func TestOrganizeConflictQualifiesName(t *testing.T) {
	f := newFixture(t)
	organizer := New(f.cfg, f.store, "run-1", nil)

	// A same-named file from another source already sits in the folder.
	dir := filepath.Join(f.cfg.Paths.OrganizedDir, "tag rope")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "amazing video.mp4"), []byte("different content entirely"), 0o644); err != nil {
		t.Fatal(err)
	}

	entity := &catalog.Entity{
		URL: "https://example.com/updates/x", Title: "Amazing Video",
		Associations: []catalog.Association{{Kind: catalog.KindTag, Name: "rope"}},
	}
	report, err := organizer.Organize(context.Background(), f.resolution(entity))
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 0 {
		t.Fatalf("failures: %v", report.Failures)
	}

	qualified := filepath.Join(dir, "amazing video (batch one).mp4")
	if _, err := os.Lstat(qualified); err != nil {
		t.Fatalf("qualified link missing: %v", err)
	}
}

func TestOrganizeConflictOnSameSizeDifferentContent(t *testing.T) {
	f := newFixture(t)
	organizer := New(f.cfg, f.store, "run-1", nil)

	// An unrelated file of the exact same size occupies the link name.
	dir := filepath.Join(f.cfg.Paths.OrganizedDir, "tag rope")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	occupied := filepath.Join(dir, "amazing video.mp4")
	if err := os.WriteFile(occupied, []byte("other bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	entity := &catalog.Entity{
		URL: "https://example.com/updates/x", Title: "Amazing Video",
		Associations: []catalog.Association{{Kind: catalog.KindTag, Name: "rope"}},
	}
	report, err := organizer.Organize(context.Background(), f.resolution(entity))
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 0 {
		t.Fatalf("failures: %v", report.Failures)
	}

	qualified := filepath.Join(dir, "amazing video (batch one).mp4")
	data, err := os.ReadFile(qualified)
	if err != nil {
		t.Fatalf("qualified link missing: %v", err)
	}
	if string(data) != "video bytes" {
		t.Fatalf("qualified link content = %q", data)
	}
	if data, err := os.ReadFile(occupied); err != nil || string(data) != "other bytes" {
		t.Fatalf("occupied file changed: %q, %v", data, err)
	}
}

func TestOrganizeAllStrategiesFail(t *testing.T) {
	f := newFixture(t)
	organizer := New(f.cfg, f.store, "run-1", nil)
	organizer.chain = []Strategy{{
		Name: "broken",
		Create: func(string, string) (Outcome, error) {
			return Failed, errors.New("nope")
		},
	}}

	report, err := organizer.Organize(context.Background(), f.resolution(taggedEntity()))
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 3 {
		t.Fatalf("failed = %d, want 3", report.Failed)
	}
	if len(report.Failures) != 3 {
		t.Fatalf("failures = %v", report.Failures)
	}
}

func TestOrganizeFallbackCounted(t *testing.T) {
	f := newFixture(t)
	organizer := New(f.cfg, f.store, "run-1", nil)
	organizer.chain = []Strategy{
		{Name: "broken", Create: func(string, string) (Outcome, error) {
			return UnsupportedOnFilesystem, errors.New("unsupported")
		}},
		{Name: StrategyHardlink, Create: createHardlink},
	}

	entity := &catalog.Entity{
		URL: "https://example.com/updates/x", Title: "Amazing Video",
		Associations: []catalog.Association{{Kind: catalog.KindTag, Name: "rope"}},
	}
	report, err := organizer.Organize(context.Background(), f.resolution(entity))
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 2 || report.Fallback != 2 {
		t.Fatalf("created = %d, fallback = %d, want 2 and 2", report.Created, report.Fallback)
	}

	link := filepath.Join(f.cfg.Paths.OrganizedDir, "tag rope", "amazing video.mp4")
	info, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Fatal("expected a hard link, found a symlink")
	}
	data, err := os.ReadFile(link)
	if err != nil || string(data) != "video bytes" {
		t.Fatalf("hard link content = %q, err %v", data, err)
	}
}

func TestRepairUpgradesDegradedLinks(t *testing.T) {
	f := newFixture(t)
	organizer := New(f.cfg, f.store, "run-1", nil)
	organizer.chain = []Strategy{{Name: StrategyCopy, Create: createCopy}}

	entity := &catalog.Entity{
		URL: "https://example.com/updates/x", Title: "Amazing Video",
		Associations: []catalog.Association{{Kind: catalog.KindTag, Name: "rope"}},
	}
	if _, err := organizer.Organize(context.Background(), f.resolution(entity)); err != nil {
		t.Fatal(err)
	}

	link := filepath.Join(f.cfg.Paths.OrganizedDir, "tag rope", "amazing video.mp4")
	if info, err := os.Lstat(link); err != nil || info.Mode()&os.ModeSymlink != 0 {
		t.Fatalf("precondition: expected a plain copy, err %v", err)
	}

	// Repair runs with the normal chain available.
	repairer := New(f.cfg, f.store, "run-2", nil)
	report, err := repairer.Repair(context.Background())
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if report.Upgraded != 2 {
		t.Fatalf("upgraded = %d, want 2 (tag + source copies)", report.Upgraded)
	}

	info, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("link not upgraded to symlink")
	}
	strategy, err := f.store.LinkStrategy(context.Background(), link)
	if err != nil {
		t.Fatal(err)
	}
	if strategy != StrategySymlink {
		t.Fatalf("recorded strategy = %q, want symlink", strategy)
	}
}

func TestRepairDropsMissingLinks(t *testing.T) {
	f := newFixture(t)
	record := ledger.LinkRecord{
		EntityURL:      "https://example.com/updates/x",
		FilePath:       f.video.Path,
		CategoryFolder: "tag rope",
		LinkPath:       filepath.Join(f.cfg.Paths.OrganizedDir, "tag rope", "gone.mp4"),
		Strategy:       StrategyCopy,
	}
	if err := f.store.RecordLink(context.Background(), record); err != nil {
		t.Fatal(err)
	}

	organizer := New(f.cfg, f.store, "run-1", nil)
	report, err := organizer.Repair(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Removed != 1 {
		t.Fatalf("removed = %d, want 1", report.Removed)
	}
}
