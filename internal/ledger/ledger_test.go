package ledger

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLinkRecordRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := LinkRecord{
		EntityURL:      "https://example.com/updates/a",
		FilePath:       "/videos/a.mp4",
		CategoryFolder: "tag rope",
		LinkPath:       "/organized/tag rope/a.mp4",
		Strategy:       "symlink",
		RunID:          "run-1",
	}
	if err := store.RecordLink(ctx, record); err != nil {
		t.Fatalf("record: %v", err)
	}

	strategy, err := store.LinkStrategy(ctx, record.LinkPath)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if strategy != "symlink" {
		t.Fatalf("strategy = %q, want symlink", strategy)
	}

	strategy, err = store.LinkStrategy(ctx, "/organized/nope")
	if err != nil {
		t.Fatalf("lookup missing: %v", err)
	}
	if strategy != "" {
		t.Fatalf("missing link strategy = %q, want empty", strategy)
	}
}

func TestRecordLinkUpsertsStrategy(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := LinkRecord{
		EntityURL:      "https://example.com/updates/a",
		FilePath:       "/videos/a.mp4",
		CategoryFolder: "tag rope",
		LinkPath:       "/organized/tag rope/a.mp4",
		Strategy:       "copy",
	}
	if err := store.RecordLink(ctx, record); err != nil {
		t.Fatal(err)
	}
	record.Strategy = "symlink"
	if err := store.RecordLink(ctx, record); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	strategy, err := store.LinkStrategy(ctx, record.LinkPath)
	if err != nil {
		t.Fatal(err)
	}
	if strategy != "symlink" {
		t.Fatalf("strategy after repair = %q, want symlink", strategy)
	}
}

func TestLinksByStrategy(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, strategy := range []string{"symlink", "hardlink", "copy"} {
		record := LinkRecord{
			EntityURL:      "https://example.com/updates/a",
			FilePath:       "/videos/a.mp4",
			CategoryFolder: "tag rope",
			LinkPath:       filepath.Join("/organized/tag rope", string(rune('a'+i))+".mp4"),
			Strategy:       strategy,
		}
		if err := store.RecordLink(ctx, record); err != nil {
			t.Fatal(err)
		}
	}

	degraded, err := store.LinksByStrategy(ctx, "hardlink", "copy")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(degraded) != 2 {
		t.Fatalf("degraded links = %d, want 2", len(degraded))
	}

	all, err := store.AllLinks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all links = %d, want 3", len(all))
	}
}

func TestGapLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	gap := GapRecord{
		RootURL: "https://example.com/tags/rope",
		Page:    3,
		URL:     "https://example.com/tags/rope?page=3",
		Reason:  "timeout",
		RunID:   "run-1",
	}
	if err := store.RecordGap(ctx, gap); err != nil {
		t.Fatalf("record gap: %v", err)
	}

	open, err := store.OpenGaps(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].Page != 3 {
		t.Fatalf("open gaps = %v", open)
	}

	if err := store.ResolveGapsForRoot(ctx, gap.RootURL); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	open, err = store.OpenGaps(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Fatalf("gaps after resolve = %v, want none", open)
	}
}

func TestRunSummaryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.StartRun(ctx, "run-1"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	summary := RunSummary{
		ID: "run-1", Matched: 10, Unmatched: 2, Ambiguous: 1, Orphans: 3,
		LinksCreated: 25, LinksSkipped: 5, LinksFallback: 1,
	}
	if err := store.FinishRun(ctx, summary); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.Matched != 10 || got.LinksCreated != 25 || got.LinksFallback != 1 {
		t.Fatalf("summary = %+v", got)
	}
	if got.FinishedAt.IsZero() {
		t.Fatal("finished_at not recorded")
	}
}

func TestSchemaReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = reopened.Close()
}
