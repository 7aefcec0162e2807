package match

import (
	"os"
	"path/filepath"
	"testing"

	"vidshelf/internal/catalog"
	"vidshelf/internal/config"
	"vidshelf/internal/inventory"
)

func buildInventory(t *testing.T, names ...string) *inventory.Inventory {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	scanner := inventory.NewScanner([]string{".mp4", ".mkv"}, nil)
	inv, err := scanner.Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	return inv
}

func buildCatalog(titles ...string) *catalog.Catalog {
	builder := catalog.NewBuilder()
	for i, title := range titles {
		builder.Add("https://example.com/updates/entry-"+string(rune('a'+i)), title)
	}
	return builder.Build()
}

func testResolver(opts ...Option) *Resolver {
	cfg := config.Default()
	return NewResolver(&cfg, nil, opts...)
}

func TestExactMatchCaseInsensitive(t *testing.T) {
	inv := buildInventory(t, "AMAZING VIDEO.mp4")
	cat := buildCatalog("Amazing Video")

	resolution := testResolver().Resolve(cat, inv)
	result := resolution.Results[0]
	if result.Status != StatusMatched {
		t.Fatalf("status = %q, want matched", result.Status)
	}
	if result.Score != 1.0 {
		t.Fatalf("score = %g, want 1.0", result.Score)
	}
	if len(resolution.Orphans) != 0 {
		t.Fatalf("orphans = %v, want none", resolution.Orphans)
	}
}

func TestFuzzyMatchAboveThreshold(t *testing.T) {
	inv := buildInventory(t, "AMAZING VIDEO PT2.mp4")
	cat := buildCatalog("Amazing Video Part 2", "Totally Unrelated Clip")

	resolution := testResolver().Resolve(cat, inv)

	first := resolution.Results[0]
	if first.Status != StatusMatched {
		t.Fatalf("status = %q (score %g), want matched", first.Status, first.Score)
	}
	if first.Score < 0.80 || first.Score >= 1.0 {
		t.Fatalf("score = %g, want in [0.80, 1.0)", first.Score)
	}

	second := resolution.Results[1]
	if second.Status != StatusUnmatched {
		t.Fatalf("status = %q (score %g), want unmatched", second.Status, second.Score)
	}
}

func TestNoDoubleClaiming(t *testing.T) {
	inv := buildInventory(t, "update 100.mp4")
	cat := buildCatalog("Update 100", "Update 100 Remastered")

	resolution := testResolver().Resolve(cat, inv)

	if resolution.Results[0].Status != StatusMatched {
		t.Fatalf("first entity = %q, want matched exactly", resolution.Results[0].Status)
	}
	if resolution.Results[1].Status == StatusMatched {
		t.Fatal("second entity must not claim the already-claimed file")
	}
}

func TestExactBeatsEarlierFuzzy(t *testing.T) {
	// The first entity would fuzzy-claim the only file if the fuzzy phase
	// ran interleaved; the second entity's exact title hit must win.
	inv := buildInventory(t, "rope basics.mp4")
	cat := buildCatalog("Rope Basics Extended", "Rope Basics")

	resolution := testResolver().Resolve(cat, inv)

	if resolution.Results[1].Status != StatusMatched || resolution.Results[1].Score != 1.0 {
		t.Fatalf("exact-title entity = %+v, want exact match", resolution.Results[1])
	}
	if resolution.Results[0].Status == StatusMatched {
		t.Fatal("fuzzy entity must not steal the exact entity's file")
	}
}

func TestHashTieBreakOnCollision(t *testing.T) {
	builder := catalog.NewBuilder()
	builder.Add("https://example.com/updates/u100-a", "Update 100")
	builder.Add("https://example.com/updates/u100-b", "Update 100")
	cat := builder.Build()
	hash := cat.Entities()[1].Hash

	inv := buildInventory(t, "update 100.mp4", "update 100 "+hash+".mkv")

	resolution := testResolver().Resolve(cat, inv)

	second := resolution.Results[1]
	if second.Status != StatusMatched {
		t.Fatalf("hashed entity = %q, want matched", second.Status)
	}
	if second.File == nil || second.File.Extension != ".mkv" {
		t.Fatalf("hashed entity claimed %+v, want the hash-suffixed file", second.File)
	}

	first := resolution.Results[0]
	if first.File == nil || first.File.Extension != ".mp4" {
		t.Fatalf("plain entity claimed %+v, want the plain file", first.File)
	}
}

func TestLexicalTieBreak(t *testing.T) {
	inv := buildInventory(t, filepath.Join("b", "same title.mp4"), filepath.Join("a", "same title.mp4"))
	cat := buildCatalog("Same Title")

	resolution := testResolver().Resolve(cat, inv)
	result := resolution.Results[0]
	if result.Status != StatusMatched {
		t.Fatalf("status = %q", result.Status)
	}
	if filepath.Base(filepath.Dir(result.File.Path)) != "a" {
		t.Fatalf("claimed %q, want the lexically first path", result.File.Path)
	}
	if len(resolution.Orphans) != 1 {
		t.Fatalf("orphans = %d, want the unclaimed duplicate", len(resolution.Orphans))
	}
}

func TestAmbiguousBelowThreshold(t *testing.T) {
	stub := func(a, b string) float64 {
		switch b {
		case "first candidate":
			return 0.70
		case "second candidate":
			return 0.68
		}
		return 0.0
	}
	inv := buildInventory(t, "first candidate.mp4", "second candidate.mp4")
	cat := buildCatalog("Some Entity")

	resolution := testResolver(WithSimilarity(stub)).Resolve(cat, inv)
	result := resolution.Results[0]
	if result.Status != StatusAmbiguous {
		t.Fatalf("status = %q (score %g, runner-up %g), want ambiguous", result.Status, result.Score, result.RunnerUp)
	}
	if result.Candidate != "first candidate.mp4" {
		t.Fatalf("candidate = %q", result.Candidate)
	}
}

func TestEmptyInventoryAllUnmatched(t *testing.T) {
	inv := buildInventory(t)
	cat := buildCatalog("Anything", "Else")

	resolution := testResolver().Resolve(cat, inv)
	for _, result := range resolution.Results {
		if result.Status != StatusUnmatched {
			t.Fatalf("status = %q, want unmatched", result.Status)
		}
	}
}

func TestEmptyCatalogReportsOrphans(t *testing.T) {
	inv := buildInventory(t, "stale download.mp4")
	cat := buildCatalog()

	resolution := testResolver().Resolve(cat, inv)
	if len(resolution.Results) != 0 {
		t.Fatalf("results = %d, want 0", len(resolution.Results))
	}
	if len(resolution.Orphans) != 1 {
		t.Fatalf("orphans = %d, want 1", len(resolution.Orphans))
	}
}

func TestSimilarityContract(t *testing.T) {
	if got := Similarity("Amazing Video", "amazing_video"); got != 1.0 {
		t.Fatalf("normalized-equal titles score %g, want 1.0", got)
	}
	if got := Similarity("Video Amazing", "Amazing Video"); got >= 1.0 || got < 0.9 {
		t.Fatalf("reordered titles score %g, want high but < 1.0", got)
	}
	a, b := Similarity("alpha beta", "beta gamma"), Similarity("beta gamma", "alpha beta")
	if a != b {
		t.Fatalf("similarity not symmetric: %g vs %g", a, b)
	}
	if got := Similarity("Amazing Video Part 2", "amazing video pt2"); got < 0.80 {
		t.Fatalf("near-identical titles score %g, want >= 0.80", got)
	}
	if got := Similarity("Totally Unrelated Clip", "amazing video pt2"); got >= 0.80 {
		t.Fatalf("unrelated titles score %g, want < 0.80", got)
	}
}
