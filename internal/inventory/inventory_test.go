package inventory

import (
	"os"
	"path/filepath"
	"testing"
)

var testExtensions = []string{".mp4", ".mkv", ".avi"}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanIndexesByNormalizedTitle(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, root, "AMAZING VIDEO.mp4")
	writeVideo(t, root, "second_clip.mkv")
	writeVideo(t, root, "notes.txt")

	scanner := NewScanner(testExtensions, nil)
	inv, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if inv.Len() != 2 {
		t.Fatalf("files = %d, want 2 (txt excluded)", inv.Len())
	}

	hits := inv.Lookup("amazing video")
	if len(hits) != 1 {
		t.Fatalf("lookup = %v, want 1 hit", hits)
	}
	if hits[0].Extension != ".mp4" {
		t.Fatalf("extension = %q", hits[0].Extension)
	}
	if hits[0].SizeBytes == 0 {
		t.Fatal("size not recorded")
	}

	if len(inv.Lookup("second clip")) != 1 {
		t.Fatal("underscored filename should normalize to spaced title")
	}
}

func TestScanDescendsOneLevel(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, root, "top.mp4")
	writeVideo(t, root, filepath.Join("batch one", "nested.mp4"))
	writeVideo(t, root, filepath.Join("batch one", "deeper", "too-deep.mp4"))

	scanner := NewScanner(testExtensions, nil)
	inv, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if inv.Len() != 2 {
		t.Fatalf("files = %d, want 2 (two levels max)", inv.Len())
	}

	nested := inv.Lookup("nested")
	if len(nested) != 1 {
		t.Fatalf("nested lookup = %v", nested)
	}
	if nested[0].SourceFolder != "batch one" {
		t.Fatalf("source folder = %q, want %q", nested[0].SourceFolder, "batch one")
	}

	top := inv.Lookup("top")
	if top[0].SourceFolder != filepath.Base(root) {
		t.Fatalf("top-level source folder = %q, want root name", top[0].SourceFolder)
	}
}

func TestScanRetainsTitleCollisions(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, root, filepath.Join("a", "Update 100.mp4"))
	writeVideo(t, root, filepath.Join("b", "update_100.mkv"))

	scanner := NewScanner(testExtensions, nil)
	inv, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	hits := inv.Lookup("update 100")
	if len(hits) != 2 {
		t.Fatalf("collision lookup = %d files, want both retained", len(hits))
	}
	if hits[0].Path > hits[1].Path {
		t.Fatal("collision hits not in lexical path order")
	}
}

func TestScanMissingRootFatal(t *testing.T) {
	scanner := NewScanner(testExtensions, nil)
	if _, err := scanner.Scan(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}
