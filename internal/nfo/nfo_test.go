package nfo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidshelf/internal/catalog"
	"vidshelf/internal/config"
)

type countingDownloader struct {
	calls int
	fail  bool
}

func (d *countingDownloader) Download(_ context.Context, _ string, destPath string) error {
	d.calls++
	if d.fail {
		return os.ErrNotExist
	}
	return os.WriteFile(destPath, []byte("image bytes"), 0o644)
}

func testEmitter(t *testing.T, downloader *countingDownloader) (*Emitter, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ThumbCacheDir = filepath.Join(dir, "thumbs")

	folder := filepath.Join(dir, "organized", "tag rope")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	return NewEmitter(&cfg, downloader, nil), folder
}

func TestEmitTagDescriptor(t *testing.T) {
	emitter, folder := testEmitter(t, &countingDownloader{})
	assoc := catalog.Association{Kind: catalog.KindTag, Name: "rope"}

	if err := emitter.EmitCategory(context.Background(), folder, assoc, ""); err != nil {
		t.Fatalf("emit: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(folder, "folder.nfo"))
	if err != nil {
		t.Fatalf("descriptor missing: %v", err)
	}
	content := string(data)
	for _, want := range []string{"<movie>", "<title>rope</title>", "<tag>rope</tag>", "<genre>rope</genre>"} {
		if !strings.Contains(content, want) {
			t.Fatalf("descriptor missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "<actor>") {
		t.Fatal("tag descriptor should not list actors")
	}
}

func TestEmitModelDescriptor(t *testing.T) {
	emitter, folder := testEmitter(t, &countingDownloader{})
	assoc := catalog.Association{Kind: catalog.KindModel, Name: "Jane Doe"}

	if err := emitter.EmitCategory(context.Background(), folder, assoc, ""); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(folder, "folder.nfo"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<name>Jane Doe</name>") {
		t.Fatalf("model descriptor missing actor:\n%s", data)
	}
}

func TestThumbnailCachedAcrossFolders(t *testing.T) {
	downloader := &countingDownloader{}
	emitter, folder := testEmitter(t, downloader)
	assoc := catalog.Association{Kind: catalog.KindTag, Name: "rope"}

	if err := emitter.EmitCategory(context.Background(), folder, assoc, "https://example.com/t/rope.jpg"); err != nil {
		t.Fatal(err)
	}
	if downloader.calls != 1 {
		t.Fatalf("downloads = %d, want 1", downloader.calls)
	}
	if _, err := os.Stat(filepath.Join(folder, "folder.jpg")); err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}

	// Second folder for the same category must reuse the cache.
	other := filepath.Join(filepath.Dir(folder), "tag rope again")
	if err := os.MkdirAll(other, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := emitter.EmitCategory(context.Background(), other, assoc, "https://example.com/t/rope.jpg"); err != nil {
		t.Fatal(err)
	}
	if downloader.calls != 1 {
		t.Fatalf("downloads = %d, want still 1 (cache hit)", downloader.calls)
	}
	if _, err := os.Stat(filepath.Join(other, "folder.jpg")); err != nil {
		t.Fatalf("cached thumbnail not copied: %v", err)
	}
}

func TestThumbnailFailureIsNonFatal(t *testing.T) {
	downloader := &countingDownloader{fail: true}
	emitter, folder := testEmitter(t, downloader)
	assoc := catalog.Association{Kind: catalog.KindTag, Name: "rope"}

	if err := emitter.EmitCategory(context.Background(), folder, assoc, "https://example.com/t/rope.jpg"); err != nil {
		t.Fatalf("artwork failure must not fail the category: %v", err)
	}
	if _, err := os.Stat(filepath.Join(folder, "folder.nfo")); err != nil {
		t.Fatalf("descriptor should still be written: %v", err)
	}
}

func TestEmitVideoDescriptor(t *testing.T) {
	emitter, folder := testEmitter(t, &countingDownloader{})
	entity := &catalog.Entity{
		URL:   "https://example.com/updates/amazing-video",
		Title: "Amazing Video",
		Associations: []catalog.Association{
			{Kind: catalog.KindTag, Name: "rope"},
			{Kind: catalog.KindModel, Name: "Jane Doe"},
		},
	}

	if err := emitter.EmitVideo(folder, "amazing video.mp4", entity); err != nil {
		t.Fatalf("emit video: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(folder, "amazing video.nfo"))
	if err != nil {
		t.Fatalf("video descriptor missing: %v", err)
	}
	content := string(data)
	for _, want := range []string{"<title>Amazing Video</title>", "<tag>rope</tag>", "<name>Jane Doe</name>"} {
		if !strings.Contains(content, want) {
			t.Fatalf("video descriptor missing %q:\n%s", want, content)
		}
	}
}

func TestThumbExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/a.png", ".png"},
		{"https://example.com/a.jpg?size=big", ".jpg"},
		{"https://example.com/a", ".jpg"},
		{"https://example.com/a.exe", ".jpg"},
	}
	for _, tc := range tests {
		if got := thumbExtension(tc.url); got != tc.want {
			t.Errorf("thumbExtension(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
