package textutil

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Amazing Video", "amazing video"},
		{"collapses separators", "rope_escape---challenge", "rope escape challenge"},
		{"strips punctuation", "Update #100: The Return!", "update 100 the return"},
		{"trims", "  padded  ", "padded"},
		{"empty", "", ""},
		{"only punctuation", "!!!", ""},
		{"unicode case fold", "STRAßE", "strasse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleMatchesFilenameSide(t *testing.T) {
	// The catalog side and the inventory side must normalize identically.
	title := "Amazing Video"
	filename := "AMAZING VIDEO"
	if NormalizeTitle(title) != NormalizeTitle(filename) {
		t.Fatalf("normalization diverged: %q vs %q", NormalizeTitle(title), NormalizeTitle(filename))
	}
}

func TestNameFromSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"rope-escape-challenge", "Rope Escape Challenge"},
		{"behind_the_scenes", "Behind The Scenes"},
		{"", "Unknown"},
		{"---", "Unknown"},
		{"update-100", "Update 100"},
	}

	for _, tt := range tests {
		if got := NameFromSlug(tt.input); got != tt.want {
			t.Errorf("NameFromSlug(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestUpperTitleFromSlug(t *testing.T) {
	if got := UpperTitleFromSlug("update-100-rematch"); got != "UPDATE 100 REMATCH" {
		t.Errorf("UpperTitleFromSlug() = %q", got)
	}
	if got := UpperTitleFromSlug(""); got != "UNKNOWN" {
		t.Errorf("UpperTitleFromSlug(empty) = %q", got)
	}
}
