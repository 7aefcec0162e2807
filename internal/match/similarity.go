package match

import (
	"github.com/hbollon/go-edlib"

	"vidshelf/internal/textutil"
)

// SimilarityFunc scores two titles in [0,1]. Implementations must be
// symmetric and return 1.0 exactly when the normalized forms are equal.
// Tests substitute a deterministic stub.
type SimilarityFunc func(a, b string) float64

// Similarity is the default scorer. It normalizes both titles, then takes
// the better of a token-frequency cosine (tolerant of word reordering and
// dropped filler words) and Jaro-Winkler (tolerant of typos and
// abbreviations like "pt2" for "part 2").
func Similarity(a, b string) float64 {
	na := textutil.NormalizeTitle(a)
	nb := textutil.NormalizeTitle(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	cosine := textutil.CosineSimilarity(textutil.NewFingerprint(na), textutil.NewFingerprint(nb))
	jaro := float64(edlib.JaroWinklerSimilarity(na, nb))

	score := cosine
	if jaro > score {
		score = jaro
	}
	// Reordered-token titles can reach a perfect cosine; only
	// normalized-equal titles may score 1.0.
	if score >= 1.0 {
		score = 0.999
	}
	return score
}
