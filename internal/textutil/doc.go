// Package textutil provides text processing utilities for title
// normalization, fingerprinting, similarity, and filename sanitization.
//
// The primary use cases are:
//   - Normalizing catalog titles and local filenames with one shared
//     transform so exact matching works on both sides
//   - Creating token-based fingerprints from titles for comparison
//   - Computing cosine similarity between fingerprints
//   - Sanitizing titles and category names for safe filesystem use
//
// Fingerprints use term frequency vectors normalized for efficient
// comparison. Tokenization case-folds text and splits on non-alphanumeric
// characters. Short tokens are kept: part numbers and counters are
// significant in video titles.
package textutil
