// Package match reconciles the crawled catalog against the local file
// inventory: exact normalized-title lookups first, then fuzzy similarity
// over the unclaimed remainder.
package match

import (
	"log/slog"
	"strings"

	"vidshelf/internal/catalog"
	"vidshelf/internal/config"
	"vidshelf/internal/inventory"
	"vidshelf/internal/logging"
)

// Status classifies one entity's resolution outcome.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
	StatusAmbiguous Status = "ambiguous"
)

// Result is the resolution for one catalog entity. File is set only when
// Status is StatusMatched; it references the inventory's record, not a copy.
type Result struct {
	Entity *catalog.Entity
	Status Status
	File   *inventory.LocalFile
	Score  float64
	// RunnerUp is the second-best fuzzy score, recorded for ambiguous
	// results so the report can show how close the call was.
	RunnerUp float64
	// Candidate names the best-scoring file for ambiguous and unmatched
	// results, for manual review.
	Candidate string
}

// Resolution is the full output of one resolve pass.
type Resolution struct {
	Results []Result
	// Orphans are local files no catalog entity claimed; they usually
	// indicate renamed or stale downloads.
	Orphans []inventory.LocalFile
}

// Counts tallies resolution outcomes for the end-of-run summary.
func (r *Resolution) Counts() (matched, unmatched, ambiguous int) {
	for _, result := range r.Results {
		switch result.Status {
		case StatusMatched:
			matched++
		case StatusUnmatched:
			unmatched++
		case StatusAmbiguous:
			ambiguous++
		}
	}
	return matched, unmatched, ambiguous
}

// Resolver holds the thresholds and similarity function for one run.
type Resolver struct {
	similarity      SimilarityFunc
	minSimilarity   float64
	ambiguityMargin float64
	logger          *slog.Logger
}

// Option mutates a Resolver during construction.
type Option func(*Resolver)

// WithSimilarity replaces the similarity function, used by tests to inject
// a deterministic scorer.
func WithSimilarity(fn SimilarityFunc) Option {
	return func(r *Resolver) { r.similarity = fn }
}

// NewResolver builds a Resolver from matching configuration.
func NewResolver(cfg *config.Config, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	resolver := &Resolver{
		similarity:      Similarity,
		minSimilarity:   cfg.Matching.MinSimilarity,
		ambiguityMargin: cfg.Matching.AmbiguityMargin,
		logger:          logger.With(logging.String(logging.FieldComponent, "match")),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Resolve produces one Result per catalog entity, in catalog insertion
// order. Each accepted match claims its file, removing it from every later
// comparison, so a file is never assigned twice. The exact phase runs to
// completion before any fuzzy comparison, so an exact title hit always
// beats an earlier entity's fuzzy claim on the same file.
func (r *Resolver) Resolve(cat *catalog.Catalog, inv *inventory.Inventory) *Resolution {
	entities := cat.Entities()
	resolution := &Resolution{Results: make([]Result, len(entities))}
	claimed := make(map[string]bool)

	// Exact phase.
	for i, entity := range entities {
		hits := unclaimedHits(inv.Lookup(entity.NormalizedTitle()), claimed)
		if len(hits) == 0 {
			continue
		}
		file := pickExact(hits, entity.Hash)
		claimed[file.Path] = true
		resolution.Results[i] = Result{Entity: entity, Status: StatusMatched, File: file, Score: 1.0}
		r.logger.Debug("exact match",
			logging.String(logging.FieldTitle, entity.Title),
			logging.String("file", file.FileName()))
	}

	// Fuzzy phase over whatever the exact phase left unclaimed.
	for i, entity := range entities {
		if resolution.Results[i].Status == StatusMatched {
			continue
		}
		resolution.Results[i] = r.resolveFuzzy(entity, inv, claimed)
	}

	for _, file := range inv.Files() {
		if !claimed[file.Path] {
			resolution.Orphans = append(resolution.Orphans, file)
		}
	}

	matched, unmatched, ambiguous := resolution.Counts()
	r.logger.Info("resolution complete",
		logging.Int("matched", matched),
		logging.Int("unmatched", unmatched),
		logging.Int("ambiguous", ambiguous),
		logging.Int("orphans", len(resolution.Orphans)))
	return resolution
}

func unclaimedHits(hits []inventory.LocalFile, claimed map[string]bool) []inventory.LocalFile {
	out := hits[:0:0]
	for _, hit := range hits {
		if !claimed[hit.Path] {
			out = append(out, hit)
		}
	}
	return out
}

// pickExact chooses among same-titled files: a filename carrying the
// entity's disambiguation hash wins; otherwise the first file in lexical
// path order is taken as a documented tie-break.
func pickExact(hits []inventory.LocalFile, hash string) *inventory.LocalFile {
	if hash != "" {
		for i := range hits {
			if strings.Contains(strings.ToLower(hits[i].FileName()), hash) {
				return &hits[i]
			}
		}
	}
	return &hits[0]
}

func (r *Resolver) resolveFuzzy(entity *catalog.Entity, inv *inventory.Inventory, claimed map[string]bool) Result {
	result := Result{Entity: entity, Status: StatusUnmatched}

	var best, runnerUp float64
	var bestFile *inventory.LocalFile

	files := inv.Files()
	for i := range files {
		if claimed[files[i].Path] {
			continue
		}
		score := r.similarity(entity.StoredTitle(), files[i].NormalizedTitle)
		// Strictly-greater keeps the lexically first file on score ties.
		if score > best {
			runnerUp = best
			best = score
			bestFile = &files[i]
		} else if score > runnerUp {
			runnerUp = score
		}
	}

	result.Score = best
	result.RunnerUp = runnerUp
	if bestFile == nil {
		return result
	}
	result.Candidate = bestFile.FileName()

	switch {
	case best >= r.minSimilarity:
		claimed[bestFile.Path] = true
		result.Status = StatusMatched
		result.File = bestFile
		r.logger.Debug("fuzzy match",
			logging.String(logging.FieldTitle, entity.Title),
			logging.String("file", bestFile.FileName()),
			logging.Float64("score", best))
	case best > 0 && best-runnerUp <= r.ambiguityMargin && runnerUp > 0:
		result.Status = StatusAmbiguous
		r.logger.Debug("ambiguous match",
			logging.String(logging.FieldTitle, entity.Title),
			logging.String("file", bestFile.FileName()),
			logging.Float64("score", best),
			logging.Float64("runner_up", runnerUp))
	}
	return result
}
