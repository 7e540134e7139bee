package pipeline

import (
	"log/slog"
	"strings"

	"tally/internal"
	"tally/internal/catalog"
	"tally/internal/config"
	"tally/internal/util"
)

const (
	confidenceExact            = 1.0
	confidenceEntryInCandidate = 0.90
	confidenceCandidateInEntry = 0.85
)

// MatchStrategy is one tier of catalog resolution. Strategies are tried in
// order; the first one that yields a result wins.
type MatchStrategy interface {
	Name() string
	Try(text string, snap *catalog.Snapshot) (internal.MatchResult, bool)
}

// Matcher resolves candidate lines against a catalog snapshot built once per
// matching session. Safe for concurrent use; the snapshot is never written.
type Matcher struct {
	cfg        config.Config
	logger     *slog.Logger
	snap       *catalog.Snapshot
	strategies []MatchStrategy
}

func NewMatcher(cfg config.Config, logger *slog.Logger, entries []internal.CatalogEntry) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		cfg:    cfg,
		logger: logger,
		snap:   catalog.BuildSnapshot(entries),
		strategies: []MatchStrategy{
			exactStrategy{},
			substringStrategy{},
			fuzzyStrategy{threshold: cfg.FuzzyThreshold},
		},
	}
}

// MatchText resolves a single candidate text. Blank text never matches.
func (m *Matcher) MatchText(text string) (internal.MatchResult, bool) {
	if strings.TrimSpace(text) == "" {
		return internal.MatchResult{}, false
	}
	for _, strategy := range m.strategies {
		if result, ok := strategy.Try(text, m.snap); ok {
			return result, true
		}
	}
	return internal.MatchResult{}, false
}

// MatchAll resolves every candidate, returning matches alongside the
// candidates that no strategy could place. An unmatched candidate is not an
// error; it is surfaced for observability and dropped from the match list.
func (m *Matcher) MatchAll(candidates []internal.RawLineCandidate) ([]internal.MatchResult, []internal.RawLineCandidate) {
	matched := make([]internal.MatchResult, 0, len(candidates))
	unmatched := []internal.RawLineCandidate{}

	for _, candidate := range candidates {
		result, ok := m.MatchText(candidate.Text)
		if !ok {
			m.logger.Info("no catalog match", "text", candidate.Text, "line", candidate.LineNo)
			unmatched = append(unmatched, candidate)
			continue
		}

		qty := candidate.OCRQuantity
		if qty < 1 {
			qty = 1
		}
		result.Quantity = qty
		result.OCRQuantity = candidate.OCRQuantity
		result.MatchedText = candidate.Text
		result.LineNo = candidate.LineNo
		result.LinePrice = candidate.LinePrice
		matched = append(matched, result)

		m.logger.Info("matched",
			"text", candidate.Text, "item", result.Entry.Name,
			"tier", string(result.Tier), "confidence", result.Confidence,
		)
	}

	return matched, unmatched
}

type exactStrategy struct{}

func (exactStrategy) Name() string { return "exact" }

func (exactStrategy) Try(text string, snap *catalog.Snapshot) (internal.MatchResult, bool) {
	entry, ok := snap.ByName(strings.TrimSpace(text))
	if !ok {
		return internal.MatchResult{}, false
	}
	return internal.MatchResult{Entry: entry, Confidence: confidenceExact, Tier: internal.TierExact}, true
}

type substringStrategy struct{}

func (substringStrategy) Name() string { return "substring" }

func (substringStrategy) Try(text string, snap *catalog.Snapshot) (internal.MatchResult, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))

	best := internal.MatchResult{}
	found := false
	for _, entry := range snap.Entries {
		entryLower := strings.ToLower(entry.Name)

		var confidence float64
		switch {
		case strings.Contains(lower, entryLower):
			confidence = confidenceEntryInCandidate
		case strings.Contains(entryLower, lower):
			confidence = confidenceCandidateInEntry
		default:
			continue
		}

		// Strictly greater keeps the first entry in catalog order on ties.
		if !found || confidence > best.Confidence {
			best = internal.MatchResult{Entry: entry, Confidence: confidence, Tier: internal.TierSubstring}
			found = true
		}
	}

	return best, found
}

type fuzzyStrategy struct {
	threshold float64
}

func (fuzzyStrategy) Name() string { return "fuzzy" }

func (s fuzzyStrategy) Try(text string, snap *catalog.Snapshot) (internal.MatchResult, bool) {
	best := internal.MatchResult{}
	found := false
	for _, entry := range snap.Entries {
		similarity := util.Similarity(text, entry.Name)
		if similarity < s.threshold {
			continue
		}
		if !found || similarity > best.Confidence {
			best = internal.MatchResult{Entry: entry, Confidence: similarity, Tier: internal.TierFuzzy}
			found = true
		}
	}
	return best, found
}
