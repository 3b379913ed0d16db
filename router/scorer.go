package router

import (
	"context"
	"strings"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/registry"
)

// Scorer rates how well a specialist profile matches a query, returning a
// value in [0, 1]. Implementations may call out to a classifier or embedding
// service; the router treats scoring as opaque.
type Scorer interface {
	Score(ctx context.Context, query core.Query, profile registry.Profile) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, query core.Query, profile registry.Profile) (float64, error)

// Score calls fn.
func (fn ScorerFunc) Score(ctx context.Context, query core.Query, profile registry.Profile) (float64, error) {
	return fn(ctx, query, profile)
}

// KeywordScorer scores by trigger-term occurrence in the query text. Each
// distinct matched term contributes a fixed weight, saturating at 1.0. The
// scorer is fully deterministic: identical query and profile always produce
// the identical score.
type KeywordScorer struct {
	// Weight per matched trigger term. Two matched terms clear typical
	// single-dispatch thresholds.
	TermWeight float64
}

// NewKeywordScorer returns a KeywordScorer with the default term weight.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{TermWeight: 0.35}
}

// Score implements Scorer.
func (s *KeywordScorer) Score(_ context.Context, query core.Query, profile registry.Profile) (float64, error) {
	text := strings.ToLower(query.Text)

	var matches int
	for _, term := range profile.TriggerTerms {
		if containsTerm(text, strings.ToLower(term)) {
			matches++
		}
	}

	score := float64(matches) * s.TermWeight
	if score > 1 {
		score = 1
	}
	return score, nil
}

// containsTerm reports whether term occurs in text on word boundaries.
// Terms that are not a single plain word ("zero trust", "pci-dss") match as
// substrings instead.
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	if strings.IndexFunc(term, isBoundaryRune) >= 0 {
		return strings.Contains(text, term)
	}
	for _, word := range strings.FieldsFunc(text, isBoundaryRune) {
		if word == term {
			return true
		}
	}
	return false
}

func isBoundaryRune(r rune) bool {
	return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
}
