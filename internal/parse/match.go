package parse

import (
	"strings"

	"orderdesk/internal"
)

const (
	defaultScoreThreshold = 1
	defaultPhraseBonus    = 2
)

// Options tunes the catalog matcher. Zero values take the defaults.
type Options struct {
	// ScoreThreshold is the score the best candidate must strictly exceed
	// to count as a match.
	ScoreThreshold int
	// PhraseBonus is added when a multi-word candidate appears whole inside
	// the catalog name.
	PhraseBonus int
}

func (o Options) withDefaults() Options {
	if o.ScoreThreshold <= 0 {
		o.ScoreThreshold = defaultScoreThreshold
	}
	if o.PhraseBonus <= 0 {
		o.PhraseBonus = defaultPhraseBonus
	}
	return o
}

// Matcher scores cleaned name candidates against a read-only catalog.
type Matcher struct {
	opts Options
}

func NewMatcher(opts Options) *Matcher {
	return &Matcher{opts: opts.withDefaults()}
}

// FindBest returns the best-scoring catalog item for a candidate, or nil
// when nothing clears the threshold and the candidate is a new item.
//
// An exact match on the tight form (all whitespace removed) returns
// immediately. Otherwise each item scores +1 per candidate word (longer than
// one character) contained in its name, plus the phrase bonus when the whole
// multi-word candidate is contained in the name. Ties keep the earliest
// catalog item; a lone one-word hit never clears the default threshold.
func (m *Matcher) FindBest(candidate string, catalog []internal.CatalogItem) *internal.CatalogItem {
	cand := strings.ToLower(strings.TrimSpace(candidate))
	if cand == "" {
		return nil
	}
	words := candidateWords(cand)
	candTight := tightForm(cand)

	var best *internal.CatalogItem
	bestScore := 0
	for i := range catalog {
		name := strings.ToLower(catalog[i].Name)
		if tightForm(name) == candTight {
			return &catalog[i]
		}

		score := 0
		for _, w := range words {
			if strings.Contains(name, w) {
				score++
			}
		}
		if len(words) > 1 && strings.Contains(name, cand) {
			score += m.opts.PhraseBonus
		}
		if score > bestScore {
			bestScore = score
			best = &catalog[i]
		}
	}

	if bestScore > m.opts.ScoreThreshold {
		return best
	}
	return nil
}

func candidateWords(cand string) []string {
	fields := strings.Fields(cand)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			out = append(out, f)
		}
	}
	return out
}

func tightForm(s string) string {
	return strings.Join(strings.Fields(s), "")
}
