package engine

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// Matcher scores approximate string matches with a fixed set of weights.
// A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	w domain.ScoringWeights
}

// NewMatcher creates a matcher using the given weights.
func NewMatcher(w domain.ScoringWeights) *Matcher {
	return &Matcher{w: w}
}

var defaultMatcher = NewMatcher(domain.DefaultScoringWeights())

// FuzzyScore scores query against target with the default weights.
// See Matcher.FuzzyScore.
func FuzzyScore(query, target string) (float64, bool) {
	return defaultMatcher.FuzzyScore(query, target)
}

// FuzzyScore aligns the lower-cased query as an ordered, possibly
// non-contiguous subsequence of the lower-cased target.
//
// It reports false when the query is not a subsequence of the target or when
// the normalised score falls below the fuzzy floor. Otherwise the score is in
// [0, 1].
func (m *Matcher) FuzzyScore(query, target string) (float64, bool) {
	return m.fuzzyLower(strings.ToLower(query), strings.ToLower(target))
}

// fuzzyLower is FuzzyScore for inputs that are already lower-cased.
func (m *Matcher) fuzzyLower(q, t string) (float64, bool) {
	qLen := utf8.RuneCountInString(q)
	if qLen == 0 || t == "" {
		return 0, false
	}

	raw, ok := m.align(q, t)
	if !ok {
		return 0, false
	}

	tLen := utf8.RuneCountInString(t)
	raw *= float64(qLen) / float64(tLen)

	switch {
	case t == q:
		raw += m.w.ExactBonus
	case strings.HasPrefix(t, q):
		raw += m.w.PrefixBonus
	case strings.Contains(t, q):
		raw += m.w.SubstringBonus
	}

	score := raw / (float64(qLen)*m.w.NormPerChar + m.w.NormBase)
	if score < m.w.FuzzyFloor {
		return 0, false
	}
	return math.Min(score, 1), true
}

// align walks the target once, advancing through the query on every
// matching rune. It returns the raw alignment score.
func (m *Matcher) align(q, t string) (float64, bool) {
	query := []rune(q)
	qi := 0
	last := -1
	raw := 0.0

	ti := 0
	for _, r := range t {
		if qi == len(query) {
			break
		}
		if r == query[qi] {
			raw += m.w.MatchChar
			if last >= 0 {
				raw += m.proximity(ti - last)
			}
			last = ti
			qi++
		}
		ti++
	}

	return raw, qi == len(query)
}

func (m *Matcher) proximity(gap int) float64 {
	switch gap {
	case 1:
		return m.w.ProximityGap1
	case 2:
		return m.w.ProximityGap2
	case 3:
		return m.w.ProximityGap3
	default:
		return 0
	}
}

// isSubsequence reports whether q can be aligned in t. Both are lower-cased.
func isSubsequence(q, t string) bool {
	query := []rune(q)
	if len(query) == 0 {
		return true
	}
	qi := 0
	for _, r := range t {
		if r == query[qi] {
			qi++
			if qi == len(query) {
				return true
			}
		}
	}
	return false
}
