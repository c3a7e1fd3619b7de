package engine

import (
	"math"
	"strings"
	"unicode/utf8"
)

// NoDistance is returned by BoundedLevenshtein when the length gap between
// the inputs exceeds the tolerance window. It is never a real distance.
const NoDistance = 999

// DefaultMaxLengthGap is the tolerance window of BoundedLevenshtein.
const DefaultMaxLengthGap = 3

// BoundedLevenshtein returns the unit-cost edit distance between a and b, or
// NoDistance when their lengths differ by more than DefaultMaxLengthGap runes.
// The comparison is case-sensitive.
func BoundedLevenshtein(a, b string) int {
	return boundedLevenshtein(a, b, DefaultMaxLengthGap)
}

func boundedLevenshtein(a, b string, maxGap int) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if abs(la-lb) > maxGap {
		return NoDistance
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	ra, rb := []rune(a), []rune(b)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// TypoScore grants partial credit when target looks like a misspelling of
// query. It reports false unless the distance is within
// max(1, floor(len(query)*TypoRatio)) and smaller than the query length.
func (m *Matcher) TypoScore(query, target string, weight float64) (float64, bool) {
	return m.typoLower(strings.ToLower(query), strings.ToLower(target), weight)
}

func (m *Matcher) typoLower(q, t string, weight float64) (float64, bool) {
	qLen := utf8.RuneCountInString(q)
	if qLen == 0 {
		return 0, false
	}

	d := boundedLevenshtein(q, t, m.w.MaxLengthGap)
	tolerance := max(1, int(math.Floor(float64(qLen)*m.w.TypoRatio)))
	if d > tolerance || d >= qLen {
		return 0, false
	}
	return (1 - float64(d)/float64(qLen)) * weight, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
