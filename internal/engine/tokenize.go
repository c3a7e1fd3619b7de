package engine

import (
	"regexp"
	"sort"
	"strings"
)

// MinTokenLength is the shortest term kept by Tokenize.
const MinTokenLength = 3

var wordPattern = regexp.MustCompile(`\b[a-zA-Z0-9_-]+\b`)

// Tokenize splits text into a set of lower-case terms of at least
// MinTokenLength characters. The result is sorted and free of duplicates.
// Empty or whitespace-only input yields an empty slice.
func Tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < MinTokenLength {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	sort.Strings(tokens)
	return tokens
}
