package engine

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// MakeSnippet cuts a window of about width bytes out of text, centred on the
// first occurrence of the longest term that text contains, and highlights
// every occurrence of every term inside it. Without a matching term the
// window starts at the beginning of text and nothing is highlighted.
func MakeSnippet(text string, terms []string, width int) domain.Snippet {
	if width <= 0 {
		width = DefaultSnippetWidth
	}
	text = collapseSpace(text)
	if text == "" {
		return domain.Snippet{}
	}

	lower := strings.ToLower(text)
	// Highlight offsets are computed on the lowered copy; they are only valid
	// for text when lowering preserved byte length.
	aligned := len(lower) == len(text)

	anchor := -1
	best := ""
	if aligned {
		for _, t := range terms {
			if t == "" || len(t) <= len(best) {
				continue
			}
			if i := strings.Index(lower, t); i >= 0 {
				anchor, best = i, t
			}
		}
	}

	start, end := 0, min(len(text), width)
	if anchor >= 0 {
		start = max(0, anchor+len(best)/2-width/2)
		end = min(len(text), start+width)
		start = max(0, end-width)
	}
	start, end = runeBoundary(text, start, false), runeBoundary(text, end, true)

	s := domain.Snippet{
		Text:   text[start:end],
		Prefix: start > 0,
		Suffix: end < len(text),
	}
	if anchor >= 0 {
		s.Highlights = highlights(lower[start:end], terms)
	}
	return s
}

// highlights finds every occurrence of every term in window and merges
// overlapping or touching ranges.
func highlights(window string, terms []string) []domain.Span {
	var spans []domain.Span
	for _, t := range terms {
		if t == "" {
			continue
		}
		for off := 0; off < len(window); {
			i := strings.Index(window[off:], t)
			if i < 0 {
				break
			}
			spans = append(spans, domain.Span{Start: off + i, End: off + i + len(t)})
			off += i + len(t)
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(a, b int) bool { return spans[a].Start < spans[b].Start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.Start <= last.End {
			last.End = max(last.End, sp.End)
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

// runeBoundary moves i onto a rune start, forward or backward.
func runeBoundary(s string, i int, forward bool) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		if forward {
			i++
		} else {
			i--
		}
	}
	return i
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
