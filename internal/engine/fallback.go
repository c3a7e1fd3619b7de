package engine

import (
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// Fallback scores pages by plain case-insensitive containment of the whole
// query, reusing the exact-token weights of pass one. There is no fuzzy
// matching and no anchor matching. It needs no token map, so it stays
// available while the map is being built or when the worker has failed.
func (e *Engine) Fallback(query string, limit int) ([]domain.Match, error) {
	if e == nil || e.docs == nil {
		return nil, domain.ErrArtifactNotLoaded
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []domain.Match{}, nil
	}

	matches := make([]domain.Match, 0)
	for i := range e.docs {
		if e.docs[i].Malformed {
			continue
		}
		ld := &e.lower[i]
		score := 0.0
		if strings.Contains(ld.title, q) {
			if ld.title == q {
				score += e.w.TitleExactToken
			} else {
				score += e.w.TitleToken
			}
		}
		if strings.Contains(ld.content, q) {
			score += e.w.ContentToken
		}
		if score > 0 {
			matches = append(matches, domain.Match{Document: e.docs[i], PageScore: score})
		}
	}

	return e.finish(matches, q, nil, limit), nil
}
