package engine

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// DefaultSnippetWidth is the snippet window in bytes.
const DefaultSnippetWidth = 160

// Engine answers queries over one immutable document set.
// It is safe for concurrent use.
type Engine struct {
	docs         []domain.Document
	lower        []loweredDoc
	tokens       *TokenMap
	matcher      *Matcher
	w            domain.ScoringWeights
	pruning      bool
	snippetWidth int
}

type loweredDoc struct {
	title      string
	content    string
	titleLen   int
	contentLen int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTokenMap attaches an inverted index used to restrict pass one.
func WithTokenMap(tm *TokenMap) Option {
	return func(e *Engine) { e.tokens = tm }
}

// WithWeights replaces the default scoring weights.
func WithWeights(w domain.ScoringWeights) Option {
	return func(e *Engine) { e.w = w }
}

// WithPruning enables or disables token map candidate pruning.
func WithPruning(enabled bool) Option {
	return func(e *Engine) { e.pruning = enabled }
}

// WithSnippetWidth sets the snippet window in bytes.
func WithSnippetWidth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.snippetWidth = n
		}
	}
}

// New creates an engine over docs. A nil slice means "not loaded": every
// query then fails with domain.ErrArtifactNotLoaded.
func New(docs []domain.Document, opts ...Option) *Engine {
	e := &Engine{
		docs:         docs,
		w:            domain.DefaultScoringWeights(),
		pruning:      true,
		snippetWidth: DefaultSnippetWidth,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.matcher = NewMatcher(e.w)

	e.lower = make([]loweredDoc, len(docs))
	for i := range docs {
		ld := loweredDoc{
			title:   strings.ToLower(docs[i].Title),
			content: strings.ToLower(docs[i].Content),
		}
		ld.titleLen = utf8.RuneCountInString(ld.title)
		ld.contentLen = utf8.RuneCountInString(ld.content)
		e.lower[i] = ld
	}
	return e
}

// Documents returns the document set the engine searches.
func (e *Engine) Documents() []domain.Document {
	return e.docs
}

// TokenMap returns the attached token map, or nil.
func (e *Engine) TokenMap() *TokenMap {
	return e.tokens
}

// Search returns at most limit matches ordered by descending page score.
//
// Pass one scores every candidate page. Only pages scoring above the page
// threshold survive, and only after all pages are scored does pass two
// collect their matching anchors. Malformed queries yield fewer or no
// results, never an error.
func (e *Engine) Search(query string, limit int) ([]domain.Match, error) {
	if e == nil || e.docs == nil {
		return nil, domain.ErrArtifactNotLoaded
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []domain.Match{}, nil
	}
	useFuzzy := utf8.RuneCountInString(q) >= e.w.MinFuzzyQueryLen
	tokens := Tokenize(q)

	// Pass one.
	matches := make([]domain.Match, 0)
	for _, i := range e.candidates(q, tokens, useFuzzy) {
		if e.docs[i].Malformed {
			continue
		}
		score := e.pageScore(q, tokens, i, useFuzzy)
		if score > e.w.PageThreshold {
			matches = append(matches, domain.Match{Document: e.docs[i], PageScore: score})
		}
	}

	// Pass two, over survivors only.
	for i := range matches {
		matches[i].MatchingAnchors = e.matchAnchors(q, tokens, matches[i].Document.Anchors, useFuzzy)
	}

	return e.finish(matches, q, tokens, limit), nil
}

// pageScore accumulates every pass-one signal for document i.
// Fuzzy, typo and exact-token contributions compound.
func (e *Engine) pageScore(q string, tokens []string, i int, useFuzzy bool) float64 {
	ld := &e.lower[i]
	score := 0.0

	if useFuzzy {
		if f, ok := e.matcher.fuzzyLower(q, ld.title); ok {
			score += f * e.w.TitleFuzzy
		} else if t, ok := e.matcher.typoLower(q, ld.title, e.w.TitleTypo); ok {
			score += t
		}

		if f, ok := e.matcher.fuzzyLower(q, ld.content); ok {
			score += f * e.w.ContentFuzzy
		} else if t, ok := e.matcher.typoLower(q, ld.content, e.w.ContentTypo); ok {
			score += t
		}
	}

	for _, tok := range tokens {
		if strings.Contains(ld.title, tok) {
			if ld.title == tok {
				score += e.w.TitleExactToken
			} else {
				score += e.w.TitleToken
			}
		}
		if strings.Contains(ld.content, tok) {
			score += e.w.ContentToken
		}
	}
	return score
}

// matchAnchors returns the anchors matching the query, in heading order.
func (e *Engine) matchAnchors(q string, tokens []string, anchors []domain.Anchor, useFuzzy bool) []domain.Anchor {
	var out []domain.Anchor
	for _, a := range anchors {
		text := strings.ToLower(a.Text)
		matched := false
		if useFuzzy {
			if f, ok := e.matcher.fuzzyLower(q, text); ok && f >= e.w.AnchorFuzzy {
				matched = true
			}
		}
		if !matched {
			for _, tok := range tokens {
				if strings.Contains(text, tok) {
					matched = true
					break
				}
			}
		}
		if matched {
			out = append(out, a)
		}
	}
	return out
}

// candidates returns the document positions pass one must evaluate.
// With a token map, these are the documents reachable through terms that a
// query token matches at term level, plus every document whose whole title
// or content could still score a fuzzy or typo match. The result holds
// every page a full scan would keep. When no term matches, or there is no
// token map, every document is evaluated.
func (e *Engine) candidates(q string, tokens []string, useFuzzy bool) []int {
	if !e.pruning || e.tokens == nil || e.tokens.Documents() == 0 {
		return e.all()
	}

	ids := e.tokens.Candidates(tokens, func(tok, term string) bool {
		if strings.Contains(term, tok) {
			return true
		}
		if !useFuzzy {
			return false
		}
		if isSubsequence(tok, term) {
			return true
		}
		_, ok := e.matcher.typoLower(tok, term, 1)
		return ok
	})
	if ids == nil {
		return e.all()
	}

	reached := make([]bool, len(e.docs))
	for _, id := range ids {
		if id >= 0 && id < len(e.docs) {
			reached[id] = true
		}
	}

	qLen := utf8.RuneCountInString(q)
	out := make([]int, 0, len(ids))
	for i := range e.docs {
		if reached[i] || (useFuzzy && e.mayMatchWhole(q, qLen, i)) {
			out = append(out, i)
		}
	}
	return out
}

// mayMatchWhole reports whether the whole-string fuzzy or typo signals can
// fire for document i. Fuzzy needs q as a subsequence; typo needs the
// lengths within the tolerance window.
func (e *Engine) mayMatchWhole(q string, qLen, i int) bool {
	ld := &e.lower[i]
	if abs(qLen-ld.titleLen) <= e.w.MaxLengthGap || abs(qLen-ld.contentLen) <= e.w.MaxLengthGap {
		return true
	}
	return isSubsequence(q, ld.title) || isSubsequence(q, ld.content)
}

func (e *Engine) all() []int {
	all := make([]int, len(e.docs))
	for i := range all {
		all[i] = i
	}
	return all
}

// finish orders matches, applies the limit and attaches snippets.
// Ties keep document order.
func (e *Engine) finish(matches []domain.Match, q string, tokens []string, limit int) []domain.Match {
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].PageScore > matches[b].PageScore
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	terms := tokens
	if len(terms) == 0 {
		terms = []string{q}
	}
	for i := range matches {
		matches[i].Snippet = MakeSnippet(matches[i].Document.Content, terms, e.snippetWidth)
	}
	return matches
}
