package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// DefaultChunkSize is the number of documents indexed between two yields.
const DefaultChunkSize = 100

// Yielder hands control back to the scheduler between two chunks of work.
// A non-nil error aborts the work in progress.
type Yielder func(ctx context.Context) error

// CooperativeYield lets other goroutines run and reports cancellation.
func CooperativeYield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// BuildOptions configures token map construction.
type BuildOptions struct {
	// ChunkSize is the number of documents per chunk (DefaultChunkSize if zero).
	ChunkSize int

	// Yield is called between chunks (CooperativeYield if nil).
	Yield Yielder

	// Progress, if set, is called after each chunk with the number of
	// documents processed so far.
	Progress func(done, total int)
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Yield == nil {
		o.Yield = CooperativeYield
	}
	return o
}

// TokenMap is an inverted index from term to the ids of the documents whose
// title or content contain it. Posting lists are in document order.
//
// A TokenMap is built once and then only read. It must not be rebuilt while
// queries are using it; build a new one and swap instead.
type TokenMap struct {
	postings  map[string][]int
	terms     []string
	documents int
	skipped   int
}

// NewTokenMap returns an empty token map.
func NewTokenMap() *TokenMap {
	return &TokenMap{postings: make(map[string][]int)}
}

// Postings returns the ids of documents containing term.
func (m *TokenMap) Postings(term string) []int {
	if m == nil {
		return nil
	}
	return m.postings[term]
}

// Terms returns all indexed terms in sorted order.
func (m *TokenMap) Terms() []string {
	if m == nil {
		return nil
	}
	return m.terms
}

// Len returns the number of distinct terms.
func (m *TokenMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.postings)
}

// Documents returns the number of documents that were indexed.
// Zero after a non-empty input signals degraded service.
func (m *TokenMap) Documents() int {
	if m == nil {
		return 0
	}
	return m.documents
}

// Skipped returns the number of malformed documents that were skipped.
func (m *TokenMap) Skipped() int {
	if m == nil {
		return 0
	}
	return m.skipped
}

// Reset clears every posting list.
func (m *TokenMap) Reset() {
	m.postings = make(map[string][]int)
	m.terms = nil
	m.documents = 0
	m.skipped = 0
}

// Candidates returns the sorted, de-duplicated ids of documents reachable
// from any term for which match(token, term) holds for some token.
// It returns nil when no term matched at all.
func (m *TokenMap) Candidates(tokens []string, match func(token, term string) bool) []int {
	if m == nil || len(tokens) == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	for _, term := range m.terms {
		for _, tok := range tokens {
			if !match(tok, term) {
				continue
			}
			for _, id := range m.postings[term] {
				seen[id] = struct{}{}
			}
			break
		}
	}
	if len(seen) == 0 {
		return nil
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Rebuild clears the map and indexes docs chunk by chunk, strictly in
// document order, yielding between chunks. Malformed documents are skipped
// with a warning. On cancellation or an unexpected failure the map is left
// empty and the error is returned.
func (m *TokenMap) Rebuild(ctx context.Context, docs []domain.Document, opts BuildOptions) (err error) {
	opts = opts.withDefaults()
	m.Reset()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("token map: %v", r)
		}
		if err != nil {
			m.Reset()
		}
	}()

	total := len(docs)
	for start := 0; start < total; start += opts.ChunkSize {
		end := min(start+opts.ChunkSize, total)
		for i := start; i < end; i++ {
			m.add(&docs[i])
		}
		if opts.Progress != nil {
			opts.Progress(end, total)
		}
		if end < total {
			if err := opts.Yield(ctx); err != nil {
				return fmt.Errorf("token map interrupted after %d of %d documents: %w", end, total, err)
			}
		}
	}

	m.terms = make([]string, 0, len(m.postings))
	for term := range m.postings {
		m.terms = append(m.terms, term)
	}
	sort.Strings(m.terms)
	return nil
}

func (m *TokenMap) add(doc *domain.Document) {
	if doc.Malformed {
		m.skipped++
		logger.Warn("token map: skipping document %d: %v", doc.ID, domain.ErrInvalidDocument)
		return
	}
	for _, term := range Tokenize(doc.Title + " " + doc.Content) {
		m.postings[term] = append(m.postings[term], doc.ID)
	}
	m.documents++
}

// BuildTokenMap builds a token map for docs. It never fails: construction
// errors are logged and resolve to an empty map.
func BuildTokenMap(ctx context.Context, docs []domain.Document, opts BuildOptions) *TokenMap {
	m := NewTokenMap()
	if err := m.Rebuild(ctx, docs, opts); err != nil {
		logger.Warn("token map: %v", err)
	}
	logger.Debug("token map: %d terms from %d documents (%d skipped)", m.Len(), m.Documents(), m.Skipped())
	return m
}

// BuildTokenMapAsync builds a token map on a new goroutine. The returned
// channel receives exactly one map and is then closed.
func BuildTokenMapAsync(ctx context.Context, docs []domain.Document, opts BuildOptions) <-chan *TokenMap {
	out := make(chan *TokenMap, 1)
	go func() {
		defer close(out)
		out <- BuildTokenMap(ctx, docs, opts)
	}()
	return out
}
