// Package engine implements the fuzzy query engine behind docsearch.
//
// It is pure computation over an immutable document set:
//
//   - Tokenize splits text into normalised search terms
//   - Matcher scores ordered-subsequence (fuzzy) matches and typo tolerance
//   - TokenMap is the inverted index, built in bounded chunks
//   - Engine runs the two-pass scoring protocol and the fallback scorer
//   - MakeSnippet cuts highlighted excerpts for presentation
//
// Nothing in this package blocks on I/O. Token map construction yields to
// the scheduler between chunks through a Yielder so a caller sharing the
// goroutine with interactive work is never held for more than one chunk.
//
// # Import Rules
//
//   - Can Import: domain, logger
//   - Cannot Import: ports, services, adapters
package engine
