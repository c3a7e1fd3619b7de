// Package domain defines the core entities for docsearch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: One indexed page of the rendered documentation
//   - Anchor: One indexed heading within a Document
//   - Page: A rendered page as produced by a renderer, before indexing
//   - Match: A ranked search hit with its matching anchors
//   - Settings: Build, search and artifact configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
