// Package normalisers holds the page renderers used by the index builder.
// Each renderer turns one documentation source format into a domain.Page
// with plain text and headings.
//
// Renderers are registered with a Registry at startup; Default returns a
// registry with every built-in renderer.
package normalisers
