// Package html renders built HTML pages for the index builder. It reads the
// page title, the <h1>..<h6> headings with their id attributes and the
// readable text of the page, preferring the <main> element when present.
package html
