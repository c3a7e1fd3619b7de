// Package markdown renders Markdown documentation pages for the index
// builder. It extracts ATX and setext headings with their anchor ids,
// {{#include}} directives and the page body as plain text.
package markdown
