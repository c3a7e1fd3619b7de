package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

func render(t *testing.T, source, content string) *domain.Page {
	t.Helper()
	page, err := New().Render(context.Background(), source, []byte(content))
	require.NoError(t, err)
	require.NotNil(t, page)
	return page
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".md", ".markdown"}, New().Extensions())
}

func TestRender_HeadingsAndBody(t *testing.T) {
	page := render(t, "guide/install.md", `# Installation

Install the **CLI** with [the script](https://example.com/install.sh).

## Requirements

- Go 1.24
- A terminal

### Linux {#linux-setup}

Use `+"`apt install docsearch`"+`.

## Requirements
`)

	assert.Equal(t, "guide/install.md", page.Source)
	assert.Equal(t, "/guide/install.html", page.Path)
	assert.Equal(t, "Installation", page.Title)
	assert.Equal(t, []domain.Heading{
		{Text: "Installation", Level: 1, AnchorID: "installation"},
		{Text: "Requirements", Level: 2, AnchorID: "requirements"},
		{Text: "Linux", Level: 3, AnchorID: "linux-setup"},
		{Text: "Requirements", Level: 2, AnchorID: "requirements-1"},
	}, page.Headings)

	assert.Contains(t, page.Content, "Install the CLI with the script.")
	assert.Contains(t, page.Content, "Go 1.24")
	assert.Contains(t, page.Content, "Use apt install docsearch.")
	assert.NotContains(t, page.Content, "**")
	assert.NotContains(t, page.Content, "https://")
	assert.Empty(t, page.Includes)
}

func TestRender_SetextHeadings(t *testing.T) {
	page := render(t, "a.md", "Title\n=====\n\nBody text.\n\nSubsection\n----------\n\nMore.\n")

	assert.Equal(t, "Title", page.Title)
	assert.Equal(t, []domain.Heading{
		{Text: "Title", Level: 1, AnchorID: "title"},
		{Text: "Subsection", Level: 2, AnchorID: "subsection"},
	}, page.Headings)
	assert.Equal(t, "Title\nBody text.\nSubsection\nMore.", page.Content)
}

func TestRender_FencedCodeIsNotParsed(t *testing.T) {
	page := render(t, "a.md", "# Shell\n\n```sh\n# not a heading\nnpm install\n```\n\nAfter.\n")

	require.Len(t, page.Headings, 1)
	assert.Contains(t, page.Content, "# not a heading")
	assert.Contains(t, page.Content, "npm install")
	assert.Contains(t, page.Content, "After.")
}

func TestRender_Includes(t *testing.T) {
	page := render(t, "guide/setup.md", `# Setup

{{#include ../shared/requirements.md}}

Intro {{#include parts/linux.md:10:20}} text.

{{#include ../../outside.md}}
`)

	assert.Equal(t, []string{"shared/requirements.md", "guide/parts/linux.md"}, page.Includes)
	assert.NotContains(t, page.Content, "{{#include")
	assert.Contains(t, page.Content, "Intro text.")
}

func TestRender_ExplicitIDsAreReserved(t *testing.T) {
	page := render(t, "a.md", "## Setup\n\n## Other {#setup}\n")

	assert.Equal(t, "setup-1", page.Headings[0].AnchorID)
	assert.Equal(t, "setup", page.Headings[1].AnchorID)
}

func TestRender_FrontMatterTitle(t *testing.T) {
	page := render(t, "a.md", "---\ntitle: \"Front Title\"\nweight: 2\n---\n# Heading\n\nBody.\n")

	assert.Equal(t, "Front Title", page.Title)
	assert.NotContains(t, page.Content, "weight")
}

func TestRender_TitleFromFile(t *testing.T) {
	page := render(t, "docs/getting_started-guide.md", "Just text.\n")

	assert.Equal(t, "getting started guide", page.Title)
	assert.Empty(t, page.Headings)
}

func TestRender_KeepsSnakeCase(t *testing.T) {
	page := render(t, "a.md", "Set max_heading_level to _three_ or *four*.\n")

	assert.Equal(t, "Set max_heading_level to three or four.", page.Content)
}

func TestRender_CRLF(t *testing.T) {
	page := render(t, "a.md", "# Title\r\n\r\nBody\r\n")

	assert.Equal(t, "Title", page.Title)
	assert.Equal(t, "Title\nBody", page.Content)
}

func TestPagePath(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"index.md", "/index.html"},
		{"README.md", "/index.html"},
		{"guide/README.md", "/guide/index.html"},
		{"guide/install.md", "/guide/install.html"},
		{"notes.markdown", "/notes.html"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, PagePath(tt.source))
		})
	}
}
