package html

import (
	"context"
	"html"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/slug"
)

// Ensure Renderer implements the interface.
var _ driven.PageRenderer = (*Renderer)(nil)

// Renderer handles HTML pages.
type Renderer struct{}

// New creates a new HTML renderer.
func New() *Renderer {
	return &Renderer{}
}

// Extensions returns the file extensions this renderer handles.
func (r *Renderer) Extensions() []string {
	return []string{".html", ".htm"}
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	mainTag           = regexp.MustCompile(`(?is)<main[^>]*>(.*)</main>`)
	headingTag        = regexp.MustCompile(`(?is)<h([1-6])([^>]*)>(.*?)</h[1-6]\s*>`)
	idAttr            = regexp.MustCompile(`(?i)\bid\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head(?:\s[^>]*)?>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag            = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
	multiNewlines     = regexp.MustCompile(`\n{3,}`)
)

// Render converts an HTML page to plain text with its headings.
// Headings without an id get a generated one.
func (r *Renderer) Render(_ context.Context, source string, content []byte) (*domain.Page, error) {
	doc := string(content)

	page := &domain.Page{
		Source: source,
		Path:   "/" + strings.TrimPrefix(path.Clean("/"+source), "/"),
	}

	if m := titleTag.FindStringSubmatch(doc); m != nil {
		page.Title = inlineText(m[1])
	}

	body := headTag.ReplaceAllString(doc, "")
	if m := mainTag.FindStringSubmatch(body); m != nil {
		body = m[1]
	} else {
		body = navTag.ReplaceAllString(body, "")
	}

	page.Headings = headings(body)
	page.Content = stripHTML(body)

	if page.Title == "" {
		for _, h := range page.Headings {
			if h.Level == 1 {
				page.Title = h.Text
				break
			}
		}
	}
	if page.Title == "" {
		page.Title = titleFromFile(source)
	}
	return page, nil
}

// headings extracts the page headings in document order.
func headings(body string) []domain.Heading {
	matches := headingTag.FindAllStringSubmatch(body, -1)
	slugs := slug.New()
	for _, m := range matches {
		if id := attrID(m[2]); id != "" {
			slugs.Reserve(id)
		}
	}

	result := make([]domain.Heading, 0, len(matches))
	for _, m := range matches {
		level, _ := strconv.Atoi(m[1])
		text := inlineText(m[3])
		id := attrID(m[2])
		if id == "" {
			id = slugs.Heading(text)
		}
		result = append(result, domain.Heading{Text: text, Level: level, AnchorID: id})
	}
	return result
}

func attrID(attrs string) string {
	m := idAttr.FindStringSubmatch(attrs)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return html.UnescapeString(m[1])
	}
	return html.UnescapeString(m[2])
}

// inlineText returns the text of an inline fragment on one line.
func inlineText(fragment string) string {
	text := html.UnescapeString(allTags.ReplaceAllString(fragment, ""))
	return strings.Join(strings.Fields(text), " ")
}

// stripHTML removes HTML tags and extracts readable text content.
func stripHTML(content string) string {
	// Remove script, style, noscript and svg tags entirely
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")

	content = htmlComments.ReplaceAllString(content, "")

	// Block elements start and end lines
	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	content = multiSpaces.ReplaceAllString(content, " ")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// titleFromFile derives a title from the file name.
func titleFromFile(source string) string {
	name := path.Base(source)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
