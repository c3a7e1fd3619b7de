package markdown

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/slug"
)

// Ensure Renderer implements the interface.
var _ driven.PageRenderer = (*Renderer)(nil)

// Renderer handles Markdown pages.
type Renderer struct{}

// New creates a new Markdown renderer.
func New() *Renderer {
	return &Renderer{}
}

// Extensions returns the file extensions this renderer handles.
func (r *Renderer) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Pre-compiled regular expressions for Markdown parsing.
var (
	atxHeading    = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?(?:[ \t]+#+)?[ \t]*$`)
	customID      = regexp.MustCompile(`[ \t]*\{#([^}\s]+)\}[ \t]*$`)
	setextH1      = regexp.MustCompile(`^ {0,3}=+[ \t]*$`)
	setextH2      = regexp.MustCompile(`^ {0,3}-+[ \t]*$`)
	fence         = regexp.MustCompile("^ {0,3}(```+|~~~+)")
	includeDir    = regexp.MustCompile(`\{\{#include\s+([^}\s]+)[^}]*\}\}`)
	frontTitle    = regexp.MustCompile(`(?m)^title:\s*["']?(.*?)["']?\s*$`)
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLinks      = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	linkDefs      = regexp.MustCompile(`^ {0,3}\[[^\]]+\]:\s+\S+.*$`)
	inlineCode    = regexp.MustCompile("`+([^`]*)`+")
	starEmphasis  = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	underEmphasis = regexp.MustCompile(`(^|\W)_{1,3}([^_]+)_{1,3}(\W|$)`)
	htmlTags      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	blockquote    = regexp.MustCompile(`^ {0,3}>\s?`)
	listMarker    = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
	horizontalHR  = regexp.MustCompile(`^ {0,3}([-*_])(?:[ \t]*([-*_])){2,}[ \t]*$`)
	tableDivider  = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	frontMatterRe = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n`)
)

// Render converts a Markdown page to plain text with its headings.
func (r *Renderer) Render(_ context.Context, source string, content []byte) (*domain.Page, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")

	page := &domain.Page{
		Source: source,
		Path:   PagePath(source),
	}

	if m := frontMatterRe.FindStringSubmatchIndex(text); m != nil {
		if t := frontTitle.FindStringSubmatch(text[m[2]:m[3]]); t != nil {
			page.Title = strings.TrimSpace(t[1])
		}
		text = text[m[1]:]
	}

	p := parser{page: page, source: source, slugs: slug.New()}
	p.reserveExplicitIDs(text)
	for _, line := range strings.Split(text, "\n") {
		p.line(line)
	}
	p.flush()

	page.Content = strings.Join(p.body, "\n")
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

// parser walks a page line by line.
type parser struct {
	page   *domain.Page
	source string
	slugs  *slug.Slugger

	body    []string
	pending string // last paragraph line, a setext heading candidate
	inFence string
}

// reserveExplicitIDs registers every {#id} up front so that generated ids
// never collide with an explicit one further down the page.
func (p *parser) reserveExplicitIDs(text string) {
	for _, line := range strings.Split(text, "\n") {
		if m := atxHeading.FindStringSubmatch(line); m != nil {
			if id := customID.FindStringSubmatch(m[2]); id != nil {
				p.slugs.Reserve(id[1])
			}
		}
	}
}

func (p *parser) line(line string) {
	if p.inFence != "" {
		if strings.HasPrefix(strings.TrimSpace(line), p.inFence) {
			p.inFence = ""
			return
		}
		p.addBody(line)
		return
	}
	if m := fence.FindStringSubmatch(line); m != nil {
		p.flush()
		p.inFence = m[1][:3]
		return
	}

	if matches := includeDir.FindAllStringSubmatch(line, -1); matches != nil {
		for _, m := range matches {
			p.include(m[1])
		}
		line = includeDir.ReplaceAllString(line, "")
		if strings.TrimSpace(line) == "" {
			p.flush()
			return
		}
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		p.flush()
	case p.pending != "" && setextH1.MatchString(line):
		p.heading(1, p.pending)
		p.pending = ""
	case p.pending != "" && setextH2.MatchString(line):
		p.heading(2, p.pending)
		p.pending = ""
	case atxHeading.MatchString(line):
		p.flush()
		m := atxHeading.FindStringSubmatch(line)
		p.heading(len(m[1]), m[2])
	case horizontalHR.MatchString(line), tableDivider.MatchString(line) && strings.Contains(line, "-"),
		linkDefs.MatchString(line):
		p.flush()
	default:
		p.flush()
		p.pending = line
	}
}

// flush moves the pending paragraph line into the body.
func (p *parser) flush() {
	if p.pending != "" {
		p.addBody(p.pending)
		p.pending = ""
	}
}

func (p *parser) addBody(line string) {
	if text := stripInline(blockquote.ReplaceAllString(listMarker.ReplaceAllString(line, ""), "")); text != "" {
		p.body = append(p.body, text)
	}
}

func (p *parser) heading(level int, raw string) {
	var id string
	if m := customID.FindStringSubmatchIndex(raw); m != nil {
		id = raw[m[2]:m[3]]
		raw = raw[:m[0]]
	}

	text := stripInline(raw)
	if id == "" {
		id = p.slugs.Heading(text)
	}
	p.page.Headings = append(p.page.Headings, domain.Heading{Text: text, Level: level, AnchorID: id})
	if text != "" {
		p.body = append(p.body, text)
	}
}

// include records an include target relative to the including page.
// Line ranges and anchors after ":" are ignored.
func (p *parser) include(target string) {
	target, _, _ = strings.Cut(target, ":")
	resolved := path.Clean(path.Join(path.Dir(p.source), target))
	if strings.HasPrefix(resolved, "../") || resolved == ".." {
		return
	}
	p.page.Includes = append(p.page.Includes, resolved)
}

// stripInline removes inline Markdown formatting from a line of text.
func stripInline(s string) string {
	s = images.ReplaceAllString(s, "$1")
	s = links.ReplaceAllString(s, "$1")
	s = refLinks.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = starEmphasis.ReplaceAllString(s, "$1")
	s = underEmphasis.ReplaceAllString(s, "$1$2$3")
	s = htmlTags.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\\", "")
	s = strings.ReplaceAll(s, "|", " ")
	s = multiSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// PagePath maps a Markdown source to the site-relative URL of its rendered
// page: guide/install.md becomes /guide/install.html and README.md an
// index.html.
func PagePath(source string) string {
	dir, file := path.Split(source)
	base := strings.TrimSuffix(file, path.Ext(file))
	if strings.EqualFold(base, "readme") {
		base = "index"
	}
	return "/" + dir + base + ".html"
}

// titleFromFile derives a title from the file name.
func titleFromFile(source string) string {
	name := path.Base(source)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
