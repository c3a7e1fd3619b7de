// Package slug generates GitHub-style heading anchor ids.
package slug

import (
	"strconv"
	"strings"
	"unicode"
)

// Make converts heading text to an anchor id: lower-cased, with everything
// but letters, digits, spaces, hyphens and underscores removed and spaces
// turned into hyphens.
func Make(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// Slugger hands out unique ids within one page. Repeated ids get a numeric
// suffix: intro, intro-1, intro-2.
type Slugger struct {
	seen map[string]int
}

// New creates an empty Slugger.
func New() *Slugger {
	return &Slugger{seen: make(map[string]int)}
}

// Reserve records an explicit id so that generated ids avoid it.
func (s *Slugger) Reserve(id string) {
	if _, ok := s.seen[id]; !ok {
		s.seen[id] = 0
	}
}

// Unique returns id, suffixed if it was handed out or reserved before.
func (s *Slugger) Unique(id string) string {
	n, dup := s.seen[id]
	if !dup {
		s.seen[id] = 0
		return id
	}
	for {
		n++
		candidate := id + "-" + strconv.Itoa(n)
		if _, taken := s.seen[candidate]; !taken {
			s.seen[id] = n
			s.seen[candidate] = 0
			return candidate
		}
	}
}

// Heading returns a unique id for heading text. Text without any usable
// characters yields "section".
func (s *Slugger) Heading(text string) string {
	id := Make(text)
	if id == "" {
		id = "section"
	}
	return s.Unique(id)
}
