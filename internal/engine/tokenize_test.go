package engine

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"short words dropped", "a an of to", []string{}},
		{"lowercased and sorted", "Zebra apple Mango", []string{"apple", "mango", "zebra"}},
		{"deduplicated", "Install install INSTALL", []string{"install"}},
		{"hyphen and underscore kept", "max_heading_level well-known", []string{"max_heading_level", "well-known"}},
		{"punctuation splits", "foo.bar,baz", []string{"bar", "baz", "foo"}},
		{"digits", "v123 42", []string{"v123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestTokenize_Properties(t *testing.T) {
	inputs := []string{
		"Getting Started with the CLI",
		"install guide: install, configure; run!",
		"ÄÖÜ unicode café résumé",
		"   ",
	}
	for _, in := range inputs {
		got := Tokenize(in)
		assert.NotNil(t, got)
		assert.True(t, sort.StringsAreSorted(got), in)

		seen := map[string]bool{}
		for _, tok := range got {
			assert.GreaterOrEqual(t, len(tok), MinTokenLength)
			assert.False(t, seen[tok], "duplicate %q", tok)
			seen[tok] = true
		}
	}
}
