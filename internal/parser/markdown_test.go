package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNoteFrontmatter(t *testing.T) {
	note := ParseNote(`---
title: Release Plan
tags:
  - planning
  - v2
---
# Heading

Body text.`)

	assert.Equal(t, "Release Plan", note.Title)
	assert.Equal(t, []string{"planning", "v2"}, note.Tags)
	assert.Contains(t, note.Body, "Body text.")
	assert.NotContains(t, note.Body, "title:")
}

func TestParseNoteTitleFromH1(t *testing.T) {
	note := ParseNote("# My Note\n\ncontent")
	assert.Equal(t, "My Note", note.Title)
}

func TestParseNoteMalformedFrontmatter(t *testing.T) {
	note := ParseNote("---\n: : bad yaml [\n---\n\ncontent")
	assert.Empty(t, note.Frontmatter)
	assert.Contains(t, note.Body, "content")
}

func TestExtractWikiLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"none", "plain text", nil},
		{"single", "see [[roadmap]]", []string{"roadmap"}},
		{"dedup preserves order", "[[b]] then [[a]] then [[b]]", []string{"b", "a"}},
		{"trims whitespace", "[[ padded ]]", []string{"padded"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractWikiLinks(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
