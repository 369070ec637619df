// Package parser provides Markdown note parsing for the vault.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note is a parsed Markdown note.
type Note struct {
	// Frontmatter metadata (from YAML)
	Frontmatter map[string]any

	// Title extracted from frontmatter or the first h1
	Title string

	// Body after the frontmatter block
	Body string

	// Tags from frontmatter
	Tags []string
}

var h1Regex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// ParseNote parses a Markdown note into structured form. Malformed
// frontmatter is ignored rather than failing the note.
func ParseNote(content string) *Note {
	note := &Note{
		Frontmatter: make(map[string]any),
	}

	body := content
	if strings.HasPrefix(content, "---\n") {
		endIdx := strings.Index(content[4:], "\n---")
		if endIdx > 0 {
			frontmatterYAML := content[4 : 4+endIdx]
			body = strings.TrimPrefix(content[4+endIdx+4:], "\n")

			if err := yaml.Unmarshal([]byte(frontmatterYAML), &note.Frontmatter); err != nil {
				note.Frontmatter = make(map[string]any)
			}
		}
	}

	note.Body = body
	note.Title = extractTitle(note.Frontmatter, body)
	note.Tags = frontmatterStrings(note.Frontmatter, "tags")

	return note
}

// extractTitle gets the title from frontmatter or the first h1.
func extractTitle(fm map[string]any, body string) string {
	if title, ok := fm["title"].(string); ok && title != "" {
		return title
	}
	if match := h1Regex.FindStringSubmatch(body); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}

// frontmatterStrings extracts a string slice value from frontmatter.
func frontmatterStrings(fm map[string]any, key string) []string {
	switch v := fm[key].(type) {
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case []string:
		return v
	}
	return nil
}

var wikiLinkRegex = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// ExtractWikiLinks finds [[wiki-style]] note references in text, in first
// occurrence order, deduplicated.
func ExtractWikiLinks(text string) []string {
	matches := wikiLinkRegex.FindAllStringSubmatch(text, -1)

	links := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, match := range matches {
		link := strings.TrimSpace(match[1])
		if link != "" && !seen[link] {
			links = append(links, link)
			seen[link] = true
		}
	}
	return links
}
