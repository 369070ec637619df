// Package resolver turns a message's attached context references into the
// text block merged into its model-facing processed text.
//
// Resolution is deliberately stateless: every call re-reads the current
// content of notes, pages and folders, because sources may have changed since
// the context was attached. References that cannot be resolved degrade to an
// inline marker instead of failing the whole resolution.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// NoteSource looks up current note content by slug.
type NoteSource interface {
	NoteContent(ctx context.Context, slug string) (string, error)
}

// PageFetcher fetches a URL and extracts its readable text.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// FolderSource lists the note titles under a vault folder.
type FolderSource interface {
	ListFolder(ctx context.Context, path string) ([]string, error)
}

// Resolver resolves context references against live sources.
type Resolver struct {
	notes   NoteSource
	pages   PageFetcher
	folders FolderSource
	logger  *slog.Logger
}

// New creates a resolver. Any source may be nil; references of that kind then
// degrade to markers.
func New(notes NoteSource, pages PageFetcher, folders FolderSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{notes: notes, pages: pages, folders: folders, logger: logger}
}

// Resolve produces the context block for the given references. Notes, URLs
// and folders are resolved in sorted order so an unchanged context always
// yields identical output; selections keep their attachment order.
func (r *Resolver) Resolve(ctx context.Context, c models.Context) string {
	if c.IsEmpty() {
		return ""
	}

	var sections []string

	for _, slug := range sortedSet(c.Notes) {
		sections = append(sections, r.resolveNote(ctx, slug))
	}
	for _, url := range sortedSet(c.URLs) {
		sections = append(sections, r.resolvePage(ctx, url))
	}
	for _, path := range sortedSet(c.Folders) {
		sections = append(sections, r.resolveFolder(ctx, path))
	}
	if len(c.Tags) > 0 {
		sections = append(sections, "Tags: "+strings.Join(sortedSet(c.Tags), ", "))
	}
	for _, sel := range c.Selections {
		sections = append(sections, "Selected text:\n"+sel)
	}

	return strings.Join(sections, "\n\n")
}

func (r *Resolver) resolveNote(ctx context.Context, slug string) string {
	if r.notes == nil {
		return degraded("note", slug)
	}
	content, err := r.notes.NoteContent(ctx, slug)
	if err != nil {
		r.logger.Warn("context note unresolvable", "note", slug, "error", err)
		return degraded("note", slug)
	}
	return fmt.Sprintf("Note %q:\n%s", slug, strings.TrimSpace(content))
}

func (r *Resolver) resolvePage(ctx context.Context, url string) string {
	if r.pages == nil {
		return degraded("url", url)
	}
	text, err := r.pages.FetchPage(ctx, url)
	if err != nil {
		r.logger.Warn("context url unresolvable", "url", url, "error", err)
		return degraded("url", url)
	}
	return fmt.Sprintf("Page %s:\n%s", url, strings.TrimSpace(text))
}

func (r *Resolver) resolveFolder(ctx context.Context, path string) string {
	if r.folders == nil {
		return degraded("folder", path)
	}
	entries, err := r.folders.ListFolder(ctx, path)
	if err != nil {
		r.logger.Warn("context folder unresolvable", "folder", path, "error", err)
		return degraded("folder", path)
	}
	return fmt.Sprintf("Folder %q: %s", path, strings.Join(entries, ", "))
}

// degraded renders the inline marker for an unresolvable reference.
func degraded(kind, ref string) string {
	return fmt.Sprintf("[%s unavailable: %s]", kind, ref)
}

// sortedSet deduplicates and sorts reference sets for deterministic output.
func sortedSet(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
