package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/raphaelgruber/converse-go/internal/models"
	"github.com/stretchr/testify/assert"
)

type fakeNotes map[string]string

func (f fakeNotes) NoteContent(_ context.Context, slug string) (string, error) {
	content, ok := f[slug]
	if !ok {
		return "", errors.New("no such note")
	}
	return content, nil
}

type fakePages map[string]string

func (f fakePages) FetchPage(_ context.Context, url string) (string, error) {
	text, ok := f[url]
	if !ok {
		return "", errors.New("unreachable")
	}
	return text, nil
}

type fakeFolders map[string][]string

func (f fakeFolders) ListFolder(_ context.Context, path string) ([]string, error) {
	entries, ok := f[path]
	if !ok {
		return nil, errors.New("no such folder")
	}
	return entries, nil
}

func TestResolveEmptyContext(t *testing.T) {
	r := New(nil, nil, nil, nil)
	assert.Equal(t, "", r.Resolve(context.Background(), models.Context{}))
}

func TestResolveReadsAllSourceKinds(t *testing.T) {
	r := New(
		fakeNotes{"roadmap": "ship v2 in June"},
		fakePages{"https://example.com": "Example Domain"},
		fakeFolders{"projects": {"roadmap", "retro"}},
		nil,
	)

	got := r.Resolve(context.Background(), models.Context{
		Notes:      []string{"roadmap"},
		URLs:       []string{"https://example.com"},
		Folders:    []string{"projects"},
		Tags:       []string{"planning"},
		Selections: []string{"the selected words"},
	})

	assert.Contains(t, got, "Note \"roadmap\":\nship v2 in June")
	assert.Contains(t, got, "Page https://example.com:\nExample Domain")
	assert.Contains(t, got, "Folder \"projects\": roadmap, retro")
	assert.Contains(t, got, "Tags: planning")
	assert.Contains(t, got, "Selected text:\nthe selected words")
}

func TestResolveDegradesUnresolvableReferences(t *testing.T) {
	r := New(fakeNotes{}, fakePages{}, fakeFolders{}, nil)

	got := r.Resolve(context.Background(), models.Context{
		Notes: []string{"deleted-note"},
		URLs:  []string{"https://gone.invalid"},
	})

	assert.Contains(t, got, "[note unavailable: deleted-note]")
	assert.Contains(t, got, "[url unavailable: https://gone.invalid]")
}

func TestResolveIsDeterministicForUnchangedSources(t *testing.T) {
	r := New(fakeNotes{"a": "alpha", "b": "beta"}, nil, nil, nil)

	// Reference order and duplicates must not affect output.
	first := r.Resolve(context.Background(), models.Context{Notes: []string{"b", "a", "b"}})
	second := r.Resolve(context.Background(), models.Context{Notes: []string{"a", "b"}})

	assert.Equal(t, first, second)
}

func TestResolveRereadsSources(t *testing.T) {
	notes := fakeNotes{"n": "before"}
	r := New(notes, nil, nil, nil)
	refs := models.Context{Notes: []string{"n"}}

	assert.Contains(t, r.Resolve(context.Background(), refs), "before")

	notes["n"] = "after"
	assert.Contains(t, r.Resolve(context.Background(), refs), "after",
		"resolution reflects current source content, not a cached copy")
}
