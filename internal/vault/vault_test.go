package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNoteContentByFileName(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "Release Plan.md", "ship v2 in June")
	v := New(root, nil)

	content, err := v.NoteContent(context.Background(), "release-plan")
	require.NoError(t, err)
	assert.Equal(t, "ship v2 in June", content)
}

func TestNoteContentByFrontmatterTitle(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "misc/0042.md", "---\ntitle: Standup Notes\n---\nalice is out friday")
	v := New(root, nil)

	content, err := v.NoteContent(context.Background(), "Standup Notes")
	require.NoError(t, err)
	assert.Equal(t, "alice is out friday", content)
}

func TestNoteContentMissing(t *testing.T) {
	v := New(t.TempDir(), nil)
	_, err := v.NoteContent(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestNoteContentReflectsEdits(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "todo.md", "old content")
	v := New(root, nil)

	first, err := v.NoteContent(context.Background(), "todo")
	require.NoError(t, err)
	assert.Equal(t, "old content", first)

	writeNote(t, root, "todo.md", "new content")
	second, err := v.NoteContent(context.Background(), "todo")
	require.NoError(t, err)
	assert.Equal(t, "new content", second)
}

func TestListFolder(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "projects/beta.md", "# Beta Launch\n\nsoon")
	writeNote(t, root, "projects/alpha.md", "no heading here")
	writeNote(t, root, "projects/nested/deep.md", "excluded: not a direct child")
	writeNote(t, root, "projects/readme.txt", "not markdown")
	v := New(root, nil)

	titles, err := v.ListFolder(context.Background(), "projects")
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta Launch", "alpha"}, titles)
}

func TestListFolderMissing(t *testing.T) {
	v := New(t.TempDir(), nil)
	_, err := v.ListFolder(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestListFolderRejectsEscape(t *testing.T) {
	v := New(t.TempDir(), nil)
	_, err := v.ListFolder(context.Background(), "../outside")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}
