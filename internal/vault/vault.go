// Package vault provides read access to a directory of Markdown notes.
//
// The vault is a context source collaborator: the resolver asks it for
// current note content and folder listings on every resolution, so edits to
// notes on disk are always reflected in the next model call.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/raphaelgruber/converse-go/internal/models"
	"github.com/raphaelgruber/converse-go/internal/parser"
)

// Sentinel errors for vault lookups.
var (
	// ErrNoteNotFound indicates no note in the vault matches the slug.
	ErrNoteNotFound = errors.New("note not found")

	// ErrFolderNotFound indicates the folder does not exist under the vault root.
	ErrFolderNotFound = errors.New("folder not found")
)

// Vault reads Markdown notes from a directory tree.
type Vault struct {
	root   string
	logger *slog.Logger
}

// New creates a vault rooted at dir.
func New(dir string, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{root: dir, logger: logger}
}

// Root returns the vault's root directory.
func (v *Vault) Root() string {
	return v.root
}

// NoteContent returns the current body of the note matching slug. A note
// matches when its slugified file name or frontmatter title equals the
// slugified reference.
func (v *Vault) NoteContent(ctx context.Context, slug string) (string, error) {
	want := models.Slugify(slug)

	path, err := v.findNote(ctx, want)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	}

	return parser.ParseNote(string(raw)).Body, nil
}

// ListFolder returns the titles of notes directly under the given folder,
// sorted. The path is relative to the vault root.
func (v *Vault) ListFolder(ctx context.Context, path string) ([]string, error) {
	dir := filepath.Join(v.root, filepath.Clean(path))
	if !strings.HasPrefix(dir, filepath.Clean(v.root)) {
		return nil, fmt.Errorf("%w: %s escapes the vault", ErrFolderNotFound, path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, path)
	}

	var titles []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !isMarkdown(entry.Name()) {
			continue
		}
		titles = append(titles, noteTitle(filepath.Join(dir, entry.Name())))
	}

	sort.Strings(titles)
	return titles, nil
}

// findNote walks the vault for the first note matching the wanted slug.
// File name matches are cheap and checked first; title matches require
// parsing the note.
func (v *Vault) findNote(ctx context.Context, want string) (string, error) {
	var found string

	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isMarkdown(d.Name()) {
			return nil
		}

		base := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if models.Slugify(base) == want {
			found = p
			return fs.SkipAll
		}

		raw, err := os.ReadFile(p)
		if err != nil {
			v.logger.Warn("unreadable note skipped", "path", p, "error", err)
			return nil
		}
		if title := parser.ParseNote(string(raw)).Title; title != "" && models.Slugify(title) == want {
			found = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan vault: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrNoteNotFound, want)
	}
	return found, nil
}

// noteTitle returns the note's display title, falling back to the file name.
func noteTitle(path string) string {
	raw, err := os.ReadFile(path)
	if err == nil {
		if title := parser.ParseNote(string(raw)).Title; title != "" {
			return title
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func isMarkdown(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".md" || ext == ".markdown"
}
