// Package media stores uploaded images on the local filesystem.
//
// Layout: <root>/<category>/<entity id>/<uuid><ext> for feed photos and
// <root>/<category>/<uuid><ext> for profile and background pictures. The
// returned paths are relative to the store root; that is what goes into
// the database, and the /static/ file server serves the root, so
// "/static/" + stored path resolves to the file.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/scene-dev/storymap/internal/apperror"
)

// Store writes uploaded files under a root directory.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: creating upload root %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store's root directory, for wiring the static file
// server.
func (s *Store) Root() string { return s.root }

// EnsureDir creates <root>/<subdir> if needed and returns the
// root-relative subdir. Feed folders are created at feed creation even
// when no photos were attached, so later uploads have a home.
func (s *Store) EnsureDir(subdir string) (string, error) {
	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: creating directory %s: %w", dir, err)
	}
	return filepath.ToSlash(filepath.Clean(subdir)), nil
}

// Save writes one uploaded file into <root>/<subdir> under a fresh
// uuid-based name that keeps the original extension, and returns the
// stored path relative to the store root.
//
// The original filename is only consulted for its extension; the rest is
// discarded, so collisions and path tricks in client-supplied names
// can't reach the filesystem.
func (s *Store) Save(subdir, originalFilename string, r io.Reader) (string, error) {
	if strings.TrimSpace(originalFilename) == "" {
		return "", apperror.ValidationFailed("file", "no file selected")
	}

	ext := sanitizeExt(filepath.Ext(originalFilename))
	name := uuid.NewString() + ext

	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: creating directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	rel := filepath.ToSlash(filepath.Join(subdir, name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("media: creating file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		// Remove the partial file; a truncated image helps nobody.
		os.Remove(path)
		return "", fmt.Errorf("media: writing file %s: %w", path, err)
	}

	return rel, nil
}

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)

// sanitizeExt keeps simple alphanumeric extensions (".jpg", ".png") and
// drops anything else, the same spirit as werkzeug's secure_filename.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
