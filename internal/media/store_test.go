package media

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scene-dev/storymap/internal/apperror"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestSave_WritesFileUnderSubdir(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save(filepath.Join("feed_folders", "feed-1"), "photo.JPG", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !strings.Contains(path, "feed_folders/feed-1/") {
		t.Errorf("Save() path = %q, want it under feed_folders/feed-1/", path)
	}
	if !strings.HasSuffix(path, ".jpg") {
		t.Errorf("Save() path = %q, want lowercased .jpg extension", path)
	}

	data, err := os.ReadFile(filepath.Join(s.Root(), filepath.FromSlash(path)))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("stored contents = %q, want %q", data, "image-bytes")
	}
}

func TestSave_EmptyFilename(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("profile_pics", "  ", strings.NewReader("x"))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Save() error = %v, want ErrValidation", err)
	}
}

func TestSave_DistinctNamesForSameFilename(t *testing.T) {
	s := newTestStore(t)

	p1, err := s.Save("profile_pics", "me.png", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	p2, err := s.Save("profile_pics", "me.png", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if p1 == p2 {
		t.Errorf("Save() reused the path %q for two uploads", p1)
	}
}

func TestSanitizeExt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{".jpg", ".jpg"},
		{".PNG", ".png"},
		{"", ""},
		{".php.jpg", ""},     // filepath.Ext never produces this, but belt and braces
		{".j pg", ""},        // whitespace
		{"../../etc", ""},    // traversal junk
	}
	for _, tt := range tests {
		if got := sanitizeExt(tt.in); got != tt.want {
			t.Errorf("sanitizeExt(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
