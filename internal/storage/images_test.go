package storage

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngPayload(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf
}

func TestSave_StoresImageWithUUIDName(t *testing.T) {
	store, err := NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("new image store: %v", err)
	}

	name, err := store.Save(pngPayload(t))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Fatalf("expected .png suffix, got %q", name)
	}
	if strings.Contains(name, string(os.PathSeparator)) {
		t.Fatalf("stored name must be a bare filename, got %q", name)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), name)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestSave_RejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewImageStore(dir)
	if err != nil {
		t.Fatalf("new image store: %v", err)
	}

	_, err = store.Save(strings.NewReader("definitely not an image"))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected upload must leave no files, found %d", len(entries))
	}
}

func TestRemove_DeletesStoredImage(t *testing.T) {
	store, err := NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("new image store: %v", err)
	}
	name, err := store.Save(pngPayload(t))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Remove(name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), name)); !os.IsNotExist(err) {
		t.Fatalf("expected file gone, stat err = %v", err)
	}

	// Removing twice stays idempotent.
	if err := store.Remove(name); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestURLPath(t *testing.T) {
	if got := URLPath(""); got != "" {
		t.Fatalf("empty name must map to empty path, got %q", got)
	}
	if got := URLPath("abc.png"); got != "/media/abc.png" {
		t.Fatalf("unexpected media path %q", got)
	}
}
