package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotImage is returned when the uploaded payload does not sniff as an image.
var ErrNotImage = errors.New("payload is not an image")

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore persists recipe images on the local filesystem under a single
// media directory. Stored names are uuid-based so uploads never collide and
// never leak the original filename.
type ImageStore struct {
	dir string
}

// NewImageStore creates the media directory if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("media dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Dir returns the media directory the store writes to.
func (s *ImageStore) Dir() string { return s.dir }

// Save validates and stores an image, returning the stored filename.
//
// The payload is sniffed before anything touches the final location: bytes go
// to a temp file first and are renamed into place only after validation, so a
// rejected upload leaves no stored file behind.
func (s *ImageStore) Save(r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read payload: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := extByContentType[contentType]
	if !ok || !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}

	tmp, err := os.CreateTemp(s.dir, "upload-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(head); err != nil {
		cleanup()
		return "", fmt.Errorf("write payload: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	name := uuid.NewString() + ext
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("store image: %w", err)
	}
	return name, nil
}

// Remove deletes a stored image. Missing files are not an error so delete
// flows stay idempotent.
func (s *ImageStore) Remove(name string) error {
	if name == "" {
		return nil
	}
	// filepath.Base guards against path traversal in stored names.
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// URLPath maps a stored filename to its public media path.
func URLPath(name string) string {
	if name == "" {
		return ""
	}
	return "/media/" + name
}
