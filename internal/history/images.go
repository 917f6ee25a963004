package history

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/diogo/llmchat/internal/models"
)

// ImageStore keeps attached images as <dir>/<uuid><ext>.
type ImageStore struct {
	dir string
}

// NewImageStore creates the images directory under baseDir
func NewImageStore(baseDir string) (*ImageStore, error) {
	dir := filepath.Join(baseDir, "images")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Persist copies the attachment's source file into the store. Attachments
// that are already persisted are left alone.
func (s *ImageStore) Persist(att *models.Attachment) error {
	if att.Persisted {
		return nil
	}

	src, err := os.Open(att.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to open attachment: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(att.SourcePath))
	dstPath := filepath.Join(s.dir, att.ID.String()+ext)
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return fmt.Errorf("failed to copy image: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	att.Persisted = true
	return nil
}

// Path returns the stored file for an image ID.
func (s *ImageStore) Path(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, id+".*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("image not found: %s", id)
	}
	return matches[0], nil
}

// Load returns the bytes and MIME type of a stored image.
func (s *ImageStore) Load(id string) ([]byte, string, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return data, models.MIMETypeForPath(path), nil
}

// Delete removes a stored image. Missing images are ignored.
func (s *ImageStore) Delete(id string) error {
	path, err := s.Path(id)
	if err != nil {
		return nil
	}
	return os.Remove(path)
}
