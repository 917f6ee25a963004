package models

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize is the largest image accepted as an attachment.
const MaxImageSize = 20 * 1024 * 1024 // 20MB

// SupportedImageTypes returns the MIME types accepted for attachments
func SupportedImageTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/heic",
		"image/heif",
	}
}

// Attachment is an image picked by the user for the pending send. It is only
// written to storage when the message is actually sent.
type Attachment struct {
	ID         uuid.UUID
	SourcePath string
	FileName   string
	MIMEType   string
	Size       int64
	Persisted  bool
}

// NewAttachment validates the file at path and returns an unpersisted
// attachment for it.
func NewAttachment(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxImageSize {
		return nil, fmt.Errorf("file size exceeds maximum %d bytes", MaxImageSize)
	}

	mimeType := MIMETypeForPath(path)
	if !isSupportedImageType(mimeType) {
		return nil, fmt.Errorf("unsupported image type: %s", mimeType)
	}

	return &Attachment{
		ID:         uuid.New(),
		SourcePath: path,
		FileName:   filepath.Base(path),
		MIMEType:   mimeType,
		Size:       info.Size(),
	}, nil
}

// Content returns the body part referencing this attachment.
func (a *Attachment) Content() MessageContent {
	return MessageContent{ImageID: a.ID.String()}
}

// MIMETypeForPath detects the MIME type from the file extension.
func MIMETypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".webp":
		return "image/webp"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func isSupportedImageType(mimeType string) bool {
	for _, t := range SupportedImageTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}
