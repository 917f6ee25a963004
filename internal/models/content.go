package models

import (
	"regexp"
	"strings"
)

const (
	imageTagOpen  = "<image-uuid>"
	imageTagClose = "</image-uuid>"
)

var imageTagRe = regexp.MustCompile(`<image-uuid>([0-9a-fA-F-]{36})</image-uuid>`)

// MessageContent is one part of a composite message body: either text or a
// reference to a stored image.
type MessageContent struct {
	Text    string
	ImageID string
}

// IsImage reports whether the part references an image.
func (c MessageContent) IsImage() bool {
	return c.ImageID != ""
}

// String serializes a single part.
func (c MessageContent) String() string {
	if c.IsImage() {
		return imageTagOpen + c.ImageID + imageTagClose
	}
	return c.Text
}

// EncodeContents serializes parts into a message body. Parts are joined
// with a newline.
func EncodeContents(parts []MessageContent) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.String())
	}
	return strings.Join(out, "\n")
}

// DecodeContents splits a body back into parts. A body without image tags
// decodes to a single text part.
func DecodeContents(body string) []MessageContent {
	locs := imageTagRe.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		if body == "" {
			return nil
		}
		return []MessageContent{{Text: body}}
	}

	var parts []MessageContent
	prev := 0
	for _, loc := range locs {
		if text := strings.Trim(body[prev:loc[0]], "\n"); text != "" {
			parts = append(parts, MessageContent{Text: text})
		}
		parts = append(parts, MessageContent{ImageID: body[loc[2]:loc[3]]})
		prev = loc[1]
	}
	if text := strings.Trim(body[prev:], "\n"); text != "" {
		parts = append(parts, MessageContent{Text: text})
	}
	return parts
}

// ImageIDs returns the image references contained in a body, in order.
func ImageIDs(body string) []string {
	var ids []string
	for _, m := range imageTagRe.FindAllStringSubmatch(body, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// PlainText returns the body with image references replaced by a marker.
func PlainText(body string) string {
	return imageTagRe.ReplaceAllString(body, "[image]")
}
