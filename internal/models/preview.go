package models

import (
	"regexp"
	"strings"
)

var thinkBlockRe = regexp.MustCompile(`<think>.*?</think>`)

// FilterThinking strips reasoning blocks from a message that starts with a
// <think> tag. Other messages are returned unchanged.
func FilterThinking(message string) string {
	if !strings.HasPrefix(message, "<think>") {
		return message
	}
	flat := strings.ReplaceAll(message, "\n", " ")
	flat = thinkBlockRe.ReplaceAllString(flat, "")
	return strings.TrimSpace(flat)
}
