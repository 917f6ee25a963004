package render

import (
	"strings"

	"github.com/diogo/llmchat/internal/models"
)

const codeFence = "```"

// Markdown renders markdown content for terminal display.
func Markdown(content string, opts Options) (string, error) {
	r, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, r)

	return r.Render(content)
}

// Message renders a stored message body. Image references are shown as a
// marker and reasoning blocks are dropped when hideThinking is set. Falls
// back to the plain text when markdown rendering fails.
func Message(body string, hideThinking bool, opts Options) string {
	text := models.PlainText(body)
	if hideThinking {
		text = models.FilterThinking(text)
	}
	out, err := Markdown(text, opts)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// CountCodeBlocks returns the number of complete fenced code blocks in text.
// An unterminated fence does not count.
func CountCodeBlocks(text string) int {
	return strings.Count(text, codeFence) / 2
}

// CodeBlocks extracts the contents of complete fenced code blocks, without
// the fence lines.
func CodeBlocks(text string) []string {
	var blocks []string
	rest := text
	for {
		start := strings.Index(rest, codeFence)
		if start < 0 {
			return blocks
		}
		body := rest[start+len(codeFence):]
		end := strings.Index(body, codeFence)
		if end < 0 {
			return blocks
		}
		block := body[:end]
		// drop the language tag line
		if nl := strings.IndexByte(block, '\n'); nl >= 0 {
			block = block[nl+1:]
		}
		blocks = append(blocks, strings.TrimRight(block, "\n"))
		rest = body[end+len(codeFence):]
	}
}
