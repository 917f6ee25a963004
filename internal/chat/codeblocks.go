package chat

import (
	"github.com/diogo/llmchat/internal/models"
	"github.com/diogo/llmchat/internal/render"
)

// CodeBlockTracker counts code blocks still waiting to be rendered after a
// chat is opened, so the view can jump to the newest message once the
// layout is final.
type CodeBlockTracker struct {
	pending int
}

// Reset counts the complete code blocks in msgs.
func (t *CodeBlockTracker) Reset(msgs []models.Message) {
	t.pending = 0
	for _, m := range msgs {
		t.pending += render.CountCodeBlocks(m.Body)
	}
}

// Pending returns the number of blocks not rendered yet.
func (t *CodeBlockTracker) Pending() int {
	return t.pending
}

// Rendered records n rendered blocks. It reports true when this brought the
// count to zero, which is when the view should scroll to the latest message.
func (t *CodeBlockTracker) Rendered(n int) bool {
	if t.pending <= 0 || n <= 0 {
		return false
	}
	t.pending -= n
	if t.pending < 0 {
		t.pending = 0
	}
	return t.pending == 0
}
