// Package chat holds the state behind an open chat: the message view-model,
// the send coordinator and the scroll-follow controller. All of it is owned
// by a single thread; completion work runs elsewhere and reports back as
// events.
package chat

// Event is a result delivered from a running dispatch or title job.
type Event interface {
	chatID() string
}

// ChunkEvent carries one streamed piece of a reply.
type ChunkEvent struct {
	ChatID string
	SendID uint64
	Text   string
}

// DoneEvent ends a dispatch. Text holds the whole reply for batch sends and
// is empty for streamed ones.
type DoneEvent struct {
	ChatID   string
	SendID   uint64
	Text     string
	Streamed bool
	Err      error
}

// TitleEvent carries a generated chat name.
type TitleEvent struct {
	ChatID string
	Title  string
	Err    error
}

func (e ChunkEvent) chatID() string { return e.ChatID }
func (e DoneEvent) chatID() string  { return e.ChatID }
func (e TitleEvent) chatID() string { return e.ChatID }

// ChatOf returns the chat an event belongs to.
func ChatOf(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.chatID()
}
