package models

import (
	"sort"
	"strings"
	"time"
)

// Message is a single entry in a chat. ID is the sequence number within the
// chat; display order is ascending ID.
type Message struct {
	ID                 int64     `json:"id"`
	Body               string    `json:"body"`
	Own                bool      `json:"own"`
	Timestamp          time.Time `json:"timestamp"`
	WaitingForResponse bool      `json:"-"`
}

// Chat is an ordered collection of messages plus its settings.
type Chat struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	SystemMessage      string    `json:"system_message"`
	APIServiceID       string    `json:"api_service_id,omitempty"`
	IsPinned           bool      `json:"is_pinned"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Messages           []Message `json:"messages"`
	WaitingForResponse bool      `json:"-"`
}

// SortMessages orders messages by ascending ID in place.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].ID < msgs[j].ID
	})
}

// SortedMessages returns a copy of the chat's messages ordered by ID.
func (c *Chat) SortedMessages() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	SortMessages(out)
	return out
}

// NextMessageID returns the sequence number for the next appended message.
func (c *Chat) NextMessageID() int64 {
	return int64(len(c.Messages)) + 1
}

// LastMessage returns the message with the highest ID.
func (c *Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	last := c.Messages[0]
	for _, m := range c.Messages[1:] {
		if m.ID > last.ID {
			last = m
		}
	}
	return last, true
}

// Title returns the name shown for the chat in lists and headers.
func (c *Chat) Title() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return "New chat"
}

// Preview returns the filtered body of the newest message, as shown in the
// chat list.
func (c *Chat) Preview() string {
	last, ok := c.LastMessage()
	if !ok {
		return ""
	}
	return FilterThinking(PlainText(last.Body))
}
