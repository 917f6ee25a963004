package chat

import (
	apierrors "github.com/diogo/llmchat/internal/errors"
)

// RowKind distinguishes message rows from the pinned tail indicators.
type RowKind int

const (
	RowMessage RowKind = iota
	RowWaiting
	RowError
)

// Row is the render payload of one entry in the message list.
type Row struct {
	Kind      RowKind
	MessageID int64
	Text      string
	Own       bool
	Waiting   bool
	Streaming bool
	IsLatest  bool
	Err       *apierrors.State
}

// Rows returns one row per message followed by the waiting or error
// indicator, if one is pinned. At most one of waiting, streaming and error
// is ever set.
func (c *Coordinator) Rows() []Row {
	msgs := c.vm.Messages()
	rows := make([]Row, 0, len(msgs)+1)
	for i, m := range msgs {
		latest := i == len(msgs)-1
		rows = append(rows, Row{
			Kind:      RowMessage,
			MessageID: m.ID,
			Text:      m.Body,
			Own:       m.Own,
			Streaming: latest && !m.Own && c.status == StatusStreaming,
			IsLatest:  latest,
		})
	}

	switch {
	case c.status == StatusWaiting:
		rows = append(rows, Row{Kind: RowWaiting, Waiting: true})
	case c.err != nil:
		rows = append(rows, Row{Kind: RowError, Err: c.err})
	}
	return rows
}
