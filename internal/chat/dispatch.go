package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"

	apierrors "github.com/diogo/llmchat/internal/errors"
	"github.com/diogo/llmchat/internal/logger"
)

// Job performs one completion call. onChunk receives streamed pieces; the
// returned text is the batch reply.
type Job func(ctx context.Context, onChunk func(string)) (string, error)

// TitleJob generates a chat name.
type TitleJob func(ctx context.Context) TitleEvent

// Dispatch is an outstanding send, ready to run off the owning thread.
type Dispatch struct {
	ChatID    string
	SendID    uint64
	Streaming bool
	Body      string

	job Job
}

// Run executes the send and reports through emit: zero or more ChunkEvents
// followed by exactly one DoneEvent. A panicking client ends the send with
// a failure instead of taking the process down.
func (d *Dispatch) Run(ctx context.Context, emit func(Event)) {
	var (
		text string
		err  error
		pc   panics.Catcher
	)
	pc.Try(func() {
		text, err = d.job(ctx, func(chunk string) {
			emit(ChunkEvent{ChatID: d.ChatID, SendID: d.SendID, Text: chunk})
		})
	})
	if r := pc.Recovered(); r != nil {
		logger.Error("completion client panicked", "chat", d.ChatID, "panic", r.Value)
		err = apierrors.NewCompletionError(apierrors.KindUnknown, 0, "client failure", r.AsError())
	}

	emit(DoneEvent{
		ChatID:   d.ChatID,
		SendID:   d.SendID,
		Text:     text,
		Streamed: d.Streaming,
		Err:      asCompletionError(err),
	})
}

// Events runs the dispatch in a goroutine and returns its events. The
// channel is closed after the DoneEvent.
func (d *Dispatch) Events(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		d.Run(ctx, func(ev Event) { ch <- ev })
	}()
	return ch
}

func asCompletionError(err error) error {
	if err == nil {
		return nil
	}
	var ce *apierrors.CompletionError
	if errors.As(err, &ce) {
		return err
	}
	return apierrors.NewCompletionError(apierrors.KindOf(err), apierrors.GetHTTPStatus(err), "", err)
}

// RunTitle executes a title job, converting a panic into a failed event.
func RunTitle(ctx context.Context, chatID string, job TitleJob) (ev TitleEvent) {
	var pc panics.Catcher
	pc.Try(func() { ev = job(ctx) })
	if r := pc.Recovered(); r != nil {
		return TitleEvent{ChatID: chatID, Err: fmt.Errorf("title generation: %w", r.AsError())}
	}
	return ev
}
