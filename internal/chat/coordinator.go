package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/diogo/llmchat/internal/errors"
	"github.com/diogo/llmchat/internal/logger"
	"github.com/diogo/llmchat/internal/models"
)

// ErrSendInProgress is returned by Send while a reply is outstanding.
var ErrSendInProgress = errors.New("a message is already being answered")

// ErrImagesNotAllowed is returned when attaching to a chat whose service
// does not accept images.
var ErrImagesNotAllowed = errors.New("the selected service does not accept images")

// Status is the transient state of the chat tail.
type Status int

const (
	StatusIdle Status = iota
	StatusWaiting
	StatusStreaming
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// AttachmentStore writes pending attachments to storage.
type AttachmentStore interface {
	Persist(att *models.Attachment) error
}

// Coordinator turns user actions into sends and applies their results. It
// owns the composer buffer, the pending attachments, the send status and
// the error state of one chat. It is not safe for concurrent use.
type Coordinator struct {
	vm     *ViewModel
	images AttachmentStore
	scroll *ScrollFollow

	input       string
	attachments []*models.Attachment

	status      Status
	err         *apierrors.State
	lastSendID  uint64
	outstanding uint64

	now func() time.Time
}

// NewCoordinator returns a coordinator for vm. images may be nil when
// attachments are not used.
func NewCoordinator(vm *ViewModel, images AttachmentStore, scroll *ScrollFollow) *Coordinator {
	if scroll == nil {
		scroll = NewScrollFollow(DefaultScrollDebounce)
	}
	scroll.Reset(vm.Count())
	return &Coordinator{
		vm:     vm,
		images: images,
		scroll: scroll,
		now:    time.Now,
	}
}

// ViewModel returns the chat view-model.
func (c *Coordinator) ViewModel() *ViewModel { return c.vm }

// Scroll returns the scroll-follow controller.
func (c *Coordinator) Scroll() *ScrollFollow { return c.scroll }

// Status returns the current send status.
func (c *Coordinator) Status() Status { return c.status }

// Busy reports whether a send is outstanding.
func (c *Coordinator) Busy() bool { return c.outstanding != 0 }

// Error returns the error shown at the chat tail, if any.
func (c *Coordinator) Error() *apierrors.State { return c.err }

// Input returns the composer text.
func (c *Coordinator) Input() string { return c.input }

// SetInput replaces the composer text.
func (c *Coordinator) SetInput(text string) { c.input = text }

// Attachments returns the images queued for the next send.
func (c *Coordinator) Attachments() []*models.Attachment {
	out := make([]*models.Attachment, len(c.attachments))
	copy(out, c.attachments)
	return out
}

// AddAttachment queues an image for the next send.
func (c *Coordinator) AddAttachment(att *models.Attachment) error {
	svc, ok := c.vm.Service()
	if !ok || !svc.ImageUploadsAllowed {
		return ErrImagesNotAllowed
	}
	c.attachments = append(c.attachments, att)
	return nil
}

// RemoveAttachment drops the queued image at index i.
func (c *Coordinator) RemoveAttachment(i int) {
	if i < 0 || i >= len(c.attachments) {
		return
	}
	c.attachments = append(c.attachments[:i], c.attachments[i+1:]...)
}

// DismissError clears the error state.
func (c *Coordinator) DismissError() {
	c.err = nil
}

func (c *Coordinator) setError(err error) {
	c.err = &apierrors.State{Err: err, At: c.now()}
}

// Send composes the outgoing message and returns the dispatch to run. With
// explicitRetry the last own message is sent again instead of the composer
// contents and no new message is stored. A nil dispatch with a nil error
// means there was nothing to send.
func (c *Coordinator) Send(explicitRetry bool) (*Dispatch, error) {
	if c.Busy() {
		return nil, ErrSendInProgress
	}
	if !c.vm.CanSendMessage() {
		err := apierrors.NewNoAPIServiceError()
		c.setError(err)
		return nil, err
	}
	c.err = nil

	if explicitRetry {
		return c.replay()
	}

	body, err := c.compose()
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, nil
	}
	if _, err := c.vm.AppendOwnMessage(body); err != nil {
		return nil, err
	}
	c.input = ""
	c.attachments = nil

	return c.dispatch(body), nil
}

// compose joins the composer text and the queued attachments into a
// message body, persisting the attachments on the way.
func (c *Coordinator) compose() (string, error) {
	var parts []models.MessageContent
	if strings.TrimSpace(c.input) != "" {
		parts = append(parts, models.MessageContent{Text: c.input})
	}
	for _, att := range c.attachments {
		if c.images == nil {
			return "", ErrImagesNotAllowed
		}
		if err := c.images.Persist(att); err != nil {
			return "", fmt.Errorf("failed to store %s: %w", att.FileName, err)
		}
		parts = append(parts, att.Content())
	}
	if len(parts) == 0 {
		return "", nil
	}
	return models.EncodeContents(parts), nil
}

// replay resends the last own message. Replies stored after it, such as a
// partial stream cut by the failure, are discarded first.
func (c *Coordinator) replay() (*Dispatch, error) {
	msgs := c.vm.Messages()
	idx := lastOwn(msgs)
	if idx < 0 {
		return nil, nil
	}
	if err := c.truncate(msgs[idx+1:]); err != nil {
		return nil, err
	}
	return c.dispatch(msgs[idx].Body), nil
}

// Retry handles a retry request. After a failure it replays the last own
// message. Otherwise it drops the last exchange, back to and including the
// nearest own message, and sends that message's text again as a new
// message. It does nothing while a send is outstanding.
func (c *Coordinator) Retry() (*Dispatch, error) {
	if c.Busy() {
		return nil, nil
	}
	if c.err != nil {
		return c.Send(true)
	}
	if !c.vm.CanSendMessage() {
		err := apierrors.NewNoAPIServiceError()
		c.setError(err)
		return nil, err
	}

	msgs := c.vm.Messages()
	idx := lastOwn(msgs)
	if idx < 0 {
		return nil, nil
	}
	body := msgs[idx].Body
	if err := c.truncate(msgs[idx:]); err != nil {
		return nil, err
	}
	if _, err := c.vm.AppendOwnMessage(body); err != nil {
		return nil, err
	}
	return c.dispatch(body), nil
}

// truncate deletes msgs newest first so sequence numbers stay contiguous.
func (c *Coordinator) truncate(msgs []models.Message) error {
	for i := len(msgs) - 1; i >= 0; i-- {
		if err := c.vm.DeleteMessage(msgs[i].ID); err != nil {
			return err
		}
	}
	return nil
}

func lastOwn(msgs []models.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Own {
			return i
		}
	}
	return -1
}

func (c *Coordinator) dispatch(body string) *Dispatch {
	svc, _ := c.vm.Service()
	c.scroll.ResetForSend()

	c.lastSendID++
	c.outstanding = c.lastSendID
	d := &Dispatch{
		ChatID:    c.vm.ChatID(),
		SendID:    c.outstanding,
		Streaming: svc.UseStreamResponse,
		Body:      body,
	}
	if d.Streaming {
		c.status = StatusStreaming
		d.job = c.vm.SendStreamJob(body, svc.EffectiveContextSize())
	} else {
		c.status = StatusWaiting
		c.vm.SetWaiting(true)
		d.job = c.vm.SendOnceJob(body, svc.EffectiveContextSize())
	}

	logger.Debug("dispatching message", "chat", d.ChatID, "send", d.SendID, "stream", d.Streaming)
	return d
}

// Outcome describes what applying an event changed.
type Outcome struct {
	// Ignored is set for events from another chat or an abandoned send.
	Ignored bool
	// Finished is set when the outstanding send ended.
	Finished bool
	// Scroll is what the view should do next.
	Scroll ScrollRequest
	// Title is a name generation job to run, if any.
	Title TitleJob
}

// Apply folds an event from a dispatch or title job into the chat state.
// Events that do not belong to the outstanding send of this chat are
// ignored.
func (c *Coordinator) Apply(ev Event) Outcome {
	switch ev := ev.(type) {
	case ChunkEvent:
		if !c.current(ev.ChatID, ev.SendID) || c.status != StatusStreaming {
			return Outcome{Ignored: true}
		}
		if c.vm.ApplyChunk(ev.Text) {
			return Outcome{Scroll: c.Follow()}
		}
		return Outcome{Scroll: c.scroll.OnBodyMutation(true)}

	case DoneEvent:
		if !c.current(ev.ChatID, ev.SendID) {
			return Outcome{Ignored: true}
		}
		return c.finish(ev)

	case TitleEvent:
		if ev.ChatID != c.vm.ChatID() {
			return Outcome{Ignored: true}
		}
		if ev.Err != nil {
			logger.Warn("chat name generation failed", "chat", ev.ChatID, "error", ev.Err)
			ev.Title = ""
		}
		if err := c.vm.SetName(ev.Title); err != nil {
			logger.Warn("failed to save chat name", "chat", ev.ChatID, "error", err)
		}
		return Outcome{}
	}
	return Outcome{Ignored: true}
}

func (c *Coordinator) current(chatID string, sendID uint64) bool {
	return c.outstanding != 0 && chatID == c.vm.ChatID() && sendID == c.outstanding
}

func (c *Coordinator) finish(ev DoneEvent) Outcome {
	streamed := c.status == StatusStreaming
	c.outstanding = 0
	c.status = StatusIdle
	c.vm.SetWaiting(false)

	var storeErr error
	if streamed {
		storeErr = c.vm.FinishStream()
	} else if ev.Err == nil {
		_, storeErr = c.vm.AppendResponse(ev.Text)
	}

	out := Outcome{Finished: true}
	switch {
	case ev.Err != nil:
		logger.Warn("completion failed", "chat", ev.ChatID, "error", ev.Err)
		c.setError(ev.Err)
	case storeErr != nil:
		logger.Error("failed to store reply", "chat", ev.ChatID, "error", storeErr)
		c.setError(storeErr)
	default:
		out.Title = c.vm.GenerateChatNameIfNeeded()
	}
	if storeErr != nil && ev.Err != nil {
		logger.Error("failed to store partial reply", "chat", ev.ChatID, "error", storeErr)
	}

	out.Scroll = c.Follow()
	return out
}

// IndicatorPinned reports whether a waiting or error row ends the list.
func (c *Coordinator) IndicatorPinned() bool {
	return c.status == StatusWaiting || c.err != nil
}

// Follow returns the scroll for the current message count. Call it after
// any mutation made outside Apply, such as Send or Retry.
func (c *Coordinator) Follow() ScrollRequest {
	return c.scroll.OnCountChanged(c.vm.Count(), c.IndicatorPinned())
}

// FireScroll resolves a debounced scroll token.
func (c *Coordinator) FireScroll(token uint64) ScrollRequest {
	return c.scroll.Fire(token)
}
