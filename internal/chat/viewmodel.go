package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/llmchat/internal/api"
	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/models"
)

// ViewModel is the ordered message list of one chat together with the
// service it talks to. Every mutation goes through it so the snapshot
// returned by Messages stays in sync with the store.
type ViewModel struct {
	repo    history.Repository
	chat    *models.Chat
	service *models.APIService
	client  api.Client

	snapshot []models.Message
	streamID int64 // trailing reply being grown, 0 when none
	naming   bool
	now      func() time.Time
}

// NewViewModel binds chat to service and client. service and client may be
// nil, in which case the chat cannot send.
func NewViewModel(repo history.Repository, chat *models.Chat, service *models.APIService, client api.Client) *ViewModel {
	vm := &ViewModel{
		repo:    repo,
		chat:    chat,
		service: service,
		client:  client,
		now:     time.Now,
	}
	vm.refresh()
	return vm
}

func (vm *ViewModel) refresh() {
	vm.snapshot = vm.chat.SortedMessages()
}

// ChatID returns the ID of the bound chat.
func (vm *ViewModel) ChatID() string {
	return vm.chat.ID
}

// Chat returns the bound chat. Callers must not mutate it.
func (vm *ViewModel) Chat() *models.Chat {
	return vm.chat
}

// Service returns the bound service, if any.
func (vm *ViewModel) Service() (models.APIService, bool) {
	if vm.service == nil {
		return models.APIService{}, false
	}
	return *vm.service, true
}

// Messages returns the messages ordered by ID.
func (vm *ViewModel) Messages() []models.Message {
	out := make([]models.Message, len(vm.snapshot))
	copy(out, vm.snapshot)
	return out
}

// Count returns the number of messages.
func (vm *ViewModel) Count() int {
	return len(vm.snapshot)
}

// CanSendMessage reports whether a service is bound to the chat.
func (vm *ViewModel) CanSendMessage() bool {
	return vm.service != nil && vm.client != nil
}

// Recreate rebinds the chat to a new service and client, for example after
// the configuration changed.
func (vm *ViewModel) Recreate(service *models.APIService, client api.Client) {
	vm.service = service
	vm.client = client
}

// SetWaiting flags the chat as waiting for a batch reply. The flag is never
// persisted.
func (vm *ViewModel) SetWaiting(waiting bool) {
	vm.chat.WaitingForResponse = waiting
}

// AppendOwnMessage stores a new message written by the user.
func (vm *ViewModel) AppendOwnMessage(body string) (models.Message, error) {
	return vm.append(body, true)
}

// AppendResponse stores a complete reply.
func (vm *ViewModel) AppendResponse(text string) (models.Message, error) {
	return vm.append(text, false)
}

func (vm *ViewModel) append(body string, own bool) (models.Message, error) {
	msg := models.Message{
		ID:        vm.chat.NextMessageID(),
		Body:      body,
		Own:       own,
		Timestamp: vm.now(),
	}
	if err := vm.repo.AppendMessage(vm.chat.ID, msg); err != nil {
		return models.Message{}, fmt.Errorf("failed to save message: %w", err)
	}

	vm.chat.Messages = append(vm.chat.Messages, msg)
	vm.chat.UpdatedAt = msg.Timestamp
	vm.refresh()
	return msg, nil
}

// ApplyChunk grows the reply of the current stream, creating it on the
// first chunk. It reports whether a new message was created. The reply is
// only persisted by FinishStream.
func (vm *ViewModel) ApplyChunk(text string) (created bool) {
	if vm.streamID != 0 {
		for i := range vm.chat.Messages {
			if vm.chat.Messages[i].ID == vm.streamID {
				vm.chat.Messages[i].Body += text
				vm.refresh()
				return false
			}
		}
	}

	msg := models.Message{
		ID:        vm.chat.NextMessageID(),
		Body:      text,
		Timestamp: vm.now(),
	}
	vm.streamID = msg.ID
	vm.chat.Messages = append(vm.chat.Messages, msg)
	vm.refresh()
	return true
}

// FinishStream persists the reply grown by ApplyChunk, if any.
func (vm *ViewModel) FinishStream() error {
	id := vm.streamID
	vm.streamID = 0
	if id == 0 {
		return nil
	}

	for _, m := range vm.chat.Messages {
		if m.ID != id {
			continue
		}
		vm.chat.UpdatedAt = vm.now()
		if err := vm.repo.AppendMessage(vm.chat.ID, m); err != nil {
			return fmt.Errorf("failed to save reply: %w", err)
		}
		return nil
	}
	return nil
}

// DeleteMessage removes a message from the chat and the store.
func (vm *ViewModel) DeleteMessage(id int64) error {
	if err := vm.repo.DeleteMessage(vm.chat.ID, id); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", id, err)
	}
	for i, m := range vm.chat.Messages {
		if m.ID == id {
			vm.chat.Messages = append(vm.chat.Messages[:i], vm.chat.Messages[i+1:]...)
			break
		}
	}
	vm.refresh()
	return nil
}

// SetSystemMessage replaces the chat's system message.
func (vm *ViewModel) SetSystemMessage(text string) error {
	vm.chat.SystemMessage = strings.TrimSpace(text)
	if err := vm.repo.SaveChat(vm.settled()); err != nil {
		return fmt.Errorf("failed to save system message: %w", err)
	}
	return nil
}

// settled returns the chat as it may be written to the store. A reply still
// streaming is left out; FinishStream appends it once complete.
func (vm *ViewModel) settled() *models.Chat {
	if vm.streamID == 0 {
		return vm.chat
	}
	c := *vm.chat
	c.Messages = make([]models.Message, 0, len(vm.chat.Messages))
	for _, msg := range vm.chat.Messages {
		if msg.ID != vm.streamID {
			c.Messages = append(c.Messages, msg)
		}
	}
	return &c
}

// SetName stores a chat name.
func (vm *ViewModel) SetName(name string) error {
	vm.naming = false
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if err := vm.repo.UpdateTitle(vm.chat.ID, name); err != nil {
		return fmt.Errorf("failed to save chat name: %w", err)
	}
	vm.chat.Name = name
	return nil
}

// Request returns the completion request a send of body would make now. It
// reports false when the chat has no service.
func (vm *ViewModel) Request(body string) (api.Request, bool) {
	if vm.service == nil {
		return api.Request{}, false
	}
	return vm.request(body, vm.service.EffectiveContextSize()), true
}

func (vm *ViewModel) request(body string, contextSize int) api.Request {
	return api.Request{
		Model:         vm.service.EffectiveModel(),
		SystemMessage: vm.chat.SystemMessage,
		Messages:      vm.Messages(),
		Body:          body,
		ContextSize:   contextSize,
	}
}

// SendOnceJob returns a job requesting the whole reply to body at once.
// The request is captured now so the job never reads view-model state.
func (vm *ViewModel) SendOnceJob(body string, contextSize int) Job {
	client, req := vm.client, vm.request(body, contextSize)
	return func(ctx context.Context, _ func(string)) (string, error) {
		return client.SendOnce(ctx, req)
	}
}

// SendStreamJob returns a job streaming the reply to body.
func (vm *ViewModel) SendStreamJob(body string, contextSize int) Job {
	client, req := vm.client, vm.request(body, contextSize)
	return func(ctx context.Context, onChunk func(string)) (string, error) {
		return "", client.SendStream(ctx, req, onChunk)
	}
}

// GenerateChatNameIfNeeded returns a job naming the chat when it has no name
// yet, the service asks for names and the first exchange is complete. It
// returns nil otherwise. Failures are reported in the event and are never
// fatal.
func (vm *ViewModel) GenerateChatNameIfNeeded() TitleJob {
	if vm.naming || strings.TrimSpace(vm.chat.Name) != "" || !vm.CanSendMessage() || !vm.service.GenerateChatNames {
		return nil
	}
	var own, reply bool
	for _, m := range vm.snapshot {
		own = own || m.Own
		reply = reply || !m.Own
	}
	if !own || !reply {
		return nil
	}

	vm.naming = true
	client, chatID := vm.client, vm.chat.ID
	req := api.Request{Model: vm.service.EffectiveModel(), Messages: vm.Messages()}
	return func(ctx context.Context) TitleEvent {
		title, err := client.GenerateTitle(ctx, req)
		return TitleEvent{ChatID: chatID, Title: title, Err: err}
	}
}
