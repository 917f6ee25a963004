package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diogo/llmchat/internal/api"
	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/models"
)

type fixture struct {
	repo   *history.Store
	images *history.ImageStore
	client *api.MockClient
	vm     *ViewModel
	coord  *Coordinator
}

func testService(stream bool) *models.APIService {
	return &models.APIService{
		ID:                "test",
		Name:              "Test",
		Type:              models.ServiceTypeOpenAI,
		Model:             "gpt-test",
		ContextSize:       10,
		UseStreamResponse: stream,
	}
}

// newFixture opens an empty chat. A nil svc leaves the chat without a
// service.
func newFixture(t *testing.T, svc *models.APIService) *fixture {
	t.Helper()
	dir := t.TempDir()

	repo, err := history.NewStore(dir)
	require.NoError(t, err)
	images, err := history.NewImageStore(dir)
	require.NoError(t, err)

	chat, err := repo.CreateChat("test", "")
	require.NoError(t, err)

	f := &fixture{repo: repo, images: images, client: &api.MockClient{}}
	var client api.Client
	if svc != nil {
		client = f.client
	}
	f.vm = NewViewModel(repo, chat, svc, client)
	f.coord = NewCoordinator(f.vm, images, NewScrollFollow(0))
	return f
}

// run executes d synchronously and applies every event it emits.
func (f *fixture) run(t *testing.T, d *Dispatch) []Outcome {
	t.Helper()
	require.NotNil(t, d)

	var events []Event
	d.Run(context.Background(), func(ev Event) { events = append(events, ev) })

	var outs []Outcome
	for _, ev := range events {
		outs = append(outs, f.coord.Apply(ev))
	}
	return outs
}

// collect executes d and returns its events without applying them.
func collect(d *Dispatch) []Event {
	var events []Event
	d.Run(context.Background(), func(ev Event) { events = append(events, ev) })
	return events
}

func (f *fixture) send(t *testing.T, text string) *Dispatch {
	t.Helper()
	f.coord.SetInput(text)
	d, err := f.coord.Send(false)
	require.NoError(t, err)
	return d
}

func (f *fixture) stored(t *testing.T) []models.Message {
	t.Helper()
	chat, err := f.repo.GetChat(f.vm.ChatID())
	require.NoError(t, err)
	return chat.SortedMessages()
}

type msgView struct {
	ID   int64
	Own  bool
	Body string
}

func view(msgs []models.Message) []msgView {
	out := make([]msgView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, msgView{ID: m.ID, Own: m.Own, Body: m.Body})
	}
	return out
}
