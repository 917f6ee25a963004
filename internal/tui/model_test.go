package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/llmchat/internal/api"
	"github.com/diogo/llmchat/internal/chat"
	"github.com/diogo/llmchat/internal/config"
	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/models"
)

type testEnv struct {
	repo   *history.Store
	client *api.MockClient
	cfg    config.Config
	chat   *models.Chat
}

func newTestEnv(t *testing.T, stream bool) *testEnv {
	t.Helper()
	repo, err := history.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	c, err := repo.CreateChat("test", "")
	if err != nil {
		t.Fatalf("CreateChat() error = %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Services = []models.APIService{{
		ID:                "test",
		Name:              "Test",
		Type:              models.ServiceTypeOpenAI,
		Model:             "gpt-test",
		UseStreamResponse: stream,
	}}
	cfg.DefaultService = "test"
	cfg.ScrollDebounceMillis = 1

	return &testEnv{repo: repo, client: &api.MockClient{}, cfg: cfg, chat: c}
}

func (e *testEnv) options() Options {
	return Options{
		Repo:      e.repo,
		Config:    e.cfg,
		NewClient: func(models.APIService) api.Client { return e.client },
		ChatID:    e.chat.ID,
	}
}

func (e *testEnv) stored(t *testing.T) []models.Message {
	t.Helper()
	c, err := e.repo.GetChat(e.chat.ID)
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	return c.SortedMessages()
}

// pump runs cmd and every command produced while handling its messages.
// Spinner ticks are dropped so the loop ends when the send does.
func pump(t *testing.T, m Model, cmds ...tea.Cmd) Model {
	t.Helper()
	queue := append([]tea.Cmd(nil), cmds...)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatal("pump did not settle")
		}
		cmd := queue[0]
		queue = queue[1:]
		if cmd == nil {
			continue
		}

		switch msg := cmd().(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, c := m.Update(msg)
			m = next.(Model)
			queue = append(queue, c)
		}
	}
	return m
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key(k))
	return next.(Model), cmd
}

// openModel starts a model on env's chat with a sized window.
func openModel(t *testing.T, env *testEnv) Model {
	t.Helper()
	m := New(env.options())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = pump(t, next.(Model), m.openChat(env.chat.ID))
	if m.screen != screenChat || m.coord == nil {
		t.Fatal("chat was not opened")
	}
	return m
}

func sendText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.textarea.SetValue(text)
	m, cmd := press(t, m, "enter")
	return pump(t, m, cmd)
}

func TestModel_StartsOnChatList(t *testing.T) {
	env := newTestEnv(t, false)
	opts := env.options()
	opts.ChatID = ""

	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = pump(t, next.(Model), m.loadChats())

	if m.screen != screenList {
		t.Errorf("screen = %d, want list", m.screen)
	}
	if len(m.list.chats) != 1 {
		t.Errorf("list has %d chats, want 1", len(m.list.chats))
	}
	if !strings.Contains(m.View(), "Chats (1)") {
		t.Error("View() should render the chat list")
	}
}

func TestModel_OpenFromList(t *testing.T) {
	env := newTestEnv(t, false)
	opts := env.options()
	opts.ChatID = ""

	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = pump(t, next.(Model), m.loadChats())

	m, cmd := press(t, m, "enter")
	m = pump(t, m, cmd)

	if m.screen != screenChat || m.chatID() != env.chat.ID {
		t.Errorf("screen=%d chat=%q, want chat %q", m.screen, m.chatID(), env.chat.ID)
	}
}

func TestModel_NewChatFromList(t *testing.T) {
	env := newTestEnv(t, false)
	opts := env.options()
	opts.ChatID = ""
	opts.SystemMessage = "be brief"

	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m, cmd := press(t, next.(Model), "n")
	m = pump(t, m, cmd)

	if m.chatID() == "" || m.chatID() == env.chat.ID {
		t.Fatalf("chatID() = %q, want a new chat", m.chatID())
	}
	if got := m.coord.ViewModel().Chat().SystemMessage; got != "be brief" {
		t.Errorf("SystemMessage = %q, want %q", got, "be brief")
	}
}

func TestModel_SendBatch(t *testing.T) {
	env := newTestEnv(t, false)
	env.client.Response = "Hi there"
	m := openModel(t, env)

	m = sendText(t, m, "hello")

	msgs := env.stored(t)
	if len(msgs) != 2 {
		t.Fatalf("stored %d messages, want 2", len(msgs))
	}
	if !msgs[0].Own || msgs[0].Body != "hello" {
		t.Errorf("first message = %+v, want own hello", msgs[0])
	}
	if msgs[1].Own || msgs[1].Body != "Hi there" {
		t.Errorf("second message = %+v, want reply", msgs[1])
	}
	if m.coord.Busy() {
		t.Error("coordinator still busy")
	}
	if m.textarea.Value() != "" {
		t.Errorf("composer = %q, want cleared", m.textarea.Value())
	}
	if !strings.Contains(m.View(), "Hi there") {
		t.Error("View() should show the reply")
	}
}

func TestModel_SendStream(t *testing.T) {
	env := newTestEnv(t, true)
	env.client.Chunks = []string{"Hi", " there"}
	m := openModel(t, env)

	m = sendText(t, m, "hello")

	msgs := env.stored(t)
	if len(msgs) != 2 || msgs[1].Body != "Hi there" {
		t.Fatalf("stored = %+v, want streamed reply", msgs)
	}
	if m.coord.Scroll().State() != chat.Following {
		t.Error("scroll should still follow")
	}
}

func TestModel_LeaveDuringSendKeepsReply(t *testing.T) {
	env := newTestEnv(t, true)
	env.client.Chunks = []string{"partial", " and the rest"}
	m := openModel(t, env)

	m.textarea.SetValue("hello")
	m, sendCmd := press(t, m, "enter")
	m, listCmd := press(t, m, "ctrl+l")
	if m.screen != screenList {
		t.Fatal("ctrl+l should show the chat list")
	}
	if len(m.background) != 1 {
		t.Fatalf("background has %d coordinators, want 1", len(m.background))
	}

	m = pump(t, m, sendCmd, listCmd)

	msgs := env.stored(t)
	if len(msgs) != 2 || msgs[1].Body != "partial and the rest" {
		t.Errorf("stored = %+v, want full reply", msgs)
	}
	if len(m.background) != 0 {
		t.Error("finished coordinator should be released")
	}
}

func TestModel_ErrorAndRetry(t *testing.T) {
	env := newTestEnv(t, false)
	env.client.Err = errors.New("boom")
	m := openModel(t, env)

	m = sendText(t, m, "hello")
	if m.coord.Error() == nil {
		t.Fatal("error state not set")
	}
	view := m.View()
	if !strings.Contains(view, "boom") || !strings.Contains(view, "ctrl+r retry") {
		t.Error("View() should show the error row with its actions")
	}

	env.client.Err = nil
	env.client.Response = "recovered"
	m, cmd := press(t, m, "ctrl+r")
	m = pump(t, m, cmd)

	if m.coord.Error() != nil {
		t.Error("error should be cleared by the retry")
	}
	msgs := env.stored(t)
	if len(msgs) != 2 || msgs[1].Body != "recovered" {
		t.Errorf("stored = %+v, want one own message and the reply", msgs)
	}
}

func TestModel_DismissError(t *testing.T) {
	env := newTestEnv(t, false)
	env.client.Err = errors.New("boom")
	m := openModel(t, env)

	m = sendText(t, m, "hello")
	m, _ = press(t, m, "ctrl+x")

	if m.coord.Error() != nil {
		t.Error("ctrl+x should dismiss the error")
	}
	if strings.Contains(m.View(), "ctrl+r retry") {
		t.Error("error row should be gone")
	}
}

func TestModel_NoService(t *testing.T) {
	env := newTestEnv(t, false)
	env.cfg.Services = nil
	env.cfg.DefaultService = ""
	m := openModel(t, env)

	m = sendText(t, m, "hello")

	if len(env.stored(t)) != 0 {
		t.Error("nothing should be stored without a service")
	}
	if !strings.Contains(m.View(), "Add a service") {
		t.Error("View() should explain the missing service")
	}
}

func TestModel_GeneratesTitle(t *testing.T) {
	env := newTestEnv(t, false)
	env.cfg.Services[0].GenerateChatNames = true
	env.client.Response = "Hi"
	env.client.Title = "Greetings"
	m := openModel(t, env)

	m = sendText(t, m, "hello")

	c, err := env.repo.GetChat(env.chat.ID)
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if c.Name != "Greetings" {
		t.Errorf("Name = %q, want %q", c.Name, "Greetings")
	}
	if !strings.Contains(m.View(), "Greetings") {
		t.Error("header should show the new name")
	}
}

func TestModel_UserScrollStopsFollowing(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)

	m, _ = press(t, m, "pgup")
	if m.coord.Scroll().State() != chat.Manual {
		t.Error("pgup should stop following")
	}

	env.client.Response = "ok"
	m = sendText(t, m, "hello")
	if m.coord.Scroll().State() != chat.Following {
		t.Error("a send should resume following")
	}
}

func TestModel_UpScrollsOnlyWithEmptyComposer(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)

	m.textarea.SetValue("draft")
	m, _ = press(t, m, "up")
	if m.coord.Scroll().State() != chat.Following {
		t.Error("up inside a draft should move the cursor, not scroll")
	}

	m.textarea.SetValue("")
	m, _ = press(t, m, "up")
	if m.coord.Scroll().State() != chat.Manual {
		t.Error("up with an empty composer should scroll")
	}
}

func TestModel_EditSystemMessage(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)
	m.textarea.SetValue("my draft")

	m, _ = press(t, m, "ctrl+e")
	if m.mode != modeSystem {
		t.Fatal("ctrl+e should edit the system message")
	}
	m.textarea.SetValue("  You are terse.  ")
	m, _ = press(t, m, "enter")

	if m.mode != modeCompose {
		t.Error("enter should leave system mode")
	}
	if m.textarea.Value() != "my draft" {
		t.Errorf("composer = %q, want the draft restored", m.textarea.Value())
	}
	c, _ := env.repo.GetChat(env.chat.ID)
	if c.SystemMessage != "You are terse." {
		t.Errorf("SystemMessage = %q, want trimmed text", c.SystemMessage)
	}
}

func TestModel_EditSystemMessageRefusedWhileSending(t *testing.T) {
	env := newTestEnv(t, true)
	env.client.Chunks = []string{"Hi", " there"}
	m := openModel(t, env)

	m.textarea.SetValue("hello")
	m, sendCmd := press(t, m, "enter")
	if !m.coord.Busy() {
		t.Fatal("send should be outstanding")
	}
	m, _ = press(t, m, "ctrl+e")
	if m.mode != modeCompose {
		t.Error("ctrl+e should not open while a reply streams")
	}
	if m.notice == "" {
		t.Error("a notice should explain why")
	}

	pump(t, m, sendCmd)
	if msgs := env.stored(t); len(msgs) != 2 {
		t.Errorf("stored %d messages, want 2", len(msgs))
	}
}

func TestModel_AttachRequiresImageSupport(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)

	m, _ = press(t, m, "ctrl+o")
	if m.mode != modeCompose {
		t.Error("attach mode should not open when uploads are disabled")
	}
	if m.notice == "" {
		t.Error("a notice should explain why")
	}
}

func TestModel_AttachImage(t *testing.T) {
	env := newTestEnv(t, false)
	env.cfg.Services[0].ImageUploadsAllowed = true
	m := openModel(t, env)

	path := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}

	m, _ = press(t, m, "ctrl+o")
	if m.mode != modeAttach {
		t.Fatal("ctrl+o should open the attach prompt")
	}
	m.attachInput.SetValue(path)
	m, _ = press(t, m, "enter")

	if got := m.coord.Attachments(); len(got) != 1 || got[0].FileName != "cat.png" {
		t.Errorf("Attachments() = %v, want cat.png", got)
	}
	if !strings.Contains(m.View(), "cat.png") {
		t.Error("View() should show the attachment chip")
	}
}

func TestModel_EscQuits(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)

	_, cmd := press(t, m, "esc")
	if cmd == nil {
		t.Fatal("esc should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should quit")
	}
}

func TestModel_EscLeavesAttachMode(t *testing.T) {
	env := newTestEnv(t, false)
	env.cfg.Services[0].ImageUploadsAllowed = true
	m := openModel(t, env)

	m, _ = press(t, m, "ctrl+o")
	m, cmd := press(t, m, "esc")

	if m.mode != modeCompose || cmd != nil {
		t.Error("esc in the attach prompt should only close it")
	}
}

func TestModel_ConfigReloadRebindsChat(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)

	cfg := env.cfg
	cfg.Services = []models.APIService{{ID: "test", Name: "Renamed", Type: models.ServiceTypeOpenAI, Model: "gpt-new"}}

	next, cmd := m.Update(configReloadedMsg{cfg: cfg})
	m = pump(t, next.(Model), cmd)

	svc, ok := m.coord.ViewModel().Service()
	if !ok || svc.Model != "gpt-new" {
		t.Errorf("Service() = %+v, want the reloaded service", svc)
	}
	if !strings.Contains(m.View(), "Renamed") {
		t.Error("header should show the reloaded service")
	}
}

func TestModel_RecreateForOtherChatIgnored(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)
	before := m.coord.ViewModel()

	m.cfg.Services = nil
	next, _ := m.Update(recreateViewModelMsg{chatID: "other"})
	m = next.(Model)

	if !m.coord.ViewModel().CanSendMessage() || m.coord.ViewModel() != before {
		t.Error("a stale recreate should leave the chat alone")
	}
}

func TestModel_ConfigReloadError(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)

	next, _ := m.Update(configReloadedMsg{err: errors.New("bad json")})
	m = next.(Model)

	if !strings.Contains(m.notice, "bad json") {
		t.Errorf("notice = %q, want the reload error", m.notice)
	}
}

func TestModel_StaleScrollTickIgnored(t *testing.T) {
	env := newTestEnv(t, false)
	m := openModel(t, env)

	next, cmd := m.Update(scrollTickMsg{chatID: "other", token: 1})
	if cmd != nil {
		t.Error("tick for another chat should do nothing")
	}
	_ = next
}

func TestWaitForEvent_Closed(t *testing.T) {
	ch := make(chan chat.Event)
	close(ch)
	if msg := waitForEvent(ch)(); msg != nil {
		t.Errorf("waitForEvent() on a closed channel = %v, want nil", msg)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/pics/a.png"); got != filepath.Join(home, "pics", "a.png") {
		t.Errorf("expandHome() = %q", got)
	}
	if got := expandHome("/abs/a.png"); got != "/abs/a.png" {
		t.Errorf("expandHome() = %q, want unchanged", got)
	}
}
