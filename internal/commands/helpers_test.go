package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/diogo/llmchat/internal/api"
	"github.com/diogo/llmchat/internal/config"
	"github.com/diogo/llmchat/internal/history"
	"github.com/diogo/llmchat/internal/models"
	"github.com/diogo/llmchat/internal/tui"
)

// fakeTUI records the options of the last chat UI start.
type fakeTUI struct {
	opts  tui.Options
	calls int
	err   error
}

func (f *fakeTUI) RunChat(opts tui.Options) error {
	f.opts = opts
	f.calls++
	return f.err
}

type testDeps struct {
	*Dependencies
	dir    string
	client *api.MockClient
	tui    *fakeTUI
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Services = []models.APIService{{
		ID:     "test",
		Name:   "Test",
		Type:   models.ServiceTypeOpenAI,
		Model:  "gpt-test",
		APIKey: "sk-test-1234567890",
	}}
	cfg.DefaultService = "test"
	return cfg
}

// newTestDeps writes cfg to a fresh data directory and wires a mock client.
func newTestDeps(t *testing.T, cfg config.Config) *testDeps {
	t.Helper()
	dir := t.TempDir()
	if err := config.SaveConfigTo(filepath.Join(dir, "config.json"), cfg); err != nil {
		t.Fatalf("SaveConfigTo() error = %v", err)
	}

	td := &testDeps{
		dir:    dir,
		client: &api.MockClient{Response: "Hi there", Title: "Greeting"},
		tui:    &fakeTUI{},
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	td.Dependencies = &Dependencies{
		DataDir:   dir,
		NewClient: func(models.APIService) api.Client { return td.client },
		TUI:       td.tui,
		Stdout:    td.out,
		Stderr:    td.errOut,
	}
	return td
}

// run executes the command line args against a fresh command tree.
func (td *testDeps) run(t *testing.T, args ...string) error {
	t.Helper()
	td.out.Reset()
	td.errOut.Reset()
	cmd := NewRootCmd(td.Dependencies)
	cmd.SetArgs(args)
	err := cmd.Execute()
	td.close()
	return err
}

func (td *testDeps) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := td.run(t, args...); err != nil {
		t.Fatalf("%v: error = %v (stderr: %s)", args, err, td.errOut.String())
	}
	return td.out.String()
}

// store opens the data directory directly.
func (td *testDeps) store(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.NewStore(td.dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func (td *testDeps) chats(t *testing.T) []*models.Chat {
	t.Helper()
	chats, err := td.store(t).ListChats()
	if err != nil {
		t.Fatalf("ListChats() error = %v", err)
	}
	return chats
}

func (td *testDeps) seedChat(t *testing.T, name string, bodies ...string) *models.Chat {
	t.Helper()
	s := td.store(t)
	c, err := s.CreateChat("test", "")
	if err != nil {
		t.Fatalf("CreateChat() error = %v", err)
	}
	for i, body := range bodies {
		msg := models.Message{ID: int64(i + 1), Body: body, Own: i%2 == 0}
		if err := s.AppendMessage(c.ID, msg); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}
	if name != "" {
		if err := s.UpdateTitle(c.ID, name); err != nil {
			t.Fatalf("UpdateTitle() error = %v", err)
		}
	}
	c, _ = s.GetChat(c.ID)
	return c
}
