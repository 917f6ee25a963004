package commands

import (
	"strings"
	"testing"
)

func TestPersona_List(t *testing.T) {
	td := newTestDeps(t, testConfig())

	out := td.mustRun(t, "persona", "list")

	for _, want := range []string{"NAME", "default", "coder", "editor", "tutor", "✓"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestPersona_AddShowDelete(t *testing.T) {
	td := newTestDeps(t, testConfig())

	out := td.mustRun(t, "persona", "add", "pirate", "-d", "Talks like a pirate", "-s", "test", "-m", "Answer like a pirate.")
	if !strings.Contains(out, "Persona 'pirate' saved.") {
		t.Errorf("stdout = %q", out)
	}

	out = td.mustRun(t, "persona", "show", "pirate")
	for _, want := range []string{"Name: pirate", "Talks like a pirate", "Service: test", "Answer like a pirate."} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	td.mustRun(t, "ask", "--persona", "pirate", "hello")
	req, _ := td.client.LastRequest()
	if req.SystemMessage != "Answer like a pirate." {
		t.Errorf("SystemMessage = %q", req.SystemMessage)
	}

	out = td.mustRun(t, "persona", "delete", "pirate")
	if !strings.Contains(out, "Persona 'pirate' deleted.") {
		t.Errorf("stdout = %q", out)
	}
	if err := td.run(t, "persona", "show", "pirate"); err == nil {
		t.Error("deleted persona should not be found")
	}
}

func TestPersona_AddFromStdin(t *testing.T) {
	td := newTestDeps(t, testConfig())
	td.Stdin = strings.NewReader("Line one.\nLine two.\n\nignored\n")

	td.mustRun(t, "persona", "add", "poet")

	out := td.mustRun(t, "persona", "show", "poet")
	if !strings.Contains(out, "Line one.\nLine two.") || strings.Contains(out, "ignored") {
		t.Errorf("show output:\n%s", out)
	}
}

func TestPersona_AddInvalid(t *testing.T) {
	td := newTestDeps(t, testConfig())

	if err := td.run(t, "persona", "add", "bad name", "-m", "x"); err == nil {
		t.Error("expected an error for a name with a space")
	}
	if err := td.run(t, "persona", "add", "ok", "-s", "missing", "-m", "x"); err == nil {
		t.Error("expected an error for an unknown service")
	}
}

func TestPersona_Default(t *testing.T) {
	td := newTestDeps(t, testConfig())

	out := td.mustRun(t, "persona", "default", "coder")
	if !strings.Contains(out, "Default persona set to 'coder'.") {
		t.Errorf("stdout = %q", out)
	}

	td.mustRun(t, "ask", "hi")
	if c := td.chats(t)[0]; !strings.Contains(c.SystemMessage, "software engineer") {
		t.Errorf("new chats should use the default persona, got %q", c.SystemMessage)
	}

	if err := td.run(t, "persona", "default", "nobody"); err == nil {
		t.Error("expected an error for an unknown persona")
	}
}

func TestPersona_DefaultUndeletable(t *testing.T) {
	td := newTestDeps(t, testConfig())

	if err := td.run(t, "persona", "delete", "default"); err == nil {
		t.Error("the default persona should not be deletable")
	}
}
