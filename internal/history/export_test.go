package history

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func seedChat(t *testing.T, repo Repository, name string, bodies ...string) string {
	t.Helper()
	chat, err := repo.CreateChat("openai", "Be brief.")
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if name != "" {
		_ = repo.UpdateTitle(chat.ID, name)
	}
	now := time.Now()
	for i, b := range bodies {
		_ = repo.AppendMessage(chat.ID, msg(int64(i+1), b, i%2 == 0, now))
	}
	return chat.ID
}

func TestExportMarkdown(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	id := seedChat(t, store, "Greetings",
		"Hello\n<image-uuid>0b9a4a3e-0d2f-4c1e-9d7a-3f1b2c4d5e6f</image-uuid>",
		"<think>plan</think>Hi there")

	md, err := ExportMarkdown(store, id, DefaultExportOptions())
	if err != nil {
		t.Fatalf("ExportMarkdown failed: %v", err)
	}

	for _, want := range []string{"# Greetings", "**Service:** openai", "> Be brief.", "## User", "Hello\n[image]", "## Assistant", "Hi there"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "<think>") {
		t.Error("thinking should be stripped by default")
	}

	opts := DefaultExportOptions()
	opts.IncludeThinking = true
	md, _ = ExportMarkdown(store, id, opts)
	if !strings.Contains(md, "<think>plan</think>") {
		t.Error("IncludeThinking should keep reasoning blocks")
	}
}

func TestExportJSON(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	id := seedChat(t, store, "", "Look\n<image-uuid>0b9a4a3e-0d2f-4c1e-9d7a-3f1b2c4d5e6f</image-uuid>", "Nice")

	data, err := ExportJSON(store, id, DefaultExportOptions())
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var out exportChat
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Title != "New chat" {
		t.Errorf("Title = %s", out.Title)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out.Messages))
	}
	if out.Messages[0].Role != "user" || out.Messages[1].Role != "assistant" {
		t.Errorf("roles = %s, %s", out.Messages[0].Role, out.Messages[1].Role)
	}
	if len(out.Messages[0].Images) != 1 {
		t.Errorf("Images = %v", out.Messages[0].Images)
	}
	if out.SystemMessage != "Be brief." {
		t.Errorf("SystemMessage = %q", out.SystemMessage)
	}
}

func TestSearch(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	seedChat(t, store, "Go generics", "What are type parameters?", "They are...")
	seedChat(t, store, "Dinner", "Suggest a GO-TO pasta recipe", "Carbonara")

	results, err := Search(store, "go", false)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].MatchField != "title" {
		t.Errorf("title-only search = %+v", results)
	}

	results, _ = Search(store, "go", true)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	results, _ = Search(store, "nothing here", true)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestExtractSnippet(t *testing.T) {
	content := strings.Repeat("a", 100) + "needle" + strings.Repeat("b", 100)
	snippet := extractSnippet(content, "needle", 20)
	if !strings.Contains(snippet, "needle") {
		t.Errorf("snippet %q lacks match", snippet)
	}
	if !strings.HasPrefix(snippet, "...") || !strings.HasSuffix(snippet, "...") {
		t.Errorf("snippet %q should be elided on both sides", snippet)
	}

	if got := extractSnippet("needle first", "needle", 100); got != "needle first" {
		t.Errorf("short content = %q", got)
	}
}
