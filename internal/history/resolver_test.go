package history

import (
	"strings"
	"testing"
	"time"
)

func seedResolverStore(t *testing.T) (*Store, []string) {
	t.Helper()
	store, _ := NewStore(t.TempDir())
	base := time.Now()
	var ids []string
	for i, name := range []string{"Go channels", "Rust lifetimes", "Go generics"} {
		chat, _ := store.CreateChat("", "")
		_ = store.UpdateTitle(chat.ID, name)
		_ = store.AppendMessage(chat.ID, msg(1, "q", true, base.Add(time.Duration(i+1)*time.Minute)))
		ids = append(ids, chat.ID)
	}
	return store, ids
}

func TestResolver_Aliases(t *testing.T) {
	store, ids := seedResolverStore(t)
	r := NewResolver(store)

	tests := []struct {
		ref  string
		want string
	}{
		{"@last", ids[2]},
		{"@LAST", ids[2]},
		{"@first", ids[0]},
		{"1", ids[2]},
		{"3", ids[0]},
		{ids[1], ids[1]},
		{"rust", ids[1]},
	}

	for _, tt := range tests {
		got, err := r.Resolve(tt.ref)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tt.ref, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %s, want %s", tt.ref, got, tt.want)
		}
	}
}

func TestResolver_PinnedDoesNotChangeLast(t *testing.T) {
	store, ids := seedResolverStore(t)
	_ = store.SetPinned(ids[0], true)
	r := NewResolver(store)

	if got, _ := r.Resolve("@last"); got != ids[2] {
		t.Errorf("@last = %s, want %s", got, ids[2])
	}
	if got, _ := r.Resolve("1"); got != ids[0] {
		t.Errorf("index 1 should be the pinned chat, got %s", got)
	}
}

func TestResolver_Errors(t *testing.T) {
	store, _ := seedResolverStore(t)
	r := NewResolver(store)

	if _, err := r.Resolve(""); err == nil {
		t.Error("empty reference should fail")
	}
	if _, err := r.Resolve("9"); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("out of range error = %v", err)
	}
	if _, err := r.Resolve("python"); err == nil {
		t.Error("no match should fail")
	}
	if _, err := r.Resolve("go"); err == nil || !strings.Contains(err.Error(), "multiple") {
		t.Errorf("ambiguous error = %v", err)
	}

	empty, _ := NewStore(t.TempDir())
	if _, err := NewResolver(empty).Resolve("@last"); err == nil {
		t.Error("empty store should fail")
	}
}

func TestResolver_ResolveChat(t *testing.T) {
	store, ids := seedResolverStore(t)

	chat, err := NewResolver(store).ResolveChat("lifetimes")
	if err != nil {
		t.Fatalf("ResolveChat failed: %v", err)
	}
	if chat.ID != ids[1] || len(chat.Messages) != 1 {
		t.Errorf("ResolveChat() = %+v", chat)
	}
}

func TestListAliases(t *testing.T) {
	if !strings.Contains(ListAliases(), "@last") {
		t.Error("ListAliases should mention @last")
	}
}
