package history

import (
	"strings"
	"testing"
)

const chatGPTExport = `[
  {
    "title": "Sourdough tips",
    "create_time": 1700000000.5,
    "update_time": 1700000600.0,
    "current_node": "n4",
    "mapping": {
      "root": {"id": "root", "message": null, "parent": null, "children": ["n1"]},
      "n1": {"id": "n1", "parent": "root", "message": {"author": {"role": "system"}, "content": {"content_type": "text", "parts": [""]}, "create_time": null}},
      "n2": {"id": "n2", "parent": "n1", "message": {"author": {"role": "user"}, "content": {"content_type": "text", "parts": ["How long should I proof?"]}, "create_time": 1700000100}},
      "n3": {"id": "n3", "parent": "n2", "message": {"author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["Usually 4 to 6 hours."]}, "create_time": 1700000200}},
      "n3b": {"id": "n3b", "parent": "n2", "message": {"author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["An abandoned branch."]}, "create_time": 1700000150}},
      "n4": {"id": "n4", "parent": "n3", "message": {"author": {"role": "tool"}, "content": {"content_type": "code", "parts": ["x"]}, "create_time": 1700000300}}
    }
  },
  {
    "title": "Empty",
    "current_node": "a",
    "mapping": {"a": {"id": "a", "parent": null, "message": null}}
  }
]`

func TestImportChatGPT(t *testing.T) {
	backends(t, func(t *testing.T, repo Repository) {
		n, err := ImportChatGPT(repo, strings.NewReader(chatGPTExport), "openai")
		if err != nil {
			t.Fatalf("ImportChatGPT failed: %v", err)
		}
		if n != 1 {
			t.Fatalf("imported %d chats, want 1", n)
		}

		chats, _ := repo.ListChats()
		if len(chats) != 1 {
			t.Fatalf("expected 1 stored chat, got %d", len(chats))
		}
		chat := chats[0]
		if chat.Name != "Sourdough tips" || chat.APIServiceID != "openai" {
			t.Errorf("chat = %+v", chat)
		}
		if len(chat.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(chat.Messages))
		}
		if !chat.Messages[0].Own || chat.Messages[0].Body != "How long should I proof?" {
			t.Errorf("first = %+v", chat.Messages[0])
		}
		if chat.Messages[1].Own || chat.Messages[1].Body != "Usually 4 to 6 hours." {
			t.Errorf("second = %+v", chat.Messages[1])
		}
		if chat.UpdatedAt.Unix() != 1700000600 {
			t.Errorf("UpdatedAt = %v", chat.UpdatedAt)
		}
	})
}

func TestImportChatGPT_Invalid(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	if _, err := ImportChatGPT(store, strings.NewReader("{not json"), ""); err == nil {
		t.Error("invalid JSON should fail")
	}
	if _, err := ImportChatGPT(store, strings.NewReader(`{"title": "x"}`), ""); err == nil {
		t.Error("non-array export should fail")
	}
}
