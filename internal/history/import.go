package history

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/diogo/llmchat/internal/models"
)

// ImportChatGPT reads a ChatGPT conversations.json export and stores one
// chat per conversation. Only the branch ending at current_node is kept, and
// only text parts of user and assistant turns. It returns the number of
// chats created.
func ImportChatGPT(repo Repository, r io.Reader, serviceID string) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read export: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("export is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return 0, fmt.Errorf("export must be a JSON array of conversations")
	}

	imported := 0
	var importErr error
	root.ForEach(func(_, conv gjson.Result) bool {
		msgs := chatGPTMessages(conv)
		if len(msgs) == 0 {
			return true
		}

		chat, err := repo.CreateChat(serviceID, "")
		if err != nil {
			importErr = err
			return false
		}
		chat.Name = strings.TrimSpace(conv.Get("title").String())
		if created := unixFloat(conv.Get("create_time").Float()); !created.IsZero() {
			chat.CreatedAt = created
		}
		chat.Messages = msgs
		chat.UpdatedAt = msgs[len(msgs)-1].Timestamp
		if updated := unixFloat(conv.Get("update_time").Float()); updated.After(chat.UpdatedAt) {
			chat.UpdatedAt = updated
		}
		if chat.UpdatedAt.IsZero() {
			chat.UpdatedAt = chat.CreatedAt
		}

		if err := repo.SaveChat(chat); err != nil {
			importErr = err
			return false
		}
		imported++
		return true
	})

	return imported, importErr
}

func chatGPTMessages(conv gjson.Result) []models.Message {
	nodes := make(map[string]gjson.Result)
	conv.Get("mapping").ForEach(func(key, node gjson.Result) bool {
		nodes[key.String()] = node
		return true
	})

	// Walk from the current leaf back to the root.
	var chain []gjson.Result
	seen := make(map[string]bool)
	for id := conv.Get("current_node").String(); id != "" && !seen[id]; {
		seen[id] = true
		node, ok := nodes[id]
		if !ok {
			break
		}
		chain = append(chain, node)
		id = node.Get("parent").String()
	}

	var msgs []models.Message
	for i := len(chain) - 1; i >= 0; i-- {
		msg := chain[i].Get("message")
		role := msg.Get("author.role").String()
		if role != "user" && role != "assistant" {
			continue
		}
		if ct := msg.Get("content.content_type").String(); ct != "text" {
			continue
		}

		var parts []string
		msg.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
			if part.Type == gjson.String && strings.TrimSpace(part.String()) != "" {
				parts = append(parts, part.String())
			}
			return true
		})
		if len(parts) == 0 {
			continue
		}

		msgs = append(msgs, models.Message{
			ID:        int64(len(msgs) + 1),
			Body:      strings.Join(parts, "\n"),
			Own:       role == "user",
			Timestamp: unixFloat(msg.Get("create_time").Float()),
		})
	}
	return msgs
}

func unixFloat(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9))
}
