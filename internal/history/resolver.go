package history

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/diogo/llmchat/internal/models"
)

// Resolver resolves user-friendly references to chat IDs
type Resolver struct {
	repo Repository
}

// NewResolver creates a new reference resolver
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve converts a user-friendly reference to a chat ID
//
// Supported references:
//   - "@last" - most recently updated chat
//   - "@first" - oldest chat in the list
//   - "1", "2", "3" - by index in the list (1-based)
//   - a chat ID
//   - "substring" - match on title (error if several match)
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	chats, err := r.repo.ListChats()
	if err != nil {
		return "", fmt.Errorf("failed to list chats: %w", err)
	}
	if len(chats) == 0 {
		return "", fmt.Errorf("no chats found")
	}

	switch strings.ToLower(ref) {
	case "@last":
		return mostRecent(chats).ID, nil
	case "@first":
		return leastRecent(chats).ID, nil
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(chats) {
			return "", fmt.Errorf("index %d out of range (1-%d)", index, len(chats))
		}
		return chats[index-1].ID, nil
	}

	for _, chat := range chats {
		if chat.ID == ref {
			return chat.ID, nil
		}
	}

	refLower := strings.ToLower(ref)
	var matches []*models.Chat
	for _, chat := range chats {
		if strings.Contains(strings.ToLower(chat.Title()), refLower) {
			matches = append(matches, chat)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no chat matching '%s'", ref)
	case 1:
		return matches[0].ID, nil
	default:
		var titles []string
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("'%s'", m.Title()))
		}
		return "", fmt.Errorf("multiple chats match '%s': %s. Use ID or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// mostRecent ignores pinning, which only affects list order.
func mostRecent(chats []*models.Chat) *models.Chat {
	latest := chats[0]
	for _, c := range chats[1:] {
		if c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
		}
	}
	return latest
}

func leastRecent(chats []*models.Chat) *models.Chat {
	oldest := chats[0]
	for _, c := range chats[1:] {
		if c.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = c
		}
	}
	return oldest
}

// ResolveChat resolves a reference and loads the chat
func (r *Resolver) ResolveChat(ref string) (*models.Chat, error) {
	id, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return r.repo.GetChat(id)
}

// ListAliases returns information about supported references
func ListAliases() string {
	return `Supported references:
  @last          Most recently updated chat
  @first         Oldest chat in the list
  1, 2, 3        By index (1-based, pinned chats first)
  <id>           Direct chat ID
  "text"         Search by title substring`
}
