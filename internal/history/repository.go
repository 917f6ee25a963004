// Package history persists chats, their messages and attached images.
package history

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diogo/llmchat/internal/config"
	"github.com/diogo/llmchat/internal/models"
)

// ErrChatNotFound is returned when a chat ID has no stored chat.
var ErrChatNotFound = errors.New("chat not found")

// Repository is the message store consumed by the chat view-model.
type Repository interface {
	CreateChat(serviceID, systemMessage string) (*models.Chat, error)
	GetChat(id string) (*models.Chat, error)
	// ListChats returns pinned chats first, then the rest by most recent
	// update.
	ListChats() ([]*models.Chat, error)
	AppendMessage(chatID string, msg models.Message) error
	DeleteMessage(chatID string, id int64) error
	// SaveChat persists the chat header and its full message list.
	SaveChat(chat *models.Chat) error
	DeleteChat(id string) error
	SetPinned(id string, pinned bool) error
	UpdateTitle(id, title string) error
	ClearAll() error
	Close() error
}

// Open returns the repository selected by cfg.StorageBackend under baseDir.
func Open(cfg config.Config, baseDir string) (Repository, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case "", config.StorageJSON:
		return NewStore(baseDir)
	case config.StoragePebble:
		return NewPebbleStore(filepath.Join(baseDir, "db"))
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

func newChat(serviceID, systemMessage string) *models.Chat {
	now := time.Now()
	return &models.Chat{
		ID:            uuid.New().String(),
		SystemMessage: systemMessage,
		APIServiceID:  serviceID,
		CreatedAt:     now,
		UpdatedAt:     now,
		Messages:      []models.Message{},
	}
}

func sortChats(chats []*models.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		if chats[i].IsPinned != chats[j].IsPinned {
			return chats[i].IsPinned
		}
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
}

// appendTo adds msg to chat and bumps UpdatedAt. Messages are stored without
// the transient waiting flag.
func appendTo(chat *models.Chat, msg models.Message) {
	msg.WaitingForResponse = false
	chat.Messages = append(chat.Messages, msg)
	if msg.Timestamp.After(chat.UpdatedAt) {
		chat.UpdatedAt = msg.Timestamp
	}
}

func removeFrom(chat *models.Chat, id int64) bool {
	for i, m := range chat.Messages {
		if m.ID == id {
			chat.Messages = append(chat.Messages[:i], chat.Messages[i+1:]...)
			return true
		}
	}
	return false
}
