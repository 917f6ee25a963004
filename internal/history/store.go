package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/diogo/llmchat/internal/models"
)

// Store keeps one JSON file per chat. Pinned flags and the cached title live
// in meta.json next to them.
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates a new JSON file store
func NewStore(baseDir string) (*Store, error) {
	historyDir := filepath.Join(baseDir, "history")
	if err := os.MkdirAll(historyDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Store{
		baseDir: historyDir,
	}, nil
}

// CreateChat creates and persists an empty chat
func (s *Store) CreateChat(serviceID, systemMessage string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := newChat(serviceID, systemMessage)
	if err := s.saveChat(chat); err != nil {
		return nil, err
	}
	if err := s.touchMeta(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat retrieves a chat by ID
func (s *Store) GetChat(id string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, err := s.loadChat(id)
	if err != nil {
		return nil, err
	}
	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	s.applyMeta(chat, meta)
	return chat, nil
}

// ListChats returns all chats, pinned first then most recent
func (s *Store) ListChats() ([]*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	meta, err := s.loadMeta()
	if err != nil {
		return nil, err
	}

	var chats []*models.Chat
	existing := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || name == metaFileName {
			continue
		}

		id := name[:len(name)-5]
		chat, err := s.loadChat(id)
		if err != nil {
			continue // skip corrupted files
		}
		s.applyMeta(chat, meta)
		existing[id] = true
		chats = append(chats, chat)
	}

	if s.cleanOrphanedMeta(meta, existing) {
		_ = s.saveMeta(meta)
	}

	sortChats(chats)
	return chats, nil
}

// AppendMessage adds a message to a chat
func (s *Store) AppendMessage(chatID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.loadChat(chatID)
	if err != nil {
		return err
	}
	appendTo(chat, msg)
	return s.saveChat(chat)
}

// DeleteMessage removes a message from a chat
func (s *Store) DeleteMessage(chatID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.loadChat(chatID)
	if err != nil {
		return err
	}
	if !removeFrom(chat, id) {
		return nil
	}
	return s.saveChat(chat)
}

// SaveChat persists the chat as given
func (s *Store) SaveChat(chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveChat(chat); err != nil {
		return err
	}
	return s.touchMeta(chat)
}

// DeleteChat removes a chat
func (s *Store) DeleteChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.chatPath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrChatNotFound, id)
		}
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	return s.removeFromMeta(id)
}

// UpdateTitle renames a chat
func (s *Store) UpdateTitle(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.loadChat(id)
	if err != nil {
		return err
	}
	chat.Name = title
	if err := s.saveChat(chat); err != nil {
		return err
	}
	return s.touchMeta(chat)
}

// ClearAll deletes all chats
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read history directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) chatPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *Store) loadChat(id string) (*models.Chat, error) {
	data, err := os.ReadFile(s.chatPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrChatNotFound, id)
		}
		return nil, fmt.Errorf("failed to read chat: %w", err)
	}

	var chat models.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("failed to parse chat: %w", err)
	}
	models.SortMessages(chat.Messages)
	return &chat, nil
}

func (s *Store) saveChat(chat *models.Chat) error {
	if chat.UpdatedAt.IsZero() {
		chat.UpdatedAt = time.Now()
	}
	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	if err := os.WriteFile(s.chatPath(chat.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write chat: %w", err)
	}

	return nil
}
