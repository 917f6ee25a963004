package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/diogo/llmchat/internal/models"
)

// Key layout:
//
//	chat:<id>                 chat header (no messages)
//	msg:<chatID>:<%020d seq>  one message
const (
	chatPrefix = "chat:"
	chatUpper  = "chat;" // ';' sorts right after ':'
)

// PebbleStore keeps chats in a pebble database. Appending or deleting a
// message touches a single key.
type PebbleStore struct {
	db *pebble.DB
	mu sync.Mutex
}

// NewPebbleStore opens (or creates) the database at path
func NewPebbleStore(path string) (*PebbleStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func chatKey(id string) []byte {
	return []byte(chatPrefix + id)
}

func msgPrefix(chatID string) []byte {
	return []byte("msg:" + chatID + ":")
}

func msgUpper(chatID string) []byte {
	return []byte("msg:" + chatID + ";")
}

func msgKey(chatID string, id int64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%020d", chatID, id))
}

// CreateChat creates and persists an empty chat
func (s *PebbleStore) CreateChat(serviceID, systemMessage string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := newChat(serviceID, systemMessage)
	if err := s.putHeader(s.db, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat retrieves a chat with its messages
func (s *PebbleStore) GetChat(id string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadChat(id)
}

// ListChats returns all chats, pinned first then most recent
func (s *PebbleStore) ListChats() ([]*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(chatPrefix),
		UpperBound: []byte(chatUpper),
	})
	if err != nil {
		return nil, err
	}

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(chatPrefix):]))
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	chats := make([]*models.Chat, 0, len(ids))
	for _, id := range ids {
		chat, err := s.loadChat(id)
		if err != nil {
			continue // skip corrupted entries
		}
		chats = append(chats, chat)
	}
	sortChats(chats)
	return chats, nil
}

// AppendMessage writes the message and the bumped chat header in one batch
func (s *PebbleStore) AppendMessage(chatID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.loadHeader(chatID)
	if err != nil {
		return err
	}
	msg.WaitingForResponse = false
	if msg.Timestamp.After(chat.UpdatedAt) {
		chat.UpdatedAt = msg.Timestamp
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(msgKey(chatID, msg.ID), data, nil); err != nil {
		return err
	}
	if err := s.putHeader(b, chat); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// DeleteMessage removes one message key
func (s *PebbleStore) DeleteMessage(chatID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.loadHeader(chatID); err != nil {
		return err
	}
	return s.db.Delete(msgKey(chatID, id), pebble.Sync)
}

// SaveChat rewrites the header and the full message range
func (s *PebbleStore) SaveChat(chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	if err := b.DeleteRange(msgPrefix(chat.ID), msgUpper(chat.ID), nil); err != nil {
		return err
	}
	for _, m := range chat.Messages {
		m.WaitingForResponse = false
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if err := b.Set(msgKey(chat.ID, m.ID), data, nil); err != nil {
			return err
		}
	}
	if err := s.putHeader(b, chat); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// DeleteChat removes the header and all messages of a chat
func (s *PebbleStore) DeleteChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.loadHeader(id); err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange(msgPrefix(id), msgUpper(id), nil); err != nil {
		return err
	}
	if err := b.Delete(chatKey(id), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// SetPinned sets the pinned status of a chat
func (s *PebbleStore) SetPinned(id string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.loadHeader(id)
	if err != nil {
		return err
	}
	chat.IsPinned = pinned
	return s.putHeader(s.db, chat)
}

// UpdateTitle renames a chat
func (s *PebbleStore) UpdateTitle(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.loadHeader(id)
	if err != nil {
		return err
	}
	chat.Name = title
	return s.putHeader(s.db, chat)
}

// ClearAll deletes every chat and message
func (s *PebbleStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange([]byte(chatPrefix), []byte(chatUpper), nil); err != nil {
		return err
	}
	if err := b.DeleteRange([]byte("msg:"), []byte("msg;"), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Close closes the database
func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type setter interface {
	Set(key, value []byte, opts *pebble.WriteOptions) error
}

func (s *PebbleStore) putHeader(w setter, chat *models.Chat) error {
	header := *chat
	header.Messages = nil
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	return w.Set(chatKey(chat.ID), data, pebble.Sync)
}

func (s *PebbleStore) loadHeader(id string) (*models.Chat, error) {
	v, closer, err := s.db.Get(chatKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrChatNotFound, id)
		}
		return nil, err
	}
	defer closer.Close()

	var chat models.Chat
	if err := json.Unmarshal(v, &chat); err != nil {
		return nil, fmt.Errorf("failed to parse chat: %w", err)
	}
	return &chat, nil
}

func (s *PebbleStore) loadChat(id string) (*models.Chat, error) {
	chat, err := s.loadHeader(id)
	if err != nil {
		return nil, err
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: msgPrefix(id),
		UpperBound: msgUpper(id),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	chat.Messages = []models.Message{}
	for iter.First(); iter.Valid(); iter.Next() {
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("failed to parse message %s: %w", iter.Key(), err)
		}
		chat.Messages = append(chat.Messages, m)
	}
	return chat, nil
}
