package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/diogo/llmchat/internal/models"
)

const (
	metaFileName = "meta.json"
	metaVersion  = 1
)

// ChatMeta stores per-chat flags that are not part of the chat file
type ChatMeta struct {
	ID       string `json:"id"`
	Title    string `json:"title"` // cached for quick listing
	IsPinned bool   `json:"is_pinned"`
}

// HistoryMeta is the content of meta.json
type HistoryMeta struct {
	Version int                  `json:"version"`
	Meta    map[string]*ChatMeta `json:"meta"`
}

func newHistoryMeta() *HistoryMeta {
	return &HistoryMeta{
		Version: metaVersion,
		Meta:    make(map[string]*ChatMeta),
	}
}

func (s *Store) metaPath() string {
	return filepath.Join(s.baseDir, metaFileName)
}

// loadMeta reads meta.json, returning an empty HistoryMeta when absent
func (s *Store) loadMeta() (*HistoryMeta, error) {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return newHistoryMeta(), nil
		}
		return nil, fmt.Errorf("failed to read meta file: %w", err)
	}

	var meta HistoryMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse meta file: %w", err)
	}
	if meta.Meta == nil {
		meta.Meta = make(map[string]*ChatMeta)
	}
	return &meta, nil
}

func (s *Store) saveMeta(meta *HistoryMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write meta file: %w", err)
	}
	return nil
}

func (s *Store) applyMeta(chat *models.Chat, meta *HistoryMeta) {
	if m, ok := meta.Meta[chat.ID]; ok {
		chat.IsPinned = m.IsPinned
	} else {
		chat.IsPinned = false
	}
}

// touchMeta makes sure chat has a meta entry with a current title.
func (s *Store) touchMeta(chat *models.Chat) error {
	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	m, ok := meta.Meta[chat.ID]
	if !ok {
		meta.Meta[chat.ID] = &ChatMeta{ID: chat.ID, Title: chat.Name}
		return s.saveMeta(meta)
	}
	if m.Title == chat.Name {
		return nil
	}
	m.Title = chat.Name
	return s.saveMeta(meta)
}

func (s *Store) removeFromMeta(id string) error {
	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	if _, ok := meta.Meta[id]; !ok {
		return nil
	}
	delete(meta.Meta, id)
	return s.saveMeta(meta)
}

// SetPinned sets the pinned status of a chat
func (s *Store) SetPinned(id string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.loadChat(id)
	if err != nil {
		return err
	}

	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	m, ok := meta.Meta[id]
	if !ok {
		m = &ChatMeta{ID: id, Title: chat.Name}
		meta.Meta[id] = m
	}
	m.IsPinned = pinned
	return s.saveMeta(meta)
}

// IsPinned reports whether a chat is pinned
func (s *Store) IsPinned(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.loadMeta()
	if err != nil {
		return false, err
	}
	if m, ok := meta.Meta[id]; ok {
		return m.IsPinned, nil
	}
	return false, nil
}

// cleanOrphanedMeta drops entries whose chat file no longer exists
func (s *Store) cleanOrphanedMeta(meta *HistoryMeta, existing map[string]bool) bool {
	changed := false
	for id := range meta.Meta {
		if !existing[id] {
			delete(meta.Meta, id)
			changed = true
		}
	}
	return changed
}
