// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/kevinksaji/kevai/internal/util"
)

// ErrNotFound indicates the conversation ID is not in the store.
var ErrNotFound = errors.New("conversation not found")

// storeFile is the single JSON document the store persists.
// Conversations are kept newest-first so load order matches display order.
type storeFile struct {
	ActiveID      string          `json:"active_id"`
	Conversations []*Conversation `json:"conversations"`
}

// Store holds all conversations and writes every mutation through to disk.
// Safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	path          string
	titleLimit    int
	activeID      string
	conversations []*Conversation
}

// NewStore creates a store backed by the JSON file at path and loads any
// existing state. A corrupt file is moved aside and the store starts empty
// rather than failing.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, titleLimit: TitleLength}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithTitleLength sets how many runes of the first user message become the
// conversation title. Values below 1 keep the default.
func (s *Store) WithTitleLength(n int) *Store {
	if n > 0 {
		s.titleLimit = n
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// load reads the backing file into memory.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.conversations = []*Conversation{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read conversation store: %w", err)
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		// RELIABILITY: Keep the corrupt file for inspection, start fresh.
		backup := s.path + ".corrupt"
		if renameErr := os.Rename(s.path, backup); renameErr == nil {
			log.Printf("STORE CORRUPT | path=%s backup=%s error=%v", s.path, backup, err)
		}
		s.activeID = ""
		s.conversations = []*Conversation{}
		return nil
	}

	s.activeID = f.ActiveID
	s.conversations = f.Conversations
	if s.conversations == nil {
		s.conversations = []*Conversation{}
	}
	for _, c := range s.conversations {
		if c.Messages == nil {
			c.Messages = []Message{}
		}
	}
	// Drop a dangling active pointer
	if s.activeID != "" && s.findLocked(s.activeID) == nil {
		s.activeID = ""
	}
	return nil
}

// persist writes the full store to disk atomically. Caller holds the lock.
func (s *Store) persist() error {
	f := storeFile{
		ActiveID:      s.activeID,
		Conversations: s.conversations,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return util.AtomicWriteFile(s.path, data, 0600)
}

// findLocked returns the conversation with the given ID. Caller holds the lock.
func (s *Store) findLocked(id string) *Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create adds a new conversation at the front of the list, makes it active,
// and persists. A non-empty firstMessageText seeds the conversation with one
// user message and derives the title from it; otherwise the conversation
// starts empty with the default title.
func (s *Store) Create(firstMessageText string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := NewConversation()
	if firstMessageText != "" {
		c.Messages = append(c.Messages, NewUserMessage(firstMessageText))
		c.refreshTitle(s.titleLimit)
	}
	s.conversations = append([]*Conversation{c}, s.conversations...)
	s.activeID = c.ID

	if err := s.persist(); err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// UpdateMessages replaces a conversation's messages, refreshes its title,
// and persists.
func (s *Store) UpdateMessages(id string, messages []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findLocked(id)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c.Messages = make([]Message, len(messages))
	copy(c.Messages, messages)
	c.refreshTitle(s.titleLimit)

	return s.persist()
}

// SetActive marks a conversation as the active one and persists.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(id) == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.activeID = id
	return s.persist()
}

// Remove deletes a conversation and persists. If it was active, the newest
// remaining conversation becomes active, or none when the store is empty.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.conversations {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)

	if s.activeID == id {
		if len(s.conversations) > 0 {
			s.activeID = s.conversations[0].ID
		} else {
			s.activeID = ""
		}
	}
	return s.persist()
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a copy of the conversation with the given ID.
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.findLocked(id)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.Clone(), nil
}

// List returns copies of all conversations, newest first.
func (s *Store) List() []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// Active returns a copy of the active conversation, or nil when none is set.
func (s *Store) Active() *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return nil
	}
	if c := s.findLocked(s.activeID); c != nil {
		return c.Clone()
	}
	return nil
}

// ActiveID returns the active conversation ID, or empty when none is set.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
