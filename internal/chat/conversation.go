// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/google/uuid"

	"github.com/kevinksaji/kevai/internal/util"
)

// DefaultTitle is the placeholder title before the first user message.
const DefaultTitle = "New chat"

// TitleLength is how many runes of the first user message become the title
// unless the store is configured otherwise.
const TitleLength = 30

// Conversation is one chat thread.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// NewConversation creates an empty conversation with a fresh ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:       uuid.NewString(),
		Title:    DefaultTitle,
		Messages: []Message{},
	}
}

// refreshTitle derives the title from the first limit runes of the first
// user message. The title stays DefaultTitle until a user message exists.
func (c *Conversation) refreshTitle(limit int) {
	if limit <= 0 {
		limit = TitleLength
	}
	for _, m := range c.Messages {
		if m.Role == RoleUser && m.Content != "" {
			c.Title = util.FirstRunes(util.CollapseNewlines(m.Content), limit)
			return
		}
	}
	c.Title = DefaultTitle
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	out := &Conversation{
		ID:       c.ID,
		Title:    c.Title,
		Messages: make([]Message, len(c.Messages)),
	}
	copy(out.Messages, c.Messages)
	return out
}
