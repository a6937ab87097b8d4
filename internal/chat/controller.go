// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/kevinksaji/kevai/internal/knowledge"
	"github.com/kevinksaji/kevai/internal/prompt"
	"github.com/kevinksaji/kevai/internal/provider"
)

// FallbackReply is appended as the assistant turn when a send fails for any
// reason after the user message was accepted. The user message is kept.
const FallbackReply = "Sorry, something went wrong."

// Controller errors.
var (
	// ErrEmptyMessage indicates the input was empty or whitespace-only.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy indicates a send is already in flight for the conversation.
	ErrBusy = errors.New("a send is already in progress for this conversation")
)

// Completer produces an assistant reply for a conversation transcript.
type Completer interface {
	Reply(ctx context.Context, transcript []Message) (string, error)
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline is the production Completer: knowledge base, prompt composer,
// and provider client chained together.
type Pipeline struct {
	Base   *knowledge.Base
	Client *provider.Client

	// MaxMessages caps how many of the newest transcript messages are
	// forwarded to the provider. Zero forwards everything.
	MaxMessages int
}

// Reply composes the system prompt from the full fact base and forwards the
// transcript to the provider. Long conversations are trimmed to the newest
// MaxMessages turns so the request stays within the provider's context.
func (p *Pipeline) Reply(ctx context.Context, transcript []Message) (string, error) {
	systemPrompt := prompt.Compose(p.Base.AllFacts())

	if p.MaxMessages > 0 && len(transcript) > p.MaxMessages {
		transcript = transcript[len(transcript)-p.MaxMessages:]
	}

	msgs := make([]provider.ChatMessage, len(transcript))
	for i, m := range transcript {
		msgs[i] = provider.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return p.Client.Complete(ctx, systemPrompt, msgs)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives sends against the store. Each conversation allows one
// in-flight send at a time; concurrent sends to different conversations are
// fine.
type Controller struct {
	store     *Store
	completer Completer

	mu       sync.Mutex
	inFlight map[string]bool

	initialOnce sync.Once
}

// NewController creates a controller over the given store and completer.
func NewController(store *Store, completer Completer) *Controller {
	return &Controller{
		store:     store,
		completer: completer,
		inFlight:  make(map[string]bool),
	}
}

// Store returns the underlying conversation store.
func (c *Controller) Store() *Store {
	return c.store
}

// Busy reports whether a send is in flight for the conversation.
func (c *Controller) Busy(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[conversationID]
}

// acquire marks the conversation busy, failing if it already is.
func (c *Controller) acquire(conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[conversationID] {
		return ErrBusy
	}
	c.inFlight[conversationID] = true
	return nil
}

// release clears the busy flag.
func (c *Controller) release(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, conversationID)
}

// Send appends the user message to the conversation, requests a completion,
// and appends the assistant reply. Exactly two messages are added per
// accepted send: on completer failure the assistant turn is FallbackReply.
//
// Empty or whitespace-only input is rejected before anything is stored or
// sent. A second Send for the same conversation while one is in flight
// returns ErrBusy without touching the conversation.
func (c *Controller) Send(ctx context.Context, conversationID, text string) (*Conversation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	if err := c.acquire(conversationID); err != nil {
		return nil, err
	}
	defer c.release(conversationID)

	convo, err := c.store.Get(conversationID)
	if err != nil {
		return nil, err
	}

	// Optimistic append: the user turn is persisted before the network call
	// so it survives a crash or provider failure.
	messages := append(convo.Messages, NewUserMessage(text))
	if err := c.store.UpdateMessages(conversationID, messages); err != nil {
		return nil, err
	}

	reply, err := c.completer.Reply(ctx, messages)
	if err != nil {
		log.Printf("SEND FAILED | conversation=%s error=%v", conversationID, err)
		reply = FallbackReply
	}

	messages = append(messages, NewAssistantMessage(reply))
	if err := c.store.UpdateMessages(conversationID, messages); err != nil {
		return nil, err
	}

	return c.store.Get(conversationID)
}

// SendToActive sends to the active conversation, creating one if none exists.
// Empty input is rejected before any conversation is created, so a rejected
// send leaves the store untouched.
func (c *Controller) SendToActive(ctx context.Context, text string) (*Conversation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	active := c.store.Active()
	if active == nil {
		created, err := c.store.Create("")
		if err != nil {
			return nil, err
		}
		active = created
	}
	return c.Send(ctx, active.ID, text)
}

// Complete answers a transcript without touching the store. The caller owns
// the conversation state; nothing is persisted and the single-flight guard
// does not apply. The transcript must end with a non-empty user message.
func (c *Controller) Complete(ctx context.Context, transcript []Message) (string, error) {
	if len(transcript) == 0 {
		return "", ErrEmptyMessage
	}
	last := transcript[len(transcript)-1]
	if last.Role != RoleUser || strings.TrimSpace(last.Content) == "" {
		return "", ErrEmptyMessage
	}
	return c.completer.Reply(ctx, transcript)
}

// StartFromQuery fires an initial query exactly once per controller, no
// matter how many times it is called. Used for the ?q= deep link: the query
// lands in a fresh conversation.
func (c *Controller) StartFromQuery(ctx context.Context, query string) (*Conversation, error) {
	var (
		convo *Conversation
		err   error
		ran   bool
	)
	c.initialOnce.Do(func() {
		ran = true
		if strings.TrimSpace(query) == "" {
			err = ErrEmptyMessage
			return
		}
		var created *Conversation
		created, err = c.store.Create("")
		if err != nil {
			return
		}
		convo, err = c.Send(ctx, created.ID, query)
	})
	if !ran {
		return nil, nil
	}
	return convo, err
}
