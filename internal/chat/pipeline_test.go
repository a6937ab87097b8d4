// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevinksaji/kevai/internal/knowledge"
	"github.com/kevinksaji/kevai/internal/provider"
)

func TestPipelineReply(t *testing.T) {
	var gotMessages []provider.ChatMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []provider.ChatMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		gotMessages = req.Messages
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"He studied at SMU."}}]}`))
	}))
	defer srv.Close()

	p := &Pipeline{
		Base:   knowledge.New(),
		Client: provider.NewClient("sk-test").WithBaseURL(srv.URL),
	}

	reply, err := p.Reply(context.Background(), []Message{
		NewUserMessage("where did kevin study?"),
	})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if reply != "He studied at SMU." {
		t.Errorf("reply = %q", reply)
	}

	if len(gotMessages) != 2 {
		t.Fatalf("messages = %d, want system + user", len(gotMessages))
	}
	system := gotMessages[0]
	if system.Role != "system" {
		t.Errorf("first role = %q, want system", system.Role)
	}
	// The system prompt embeds the fact base
	if !strings.Contains(system.Content, "Singapore Management University") {
		t.Error("system prompt missing knowledge base content")
	}
	if !strings.Contains(system.Content, "KevGPT") {
		t.Error("system prompt missing persona")
	}
	if gotMessages[1].Content != "where did kevin study?" {
		t.Errorf("user message = %q", gotMessages[1].Content)
	}
}

func TestPipelineTrimsLongTranscript(t *testing.T) {
	var gotMessages []provider.ChatMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []provider.ChatMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		gotMessages = req.Messages
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := &Pipeline{
		Base:        knowledge.New(),
		Client:      provider.NewClient("sk-test").WithBaseURL(srv.URL),
		MaxMessages: 4,
	}

	transcript := []Message{
		NewUserMessage("first question"),
		NewAssistantMessage("first answer"),
		NewUserMessage("second question"),
		NewAssistantMessage("second answer"),
		NewUserMessage("third question"),
	}
	if _, err := p.Reply(context.Background(), transcript); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	// The newest 4 transcript messages, plus the system prompt.
	if len(gotMessages) != 5 {
		t.Fatalf("messages = %d, want 5", len(gotMessages))
	}
	if gotMessages[1].Content != "first answer" {
		t.Errorf("oldest forwarded = %q, want the second transcript message", gotMessages[1].Content)
	}
	if gotMessages[4].Content != "third question" {
		t.Errorf("newest forwarded = %q", gotMessages[4].Content)
	}
}
