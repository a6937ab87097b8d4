// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient("sk-test-key").WithBaseURL(srv.URL)
	return srv, client
}

func completionBody(content string) string {
	return `{"id":"cmpl-1","model":"deepseek-chat","choices":[{"message":{"role":"assistant","content":` +
		mustJSON(content) + `},"finish_reason":"stop"}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestCompleteSuccess(t *testing.T) {
	var gotBody chatRequest
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(completionBody("Hi there! 👋")))
	})

	reply, err := client.Complete(context.Background(), "you are an assistant", []ChatMessage{
		NewUserMessage("hello"),
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Hi there! 👋" {
		t.Errorf("reply = %q", reply)
	}

	if gotBody.Model != "deepseek-chat" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(gotBody.Messages))
	}
	if gotBody.Messages[0].Role != "system" || gotBody.Messages[0].Content != "you are an assistant" {
		t.Errorf("first message = %+v, want system prompt", gotBody.Messages[0])
	}
	if gotBody.Messages[1].Role != "user" {
		t.Errorf("second message role = %q, want user", gotBody.Messages[1].Role)
	}
}

func TestCompleteNotConfigured(t *testing.T) {
	client := NewClient("")
	_, err := client.Complete(context.Background(), "sys", nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestCompleteAuthFailed(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"invalid_api_key","message":"bad key"}}`))
	})

	_, err := client.Complete(context.Background(), "sys", []ChatMessage{NewUserMessage("hi")})
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
	if !strings.Contains(err.Error(), "bad key") {
		t.Errorf("err = %v, want API message included", err)
	}
}

func TestCompleteRateLimitedSingleAttempt(t *testing.T) {
	calls := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	})

	_, err := client.Complete(context.Background(), "sys", []ChatMessage{NewUserMessage("hi")})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	// Default is one attempt, no retries
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCompleteRetriesWhenEnabled(t *testing.T) {
	calls := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		w.Write([]byte(completionBody("recovered")))
	})
	client.WithMaxRetries(3)

	reply, err := client.Complete(context.Background(), "sys", []ChatMessage{NewUserMessage("hi")})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "recovered" {
		t.Errorf("reply = %q", reply)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cmpl-1","choices":[]}`))
	})

	_, err := client.Complete(context.Background(), "sys", []ChatMessage{NewUserMessage("hi")})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("err = %v, want ErrEmptyCompletion", err)
	}
}

func TestCompleteMalformedJSON(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := client.Complete(context.Background(), "sys", []ChatMessage{NewUserMessage("hi")})
	if err == nil {
		t.Fatal("expected parse error for malformed body")
	}
}

func TestCompleteContextCancelled(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.Write([]byte(completionBody("too late")))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "sys", []ChatMessage{NewUserMessage("hi")})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestHandleErrorResponseUnparseable(t *testing.T) {
	err := handleErrorResponse(http.StatusInternalServerError, []byte("gateway exploded"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if !strings.Contains(apiErr.Message, "gateway exploded") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", ErrRateLimited, true},
		{"wrapped rate limited", errors.New("x: " + ErrRateLimited.Error()), false},
		{"server error", &APIError{Status: 502}, true},
		{"client error", &APIError{Status: 400}, false},
		{"auth failed", ErrAuthFailed, false},
		{"context cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAPIKeyMasked(t *testing.T) {
	if got := NewClient("").APIKeyMasked(); got != "[not set]" {
		t.Errorf("APIKeyMasked = %q", got)
	}

	masked := NewClient("sk-secret-value").APIKeyMasked()
	if strings.Contains(masked, "secret") {
		t.Errorf("APIKeyMasked leaked key material: %q", masked)
	}
	if !strings.Contains(masked, "REDACTED") {
		t.Errorf("APIKeyMasked = %q, want REDACTED marker", masked)
	}
}

func TestCalculateBackoff(t *testing.T) {
	if d := calculateBackoff(0); d != 500*time.Millisecond {
		t.Errorf("backoff(0) = %v", d)
	}
	if d := calculateBackoff(1); d != time.Second {
		t.Errorf("backoff(1) = %v", d)
	}
	if d := calculateBackoff(20); d != retryMaxDelay {
		t.Errorf("backoff(20) = %v, want capped at %v", d, retryMaxDelay)
	}
}
