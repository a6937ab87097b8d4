// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const queryBody = `{
  "results": [
    {
      "id": "page-1",
      "properties": {
        "Title": {"title": [{"plain_text": "Building Animeet"}]},
        "Slug": {"rich_text": [{"plain_text": "building-animeet"}]},
        "Excerpt": {"rich_text": [{"plain_text": "Microservices and RabbitMQ"}]},
        "Category": {"select": {"name": "Engineering"}},
        "Published Date": {"date": {"start": "2024-11-02"}}
      }
    },
    {
      "id": "page-2",
      "properties": {
        "Title": {"title": [{"plain_text": "My First Post!"}]},
        "Slug": {"rich_text": []},
        "Category": {"select": null},
        "Published Date": {"date": {"start": "2024-01-15"}}
      }
    }
  ]
}`

const blocksBody = `{
  "results": [
    {"type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "First paragraph."}]}},
    {"type": "heading_1", "heading_1": {}},
    {"type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "Second "}, {"plain_text": "paragraph."}]}}
  ],
  "has_more": false
}`

func newCMSServer(t *testing.T, queries *atomic.Int64) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Notion-Version") == "" {
			t.Error("missing Notion-Version header")
		}
		switch {
		case strings.Contains(r.URL.Path, "/databases/"):
			if queries != nil {
				queries.Add(1)
			}
			w.Write([]byte(queryBody))
		case strings.Contains(r.URL.Path, "/blocks/"):
			w.Write([]byte(blocksBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, NewClient("secret-token", "db-1").WithBaseURL(srv.URL)
}

func TestPosts(t *testing.T) {
	_, client := newCMSServer(t, nil)

	posts, err := client.Posts(context.Background())
	if err != nil {
		t.Fatalf("Posts failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}

	p := posts[0]
	if p.Title != "Building Animeet" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Slug != "building-animeet" {
		t.Errorf("Slug = %q", p.Slug)
	}
	if p.Category != "Engineering" {
		t.Errorf("Category = %q", p.Category)
	}
	if p.PublishedDate != "2024-11-02" {
		t.Errorf("PublishedDate = %q", p.PublishedDate)
	}
	if p.Content != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("Content = %q", p.Content)
	}

	// Missing slug falls back to a slugified title, missing category to
	// Uncategorized.
	q := posts[1]
	if q.Slug != "my-first-post" {
		t.Errorf("fallback Slug = %q, want my-first-post", q.Slug)
	}
	if q.Category != "Uncategorized" {
		t.Errorf("fallback Category = %q", q.Category)
	}
}

func TestPostBySlug(t *testing.T) {
	_, client := newCMSServer(t, nil)

	p, err := client.PostBySlug(context.Background(), "building-animeet")
	if err != nil {
		t.Fatalf("PostBySlug failed: %v", err)
	}
	if p == nil || p.Title != "Building Animeet" {
		t.Errorf("post = %+v", p)
	}

	missing, err := client.PostBySlug(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("PostBySlug failed: %v", err)
	}
	if missing != nil {
		t.Errorf("missing slug returned %+v", missing)
	}
}

func TestPostsByCategory(t *testing.T) {
	_, client := newCMSServer(t, nil)

	posts, err := client.PostsByCategory(context.Background(), "ENGINEERING")
	if err != nil {
		t.Fatalf("PostsByCategory failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "building-animeet" {
		t.Errorf("posts = %+v", posts)
	}
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("", "")
	if _, err := client.Posts(context.Background()); err == nil {
		t.Error("Posts should fail when unconfigured")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My First Post!", "my-first-post"},
		{"Hello, World", "hello-world"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"already-slugged", "already-slugged"},
		{"CAPS and 123", "caps-and-123"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCachedServesFromCache(t *testing.T) {
	var queries atomic.Int64
	_, client := newCMSServer(t, &queries)
	cached := NewCached(client, time.Hour)

	for i := 0; i < 5; i++ {
		if _, err := cached.Posts(context.Background()); err != nil {
			t.Fatalf("Posts failed: %v", err)
		}
	}
	if got := queries.Load(); got != 1 {
		t.Errorf("upstream queries = %d, want 1", got)
	}
}

func TestCachedServesStaleOnError(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if strings.Contains(r.URL.Path, "/databases/") {
			w.Write([]byte(queryBody))
		} else {
			w.Write([]byte(blocksBody))
		}
	}))
	defer srv.Close()

	client := NewClient("secret", "db").WithBaseURL(srv.URL)
	cached := NewCached(client, time.Hour)

	if _, err := cached.Posts(context.Background()); err != nil {
		t.Fatalf("warmup failed: %v", err)
	}
	failing.Store(true)

	cached.Invalidate()
	posts, err := cached.Posts(context.Background())
	if err != nil {
		t.Fatalf("expected stale serve, got error: %v", err)
	}
	if len(posts) == 0 {
		t.Error("stale serve returned no posts")
	}
}
