// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cms

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/kevinksaji/kevai/internal/cache"
)

// Cached wraps a Client with a TTL cache over the full post listing. All
// reads go through the cache; when Notion is unreachable and the cache has
// expired, the last known good listing is served instead of an error.
type Cached struct {
	client *Client
	entry  *cache.Entry[[]Post]
}

// NewCached wraps client with the given cache TTL.
func NewCached(client *Client, ttl time.Duration) *Cached {
	return &Cached{
		client: client,
		entry:  cache.New[[]Post](ttl),
	}
}

// Posts returns the published post listing, from cache when fresh.
func (c *Cached) Posts(ctx context.Context) ([]Post, error) {
	if posts, ok := c.entry.Get(); ok {
		return posts, nil
	}

	posts, err := c.client.Posts(ctx)
	if err != nil {
		// Serve stale data over an error when we have any
		if stale, ok := c.entry.GetStale(); ok {
			log.Printf("CMS STALE SERVE | error=%v age=%v", err, c.entry.Age())
			return stale, nil
		}
		return nil, err
	}

	c.entry.Set(posts)
	return posts, nil
}

// PostBySlug returns the cached post with the given slug, or nil.
func (c *Cached) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	posts, err := c.Posts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].Slug == slug {
			return &posts[i], nil
		}
	}
	return nil, nil
}

// PostsByCategory returns cached posts matching the category.
func (c *Cached) PostsByCategory(ctx context.Context, category string) ([]Post, error) {
	posts, err := c.Posts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Invalidate drops the cached listing so the next read refetches.
func (c *Cached) Invalidate() {
	c.entry.Invalidate()
}

// Stats returns cache statistics.
func (c *Cached) Stats() cache.Stats {
	return c.entry.Stats()
}
