// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stats reports GitHub activity for the portfolio's stats panel.
//
// Results are cached for two hours and the cache is persisted to disk, so
// a restart does not burn rate limit. When GitHub is unreachable or rate
// limited, the last known good snapshot is served instead of an error.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kevinksaji/kevai/internal/cache"
	"github.com/kevinksaji/kevai/internal/util"
)

const (
	// DefaultBaseURL is the GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout bounds each GitHub request.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps GitHub response bodies.
	maxResponseSize = 5 * 1024 * 1024
)

// ErrRateLimited indicates GitHub reported an exhausted rate limit.
var ErrRateLimited = errors.New("GitHub rate limit exceeded")

// Snapshot is one reading of the profile's stats.
type Snapshot struct {
	TotalCommits int        `json:"total_commits"`
	PublicRepos  int        `json:"public_repos"`
	Followers    int        `json:"followers"`
	Calendar     []DayCount `json:"calendar,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

// DayCount is one day of the activity calendar.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Client fetches GitHub stats with caching and outbound rate limiting.
type Client struct {
	username   string
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	entry      *cache.Entry[Snapshot]
	cachePath  string
}

// NewClient creates a stats client for the given GitHub username.
// requestsPerHour caps outbound API calls; the token is optional and raises
// GitHub's own limit when present.
func NewClient(username, token string, ttl time.Duration, requestsPerHour int) *Client {
	return &Client{
		username:   username,
		token:      strings.TrimSpace(token),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Hour/time.Duration(requestsPerHour)), requestsPerHour),
		entry:      cache.New[Snapshot](ttl),
	}
}

// WithBaseURL sets a custom base URL. Used by tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithCacheFile persists the cache to path across restarts. Loads any
// existing snapshot immediately.
func (c *Client) WithCacheFile(path string) *Client {
	c.cachePath = path
	if data, err := os.ReadFile(path); err == nil {
		var snap Snapshot
		if json.Unmarshal(data, &snap) == nil && !snap.FetchedAt.IsZero() {
			c.entry.Set(snap)
			log.Printf("STATS CACHE LOADED | path=%s fetched_at=%s", path, snap.FetchedAt.Format(time.RFC3339))
		}
	}
	return c
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type userResponse struct {
	PublicRepos int `json:"public_repos"`
	Followers   int `json:"followers"`
}

type commitSearchResponse struct {
	TotalCount int `json:"total_count"`
}

type eventResponse struct {
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// FETCHING
// =============================================================================

// Stats returns the current snapshot, from cache when fresh. A fetch
// failure falls back to the last known good snapshot when one exists.
func (c *Client) Stats(ctx context.Context) (Snapshot, error) {
	if snap, ok := c.entry.Get(); ok {
		return snap, nil
	}

	snap, err := c.fetch(ctx)
	if err != nil {
		if stale, ok := c.entry.GetStale(); ok {
			log.Printf("STATS STALE SERVE | error=%v age=%v", err, c.entry.Age())
			return stale, nil
		}
		return Snapshot{}, err
	}

	c.entry.Set(snap)
	c.persistCache(snap)
	return snap, nil
}

// fetch reads the user profile and commit count from GitHub.
func (c *Client) fetch(ctx context.Context) (Snapshot, error) {
	// The local limiter keeps us well under GitHub's quota
	if err := c.limiter.Wait(ctx); err != nil {
		return Snapshot{}, err
	}

	var user userResponse
	if err := c.get(ctx, "/users/"+c.username, "", &user); err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch user: %w", err)
	}

	var commits commitSearchResponse
	query := "/search/commits?q=author:" + c.username
	if err := c.get(ctx, query, "application/vnd.github.cloak-preview+json", &commits); err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch commit count: %w", err)
	}

	var events []eventResponse
	if err := c.get(ctx, "/users/"+c.username+"/events?per_page=100", "", &events); err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch events: %w", err)
	}

	return Snapshot{
		TotalCommits: commits.TotalCount,
		PublicRepos:  user.PublicRepos,
		Followers:    user.Followers,
		Calendar:     buildCalendar(events),
		FetchedAt:    time.Now().UTC(),
	}, nil
}

// buildCalendar buckets public events into per-day counts, oldest first.
func buildCalendar(events []eventResponse) []DayCount {
	byDay := make(map[string]int)
	for _, e := range events {
		if e.CreatedAt.IsZero() {
			continue
		}
		byDay[e.CreatedAt.UTC().Format("2006-01-02")]++
	}
	if len(byDay) == 0 {
		return nil
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	calendar := make([]DayCount, len(days))
	for i, day := range days {
		calendar[i] = DayCount{Date: day, Count: byDay[day]}
	}
	return calendar
}

// get performs one GitHub API request.
func (c *Client) get(ctx context.Context, path, accept string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if accept == "" {
		accept = "application/vnd.github.v3+json"
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("x-ratelimit-remaining") == "0" {
		return ErrRateLimited
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API error (HTTP %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// persistCache writes the snapshot to the cache file when one is configured.
func (c *Client) persistCache(snap Snapshot) {
	if c.cachePath == "" {
		return
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	if err := util.AtomicWriteFile(c.cachePath, data, 0600); err != nil {
		log.Printf("STATS CACHE WRITE FAILED | path=%s error=%v", c.cachePath, err)
	}
}

// CacheStats returns cache statistics.
func (c *Client) CacheStats() cache.Stats {
	return c.entry.Stats()
}
