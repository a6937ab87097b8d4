// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newStatsServer(t *testing.T, fetches *atomic.Int64, failing *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing != nil && failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/events"):
			w.Write([]byte(`[
				{"created_at": "2026-08-29T10:00:00Z"},
				{"created_at": "2026-08-29T15:30:00Z"},
				{"created_at": "2026-08-30T09:00:00Z"}
			]`))
		case strings.HasPrefix(r.URL.Path, "/users/"):
			if fetches != nil {
				fetches.Add(1)
			}
			w.Write([]byte(`{"public_repos": 24, "followers": 87}`))
		case strings.HasPrefix(r.URL.Path, "/search/commits"):
			w.Write([]byte(`{"total_count": 1342}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient("kevinksaji", "", 2*time.Hour, 3600).WithBaseURL(srv.URL)
}

func TestStats(t *testing.T) {
	srv := newStatsServer(t, nil, nil)
	client := newTestClient(t, srv)

	snap, err := client.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if snap.PublicRepos != 24 {
		t.Errorf("PublicRepos = %d, want 24", snap.PublicRepos)
	}
	if snap.Followers != 87 {
		t.Errorf("Followers = %d, want 87", snap.Followers)
	}
	if snap.TotalCommits != 1342 {
		t.Errorf("TotalCommits = %d, want 1342", snap.TotalCommits)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}

	want := []DayCount{
		{Date: "2026-08-29", Count: 2},
		{Date: "2026-08-30", Count: 1},
	}
	if len(snap.Calendar) != len(want) {
		t.Fatalf("Calendar = %+v, want %+v", snap.Calendar, want)
	}
	for i, day := range want {
		if snap.Calendar[i] != day {
			t.Errorf("Calendar[%d] = %+v, want %+v", i, snap.Calendar[i], day)
		}
	}
}

func TestStatsCached(t *testing.T) {
	var fetches atomic.Int64
	srv := newStatsServer(t, &fetches, nil)
	client := newTestClient(t, srv)

	for i := 0; i < 5; i++ {
		if _, err := client.Stats(context.Background()); err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("upstream fetches = %d, want 1", got)
	}
}

func TestStatsStaleFallback(t *testing.T) {
	var failing atomic.Bool
	srv := newStatsServer(t, nil, &failing)
	client := NewClient("kevinksaji", "", time.Nanosecond, 3600).WithBaseURL(srv.URL)

	if _, err := client.Stats(context.Background()); err != nil {
		t.Fatalf("warmup failed: %v", err)
	}

	failing.Store(true)
	time.Sleep(time.Millisecond) // let the nanosecond TTL expire

	snap, err := client.Stats(context.Background())
	if err != nil {
		t.Fatalf("expected stale serve, got error: %v", err)
	}
	if snap.PublicRepos != 24 {
		t.Errorf("stale snapshot lost data: %+v", snap)
	}
}

func TestStatsErrorWithoutCache(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	srv := newStatsServer(t, nil, &failing)
	client := newTestClient(t, srv)

	if _, err := client.Stats(context.Background()); err == nil {
		t.Error("expected error when upstream fails with empty cache")
	}
}

func TestStatsRateLimitDetection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-remaining", "0")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.Stats(context.Background())
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("err = %v, want rate limit error", err)
	}
}

func TestCacheFilePersistence(t *testing.T) {
	srv := newStatsServer(t, nil, nil)
	path := filepath.Join(t.TempDir(), "stats-cache.json")

	client := newTestClient(t, srv).WithCacheFile(path)
	if _, err := client.Stats(context.Background()); err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	// A new client picks up the persisted snapshot without touching the API
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("persisted cache should prevent API calls")
	}))
	defer dead.Close()

	restored := NewClient("kevinksaji", "", 2*time.Hour, 3600).
		WithBaseURL(dead.URL).
		WithCacheFile(path)

	snap, err := restored.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats from restored cache failed: %v", err)
	}
	if snap.TotalCommits != 1342 {
		t.Errorf("restored TotalCommits = %d, want 1342", snap.TotalCommits)
	}
}
