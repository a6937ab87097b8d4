// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"testing"
	"time"
)

func TestEntry_EmptyMiss(t *testing.T) {
	e := New[string](time.Hour)

	if _, ok := e.Get(); ok {
		t.Error("Get() on empty entry should miss")
	}
	if _, ok := e.GetStale(); ok {
		t.Error("GetStale() on empty entry should miss")
	}
}

func TestEntry_FreshHit(t *testing.T) {
	e := New[int](time.Hour)
	e.Set(42)

	v, ok := e.Get()
	if !ok || v != 42 {
		t.Errorf("Get() = %d, %v; want 42, true", v, ok)
	}
}

func TestEntry_ExpiryAndStaleFallback(t *testing.T) {
	now := time.Now()
	e := New[string](time.Minute)
	e.SetClock(func() time.Time { return now })
	e.Set("cached")

	// Advance past the TTL.
	now = now.Add(2 * time.Minute)

	if _, ok := e.Get(); ok {
		t.Error("Get() after TTL should miss")
	}

	// Stale read still serves the old value.
	v, ok := e.GetStale()
	if !ok || v != "cached" {
		t.Errorf("GetStale() = %q, %v; want cached, true", v, ok)
	}
}

func TestEntry_Invalidate(t *testing.T) {
	e := New[string](time.Hour)
	e.Set("x")
	e.Invalidate()

	if _, ok := e.GetStale(); ok {
		t.Error("GetStale() after Invalidate should miss")
	}
}

func TestEntry_Stats(t *testing.T) {
	e := New[string](time.Hour)

	e.Get() // miss
	e.Set("v")
	e.Get() // hit
	e.Get() // hit

	s := e.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats() = %+v; want 2 hits, 1 miss", s)
	}
	if !s.HasData {
		t.Error("Stats().HasData = false, want true")
	}
}
