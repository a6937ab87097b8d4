// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides a small TTL cache for collaborator responses.
//
// The CMS and stats clients wrap their upstream calls in an Entry so that
// expiry and invalidation are testable on the cache object itself instead
// of being buried in package-level variables.
package cache

import (
	"sync"
	"time"
)

// Entry holds one cached value with the time it was stored and its TTL.
type Entry[T any] struct {
	mu    sync.RWMutex
	value T
	setAt time.Time
	ttl   time.Duration

	// Statistics
	hits   int
	misses int

	// now is swappable for tests.
	now func() time.Time
}

// Stats holds cache statistics.
type Stats struct {
	Hits    int
	Misses  int
	HasData bool
	Age     time.Duration
}

// New creates an empty cache entry with the given TTL.
func New[T any](ttl time.Duration) *Entry[T] {
	return &Entry[T]{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached value if it is present and fresh.
func (e *Entry[T]) Get() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero T
	if e.setAt.IsZero() {
		e.misses++
		return zero, false
	}
	if e.now().Sub(e.setAt) > e.ttl {
		e.misses++
		return zero, false
	}
	e.hits++
	return e.value, true
}

// GetStale returns the cached value even if expired. Used as the
// last-known-good fallback when the upstream collaborator fails.
func (e *Entry[T]) GetStale() (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var zero T
	if e.setAt.IsZero() {
		return zero, false
	}
	return e.value, true
}

// Set stores a value and resets its timestamp.
func (e *Entry[T]) Set(value T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = value
	e.setAt = e.now()
}

// Invalidate clears the entry.
func (e *Entry[T]) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	var zero T
	e.value = zero
	e.setAt = time.Time{}
}

// Age returns how long ago the entry was set, or zero if empty.
func (e *Entry[T]) Age() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.setAt.IsZero() {
		return 0
	}
	return e.now().Sub(e.setAt)
}

// Stats returns hit/miss counters for the entry.
func (e *Entry[T]) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Stats{
		Hits:    e.hits,
		Misses:  e.misses,
		HasData: !e.setAt.IsZero(),
	}
	if s.HasData {
		s.Age = e.now().Sub(e.setAt)
	}
	return s
}

// SetClock replaces the time source. Tests only.
func (e *Entry[T]) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}
