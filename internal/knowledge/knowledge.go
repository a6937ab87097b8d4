// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package knowledge holds the fact base the assistant answers from.
//
// Facts are grouped into named sections with keyword tags. The compiled-in
// sections are the default; a TOML facts file can replace them at runtime,
// optionally with hot reload.
package knowledge

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// TYPES
// =============================================================================

// Section is one titled group of facts with keywords for matching.
type Section struct {
	Name     string   `toml:"name"`
	Content  string   `toml:"content"`
	Keywords []string `toml:"keywords"`
}

// Base is a queryable collection of sections. Safe for concurrent use.
type Base struct {
	mu       sync.RWMutex
	sections []Section
}

// factsFile is the on-disk shape of a facts override file.
type factsFile struct {
	Sections []Section `toml:"sections"`
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// New returns a Base seeded with the compiled-in sections.
func New() *Base {
	return &Base{sections: defaultSections()}
}

// NewFromFile returns a Base loaded from a TOML facts file.
func NewFromFile(path string) (*Base, error) {
	b := New()
	if err := b.LoadFile(path); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadFile replaces the sections with those from a TOML facts file.
// An empty or missing sections list is an error; the previous sections
// are kept in that case.
func (b *Base) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read facts file: %w", err)
	}

	var f factsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse facts file: %w", err)
	}
	if len(f.Sections) == 0 {
		return fmt.Errorf("facts file %s contains no sections", path)
	}
	for i, s := range f.Sections {
		if s.Name == "" || s.Content == "" {
			return fmt.Errorf("facts file section %d is missing a name or content", i)
		}
	}

	b.mu.Lock()
	b.sections = f.Sections
	b.mu.Unlock()
	return nil
}

// Sections returns a copy of the current section list.
func (b *Base) Sections() []Section {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Section, len(b.sections))
	copy(out, b.sections)
	return out
}

// Len returns the number of sections.
func (b *Base) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sections)
}

// =============================================================================
// QUERIES
// =============================================================================

// AllFacts renders every section under its header, in declaration order.
func (b *Base) AllFacts() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("Full background information:\n\n")
	for _, s := range b.sections {
		sb.WriteString(s.Name)
		sb.WriteString(":\n")
		sb.WriteString(s.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// MatchingFacts renders the sections whose keywords overlap the query.
// A keyword matches when it appears in the query or the query appears in
// it, case-insensitively. Returns ok=false when nothing matched.
func (b *Base) MatchingFacts(query string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	q := strings.ToLower(query)

	var matched []Section
	for _, s := range b.sections {
		for _, kw := range s.Keywords {
			k := strings.ToLower(kw)
			if strings.Contains(q, k) || strings.Contains(k, q) {
				matched = append(matched, s)
				break
			}
		}
	}

	if len(matched) == 0 {
		return "No specific background information found for this query.", false
	}

	var sb strings.Builder
	sb.WriteString("Relevant background information:\n\n")
	for _, s := range matched {
		sb.WriteString(s.Name)
		sb.WriteString(":\n")
		sb.WriteString(s.Content)
		sb.WriteString("\n\n")
	}
	return sb.String(), true
}
