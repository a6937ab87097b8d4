// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAllFactsIncludesEverySection(t *testing.T) {
	b := New()
	out := b.AllFacts()

	for _, s := range b.Sections() {
		if !strings.Contains(out, s.Name+":") {
			t.Errorf("AllFacts missing section header %q", s.Name)
		}
		if !strings.Contains(out, s.Content) {
			t.Errorf("AllFacts missing content for %q", s.Name)
		}
	}
}

func TestMatchingFacts(t *testing.T) {
	b := New()

	tests := []struct {
		name     string
		query    string
		wantOK   bool
		contains string
	}{
		{"direct keyword", "tell me about Accenture", true, "Accenture"},
		{"case insensitive", "what did he do at ACCENTURE?", true, "Accenture"},
		{"query inside keyword", "AWS", true, "AWS"},
		{"education match", "where did kevin study university", true, "Singapore Management University"},
		{"no match", "zzqqxyzzy", false, "No specific background information"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := b.MatchingFacts(tt.query)
			if ok != tt.wantOK {
				t.Errorf("MatchingFacts(%q) ok = %v, want %v", tt.query, ok, tt.wantOK)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("MatchingFacts(%q) = %q, want substring %q", tt.query, out, tt.contains)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.toml")

	content := `
[[sections]]
name = "HOBBIES"
content = "Collects vintage keyboards."
keywords = ["keyboards", "hobbies"]

[[sections]]
name = "PETS"
content = "Has a dog named Milo."
keywords = ["dog", "milo", "pets"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write facts: %v", err)
	}

	b, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}

	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
	out, ok := b.MatchingFacts("does he have a dog?")
	if !ok {
		t.Fatal("expected a match for dog query")
	}
	if !strings.Contains(out, "Milo") {
		t.Errorf("output = %q, want Milo", out)
	}
}

func TestLoadFileRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.toml")
	if err := os.WriteFile(path, []byte("# empty\n"), 0644); err != nil {
		t.Fatalf("write facts: %v", err)
	}

	b := New()
	before := b.Len()
	if err := b.LoadFile(path); err == nil {
		t.Error("expected error for empty facts file")
	}
	if b.Len() != before {
		t.Errorf("sections changed after failed load: %d -> %d", before, b.Len())
	}
}

func TestLoadFileRejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.toml")
	content := `
[[sections]]
content = "orphan content"
keywords = ["x"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write facts: %v", err)
	}

	if err := New().LoadFile(path); err == nil {
		t.Error("expected error for section without a name")
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.toml")

	first := `
[[sections]]
name = "ONE"
content = "first version"
keywords = ["one"]
`
	if err := os.WriteFile(path, []byte(first), 0644); err != nil {
		t.Fatalf("write facts: %v", err)
	}

	b, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}

	w, err := Watch(b, path)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	second := `
[[sections]]
name = "ONE"
content = "second version"
keywords = ["one"]

[[sections]]
name = "TWO"
content = "a new section"
keywords = ["two"]
`
	if err := os.WriteFile(path, []byte(second), 0644); err != nil {
		t.Fatalf("rewrite facts: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if b.Len() == 2 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("base not reloaded after file change, Len = %d", b.Len())
}
