// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/kevinksaji/kevai/internal/chat"
	"github.com/kevinksaji/kevai/internal/prompt"
	"github.com/kevinksaji/kevai/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer wraps glamour with a plain-text fallback. Rendering must
// never fail the UI; on any error the raw content is shown instead.
type markdownRenderer struct {
	r *glamour.TermRenderer
}

// newMarkdownRenderer creates a renderer wrapping at the given width.
func newMarkdownRenderer(width int) markdownRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdownRenderer{}
	}
	return markdownRenderer{r: r}
}

// Render renders markdown, falling back to the raw string.
func (mr markdownRenderer) Render(content string) string {
	if mr.r == nil {
		return content
	}
	out, err := mr.r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript rebuilds the viewport content from the current
// conversation.
func (m *Model) renderTranscript() {
	if m.convo == nil || len(m.convo.Messages) == 0 {
		m.viewport.SetContent(statusStyle.Render("No messages yet. Say hi!"))
		return
	}

	var b strings.Builder
	for i, msg := range m.convo.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(userLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		case chat.RoleAssistant:
			b.WriteString(assistantLabelStyle.Render(prompt.AssistantName))
			b.WriteString("\n")
			b.WriteString(m.renderer.Render(msg.Content))
		}
	}
	m.viewport.SetContent(b.String())
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the full client layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		inputStyle.Render(m.input.View()),
		m.statusLine(),
	)

	if !m.showSidebar {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), main)
}

// sidebarView renders the conversation list.
func (m Model) sidebarView() string {
	var b strings.Builder
	b.WriteString(sidebarItemStyle.Render("Conversations"))
	b.WriteString("\n\n")

	if len(m.conversations) == 0 {
		b.WriteString(sidebarItemStyle.Render("(none)"))
	}
	for i, c := range m.conversations {
		title := runewidth.Truncate(c.Title, sidebarWidth-4, "...")
		if i == m.selected {
			b.WriteString(sidebarSelectedStyle.Render(title))
		} else {
			b.WriteString(sidebarItemStyle.Render(title))
		}
		b.WriteString("\n")
	}

	return sidebarStyle.
		Width(sidebarWidth).
		Height(m.height - 1).
		Render(b.String())
}

// statusLine renders the bottom status bar.
func (m Model) statusLine() string {
	if m.lastError != nil {
		line := fmt.Sprintf("Error: %v", m.lastError)
		return errorStyle.Render(util.Truncate(line, m.width))
	}
	if m.state == StateWaiting {
		return statusStyle.Render(m.spinner.View() + " " + prompt.AssistantName + " is typing...")
	}

	parts := make([]string, 0, 5)
	for _, binding := range m.keyMap.ShortHelp() {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return statusStyle.Render(strings.Join(parts, "  "))
}
