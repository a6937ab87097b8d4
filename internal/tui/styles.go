// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLORS
// =============================================================================
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.

// Cyan - brand color, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Purple - assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Overlay - borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// TextPrimary - main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextMuted - hints, timestamps, very subtle text
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// SelectionBg - highlighted sidebar row
var SelectionBg = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}

// =============================================================================
// STYLES
// =============================================================================

var (
	// userLabelStyle renders the "You" speaker label.
	userLabelStyle = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true)

	// assistantLabelStyle renders the assistant speaker label.
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(Purple).
				Bold(true)

	// sidebarStyle frames the conversation list.
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(Overlay).
			PaddingRight(1)

	// sidebarItemStyle renders an unselected conversation title.
	sidebarItemStyle = lipgloss.NewStyle().
				Foreground(TextMuted).
				PaddingLeft(1)

	// sidebarSelectedStyle renders the selected conversation title.
	sidebarSelectedStyle = lipgloss.NewStyle().
				Foreground(TextPrimary).
				Background(SelectionBg).
				Bold(true).
				PaddingLeft(1)

	// statusStyle renders the bottom status bar.
	statusStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	// errorStyle renders transient error lines in the status bar.
	errorStyle = lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true)

	// inputStyle frames the text input.
	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(Overlay)
)
