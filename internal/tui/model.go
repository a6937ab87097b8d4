// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui provides the terminal chat client for the portfolio assistant.
//
// The client drives the same chat controller the HTTP server uses: a sidebar
// lists stored conversations, the main pane shows the transcript with
// assistant replies rendered as markdown, and a single-line input sends
// messages. While a reply is pending the input stays visible but sends are
// rejected, matching the one-in-flight rule of the controller.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kevinksaji/kevai/internal/chat"
)

// =============================================================================
// STATE
// =============================================================================

// State represents the current state of the chat client.
type State int

const (
	StateReady   State = iota // Ready for input
	StateWaiting              // Waiting for an assistant reply
)

// sidebarWidth is the fixed width of the conversation list pane.
const sidebarWidth = 24

// =============================================================================
// MESSAGES
// =============================================================================

// replyMsg carries the result of a completed send.
type replyMsg struct {
	convo *chat.Conversation
	err   error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat client.
type Model struct {
	state State

	// Chat backend
	controller    *chat.Controller
	convo         *chat.Conversation
	conversations []*chat.Conversation
	selected      int

	// Deep-link query sent once on startup
	initialQuery string

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Markdown rendering for assistant replies
	renderer markdownRenderer

	// Dimensions
	width  int
	height int
	ready  bool

	showSidebar bool
	lastError   error
}

// New creates a chat client over the given controller. If initialQuery is
// non-empty it is sent into a fresh conversation on startup.
func New(controller *chat.Controller, initialQuery string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask me anything about Kevin..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII-compatible spinner as the typing indicator
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	// A deep-link query starts sending immediately, so the client comes up
	// already waiting for the reply.
	state := StateReady
	if initialQuery != "" {
		state = StateWaiting
	}

	m := Model{
		state:        state,
		controller:   controller,
		initialQuery: initialQuery,
		viewport:     vp,
		input:        ti,
		spinner:      sp,
		keyMap:       DefaultKeyMap(),
		renderer:     newMarkdownRenderer(80),
		showSidebar:  true,
	}
	m.refreshConversations()
	return m
}

// refreshConversations reloads the sidebar list and keeps the selection
// pointed at the current conversation.
func (m *Model) refreshConversations() {
	m.conversations = m.controller.Store().List()

	if m.convo == nil {
		m.convo = m.controller.Store().Active()
	}
	m.selected = 0
	if m.convo != nil {
		for i, c := range m.conversations {
			if c.ID == m.convo.ID {
				m.selected = i
				break
			}
		}
	}
}

// Conversation returns the conversation currently shown, or nil.
func (m Model) Conversation() *chat.Conversation {
	return m.convo
}

// State returns the current client state.
func (m Model) State() State {
	return m.state
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.initialQuery != "" {
		cmds = append(cmds, m.spinner.Tick, m.startFromQueryCmd(m.initialQuery))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		return m.handleReply(msg)

	case spinner.TickMsg:
		if m.state != StateWaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleResize recomputes pane dimensions.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	contentWidth := m.width
	if m.showSidebar {
		contentWidth -= sidebarWidth
	}
	if contentWidth < 20 {
		contentWidth = 20
	}

	// Viewport fills everything above the input line and status bar.
	m.viewport.Width = contentWidth
	m.viewport.Height = m.height - 4
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
	m.input.Width = contentWidth - 4
	m.renderer = newMarkdownRenderer(contentWidth - 2)

	m.renderTranscript()
	return m, nil
}

// handleKey dispatches keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keyMap.NewChat):
		return m.handleNewChat()

	case key.Matches(msg, m.keyMap.NextChat):
		return m.selectConversation(m.selected + 1)

	case key.Matches(msg, m.keyMap.PrevChat):
		return m.selectConversation(m.selected - 1)

	case key.Matches(msg, m.keyMap.DeleteChat):
		return m.handleDeleteChat()

	case key.Matches(msg, m.keyMap.ToggleSide):
		m.showSidebar = !m.showSidebar
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit sends the current input to the controller.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.state == StateWaiting {
		return m, nil
	}

	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	m.input.Reset()
	m.state = StateWaiting
	m.lastError = nil

	var conversationID string
	if m.convo != nil {
		conversationID = m.convo.ID
	}
	return m, tea.Batch(m.spinner.Tick, m.sendCmd(conversationID, text))
}

// handleNewChat creates and selects a fresh conversation.
func (m Model) handleNewChat() (tea.Model, tea.Cmd) {
	convo, err := m.controller.Store().Create("")
	if err != nil {
		m.lastError = err
		return m, nil
	}
	m.convo = convo
	m.refreshConversations()
	m.renderTranscript()
	return m, nil
}

// handleDeleteChat removes the selected conversation.
func (m Model) handleDeleteChat() (tea.Model, tea.Cmd) {
	if m.convo == nil || m.state == StateWaiting {
		return m, nil
	}
	if err := m.controller.Store().Remove(m.convo.ID); err != nil {
		m.lastError = err
		return m, nil
	}
	m.convo = m.controller.Store().Active()
	m.refreshConversations()
	m.renderTranscript()
	return m, nil
}

// selectConversation switches the main pane to the conversation at index i.
func (m Model) selectConversation(i int) (tea.Model, tea.Cmd) {
	if len(m.conversations) == 0 || m.state == StateWaiting {
		return m, nil
	}
	if i < 0 {
		i = len(m.conversations) - 1
	}
	if i >= len(m.conversations) {
		i = 0
	}

	m.selected = i
	m.convo = m.conversations[i]
	if err := m.controller.Store().SetActive(m.convo.ID); err != nil {
		m.lastError = err
	}
	m.renderTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

// handleReply applies a completed send.
func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	m.state = StateReady
	m.lastError = msg.err

	if msg.convo != nil {
		m.convo = msg.convo
	}
	m.refreshConversations()
	m.renderTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

// sendCmd sends text to the conversation off the UI goroutine. An empty
// conversationID targets the active conversation, creating one if needed.
func (m Model) sendCmd(conversationID, text string) tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		var (
			convo *chat.Conversation
			err   error
		)
		if conversationID == "" {
			convo, err = controller.SendToActive(context.Background(), text)
		} else {
			convo, err = controller.Send(context.Background(), conversationID, text)
		}
		return replyMsg{convo: convo, err: err}
	}
}

// startFromQueryCmd fires the one-shot startup query.
func (m Model) startFromQueryCmd(query string) tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		convo, err := controller.StartFromQuery(context.Background(), query)
		return replyMsg{convo: convo, err: err}
	}
}

// =============================================================================
// PROGRAM ENTRY
// =============================================================================

// Run starts the chat client and blocks until it exits.
func Run(controller *chat.Controller, initialQuery string) error {
	p := tea.NewProgram(New(controller, initialQuery), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
