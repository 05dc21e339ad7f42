// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/HeadupandFace/cbt-companion-app/internal/ui/components"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

const (
	// Placeholder is shown in the empty input field.
	Placeholder = "Type your message..."

	// MutedStatus and UnmutedStatus confirm the mute toggle.
	MutedStatus   = "Speech muted."
	UnmutedStatus = "Speech on."
)

// Options configures the chat Model.
type Options struct {
	Controller *widget.Controller
	Screen     *Screen
	Theme      *styles.Theme
	// Context bounds requests started from the view.
	Context        context.Context
	Title          string
	AssistantName  string
	ShowTimestamps bool
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	controller *widget.Controller
	screen     *Screen
	theme      *styles.Theme
	ctx        context.Context
	keys       KeyMap

	title          string
	assistantName  string
	showTimestamps bool

	width  int
	height int
	ready  bool

	viewport  viewport.Model
	input     textarea.Model
	indicator components.ThinkingIndicator

	snap     Snapshot
	quitting bool
}

// New creates the chat Model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	keys := DefaultKeyMap()

	input := textarea.New()
	input.Placeholder = Placeholder
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(3)
	input.KeyMap.InsertNewline = keys.Newline
	input.Focus()

	return Model{
		controller:     opts.Controller,
		screen:         opts.Screen,
		theme:          theme,
		ctx:            ctx,
		keys:           keys,
		title:          opts.Title,
		assistantName:  opts.AssistantName,
		showTimestamps: opts.ShowTimestamps,
		viewport:       viewport.New(0, 0),
		input:          input,
		indicator:      components.NewThinkingIndicator(),
	}
}

// Init starts the cursor blink and the screen watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.screen.WaitForChange(), m.syncCmd())
}

// syncCmd asks for an initial copy of the Screen.
func (m Model) syncCmd() tea.Cmd {
	return func() tea.Msg { return ScreenChangedMsg{} }
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ScreenChangedMsg:
		cmd := m.sync()
		return m, tea.Batch(cmd, m.screen.WaitForChange())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.indicator, cmd = m.indicator.Update(msg)
		if m.indicator.IsActive() {
			m.refreshViewport(false)
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)

	// header + status + input box (3 rows + border) + help
	const reserved = 1 + 1 + 5 + 1
	h := m.height - reserved
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = h

	// input box border and padding, then the send button
	w := m.width - 4 - 7
	if w < 10 {
		w = 10
	}
	m.input.SetWidth(w)

	m.ready = true
	m.refreshViewport(true)
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	// The modal is closed only by its close control. The controller is
	// asked directly: the snapshot can lag behind a modal just shown.
	if m.controller.ModalOpen() {
		if key.Matches(msg, m.keys.CloseModal) {
			m.controller.CloseModal()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		m.controller.Dispatch(m.ctx, m.input.Value())
		return m, nil

	case key.Matches(msg, m.keys.Mute):
		muted := !m.controller.Muted()
		m.controller.SetMuted(muted)
		if muted {
			m.controller.ShowStatus(MutedStatus, widget.StatusInfo)
		} else {
			m.controller.ShowStatus(UnmutedStatus, widget.StatusInfo)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sync copies the Screen into the view.
func (m *Model) sync() tea.Cmd {
	snap := m.screen.Snapshot()
	prev := m.snap
	m.snap = snap

	if snap.Clears != prev.Clears {
		m.input.Reset()
	}

	var cmd tea.Cmd
	switch {
	case snap.Indicator == "":
		m.indicator.Reset()
	case snap.Indicator != m.indicator.Token():
		cmd = m.indicator.Start(snap.Indicator)
	}

	grew := len(snap.Messages) != len(prev.Messages) || snap.Indicator != prev.Indicator
	m.refreshViewport(grew)
	return cmd
}

// refreshViewport re-renders the log. When bottom is set the log scrolls to
// its newest entry.
func (m *Model) refreshViewport(bottom bool) {
	if !m.ready {
		return
	}
	content := components.RenderLog(m.theme, m.snap.Messages, m.assistantName, m.width, m.showTimestamps)
	if ind := m.indicator.View(m.theme); ind != "" {
		if content != "" {
			content += "\n\n"
		}
		content += ind
	}
	m.viewport.SetContent(content)
	if bottom {
		m.viewport.GotoBottom()
	}
}

// InputValue returns the current input text.
func (m Model) InputValue() string {
	return m.input.Value()
}

// Snapshot returns the last Screen copy the view has drawn.
func (m Model) Snapshot() Snapshot {
	return m.snap
}
