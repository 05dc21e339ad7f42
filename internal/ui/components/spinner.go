// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
)

// =============================================================================
// THINKING INDICATOR
// =============================================================================

// ThinkingIndicator is the placeholder shown in the log while a reply is
// pending. It belongs to exactly one request token.
type ThinkingIndicator struct {
	spinner   spinner.Model
	token     string
	label     string
	startTime time.Time
	now       func() time.Time
}

// NewThinkingIndicator creates an inactive indicator with ASCII frames.
func NewThinkingIndicator() ThinkingIndicator {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}
	return ThinkingIndicator{
		spinner: s,
		label:   "Thinking",
		now:     time.Now,
	}
}

// Start activates the indicator for token and returns the first tick.
func (t *ThinkingIndicator) Start(token string) tea.Cmd {
	t.token = token
	t.startTime = t.now()
	return t.spinner.Tick
}

// Stop deactivates the indicator if it belongs to token.
func (t *ThinkingIndicator) Stop(token string) {
	if t.token == token {
		t.token = ""
	}
}

// Reset deactivates the indicator regardless of owner.
func (t *ThinkingIndicator) Reset() {
	t.token = ""
}

// SetLabel changes the text shown next to the spinner.
func (t *ThinkingIndicator) SetLabel(label string) {
	t.label = label
}

// Token returns the owning request token, "" when inactive.
func (t ThinkingIndicator) Token() string {
	return t.token
}

// IsActive reports whether the indicator is shown.
func (t ThinkingIndicator) IsActive() bool {
	return t.token != ""
}

// Elapsed returns how long the indicator has been shown.
func (t ThinkingIndicator) Elapsed() time.Duration {
	if !t.IsActive() {
		return 0
	}
	return t.now().Sub(t.startTime)
}

// Update advances the animation. Ticks are dropped while inactive so the
// animation loop ends with the request.
func (t ThinkingIndicator) Update(msg tea.Msg) (ThinkingIndicator, tea.Cmd) {
	if !t.IsActive() {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator, or "" when inactive.
func (t ThinkingIndicator) View(theme *styles.Theme) string {
	if !t.IsActive() {
		return ""
	}
	out := theme.Indicator.Render(t.label + t.spinner.View())
	if secs := int(t.Elapsed().Seconds()); secs >= 2 {
		out += lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(fmt.Sprintf(" (%ds)", secs))
	}
	return out
}
