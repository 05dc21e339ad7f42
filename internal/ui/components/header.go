// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
)

// Header is the top bar of the chat screen.
type Header struct {
	Title         string
	AssistantName string
	Muted         bool
}

// View renders the header across width columns.
func (h Header) View(theme *styles.Theme, width int) string {
	title := h.Title
	if title == "" {
		title = "companion"
	}
	left := theme.HeaderTitle.Render(title)
	if h.AssistantName != "" {
		left += theme.HeaderSubtitle.Render("  with " + h.AssistantName)
	}

	speech := "speech on"
	if h.Muted {
		speech = "speech muted"
	}
	right := theme.HeaderSubtitle.Render(speech)

	if width <= 0 {
		return theme.Header.Render(left + "  " + right)
	}

	// Header padding takes two columns.
	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")
	return theme.Header.Width(width).Render(left + spacer + right)
}
