// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HeadupandFace/cbt-companion-app/internal/ui/components"
)

// View renders the chat screen. While the crisis modal is open it covers
// the whole screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	if m.snap.Modal != nil {
		return components.NewCrisisModal(*m.snap.Modal).View(m.theme, m.width, m.height)
	}

	header := components.Header{
		Title:         m.title,
		AssistantName: m.assistantName,
		Muted:         m.controller.Muted(),
	}.View(m.theme, m.width)

	status := m.snap.Status.View(m.theme, m.width)

	send := m.theme.SendButton.Render("Send")
	box := m.theme.InputContainer.Render(m.input.View())
	input := lipgloss.JoinHorizontal(lipgloss.Bottom, box, " ", send)
	if lipgloss.Width(input) > m.width {
		input = box
	}

	help := m.theme.Help.Render(HelpLine(m.keys.ShortHelp()))

	return strings.Join([]string{
		header,
		m.viewport.View(),
		status,
		input,
		help,
	}, "\n")
}
