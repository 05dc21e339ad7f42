// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
	"github.com/HeadupandFace/cbt-companion-app/internal/util"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one log entry.
type MessageBubble struct {
	Message model.Message
	// AssistantName labels assistant messages; defaults to "Assistant".
	AssistantName  string
	ShowTimestamps bool
}

// NewMessageBubble creates a bubble for msg.
func NewMessageBubble(msg model.Message, assistantName string) MessageBubble {
	return MessageBubble{Message: msg, AssistantName: assistantName}
}

// Label returns the role label shown above the bubble.
func (b MessageBubble) Label() string {
	if b.Message.Role == model.RoleAssistant && b.AssistantName != "" {
		return b.AssistantName
	}
	return b.Message.Role.DisplayName()
}

// View renders the bubble within width columns. User messages sit on the
// right, assistant messages on the left. Each line of the text is its own
// row, so line breaks in the message are kept.
func (b MessageBubble) View(theme *styles.Theme, width int) string {
	inner := theme.BubbleWidth()
	if width > 0 && inner > width-4 {
		inner = width - 4
	}
	if inner < 10 {
		inner = 10
	}

	body := strings.Join(util.Wrap(b.Message.Text, inner), "\n")

	style := theme.AssistantBubble
	switch {
	case b.Message.Role == model.RoleUser:
		style = theme.UserBubble
	case b.Message.IsError():
		style = theme.ErrorBubble
	}

	label := theme.RoleLabel.Render(b.Label())
	if b.ShowTimestamps && !b.Message.Timestamp.IsZero() {
		label += " " + theme.Timestamp.Render(b.Message.Timestamp.Format("15:04"))
	}

	bubble := lipgloss.JoinVertical(lipgloss.Left, label, style.Render(body))
	if b.Message.Role == model.RoleUser && width > 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
	}
	return bubble
}

// RenderLog renders a sequence of messages separated by blank lines.
func RenderLog(theme *styles.Theme, msgs []model.Message, assistantName string, width int, timestamps bool) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		b := NewMessageBubble(msg, assistantName)
		b.ShowTimestamps = timestamps
		parts = append(parts, b.View(theme, width))
	}
	return strings.Join(parts, "\n\n")
}
