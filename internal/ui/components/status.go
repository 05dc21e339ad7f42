// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
	"github.com/HeadupandFace/cbt-companion-app/internal/util"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

// StatusLine is the single-line advisory area under the input. Showing a
// new status replaces the old text; hiding is driven by the controller's
// timers, not by the line itself.
type StatusLine struct {
	Text    string
	Kind    widget.StatusKind
	Visible bool
}

// Show replaces the text and makes the line visible.
func (s *StatusLine) Show(text string, kind widget.StatusKind) {
	s.Text = text
	s.Kind = kind
	s.Visible = true
}

// Hide hides the line. The text is kept until the next Show.
func (s *StatusLine) Hide() {
	s.Visible = false
}

// View renders the line truncated to width, or "" when hidden.
func (s StatusLine) View(theme *styles.Theme, width int) string {
	if !s.Visible || s.Text == "" {
		return ""
	}

	icon := styles.StatusIndicators.Info
	style := theme.StatusInfo
	switch s.Kind {
	case widget.StatusWarning:
		icon = styles.StatusIndicators.Warning
		style = theme.StatusWarning
	case widget.StatusError:
		icon = styles.StatusIndicators.Error
		style = theme.StatusError
	}

	text := icon + " " + s.Text
	if width > 0 {
		text = util.TruncateWidth(text, width)
	}
	return style.Render(text)
}
