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

const (
	// CrisisModalTitle heads the modal.
	CrisisModalTitle = "You don't have to go through this alone"

	// CrisisModalClose is the label of the close control.
	CrisisModalClose = "Close"
)

// CrisisModal renders the crisis support dialog. It is rebuilt from the
// alert on every render; nothing from a previous alert is kept.
type CrisisModal struct {
	Alert model.CrisisAlert
}

// NewCrisisModal creates a modal for alert.
func NewCrisisModal(alert model.CrisisAlert) CrisisModal {
	return CrisisModal{Alert: alert}
}

// Box renders the dialog itself, at most width columns wide.
func (m CrisisModal) Box(theme *styles.Theme, width int) string {
	inner := 56
	if width > 0 && width-10 < inner {
		inner = width - 10
	}
	if inner < 20 {
		inner = 20
	}

	var rows []string
	rows = append(rows, theme.ModalTitle.Render(CrisisModalTitle), "")

	if msg := strings.TrimSpace(m.Alert.Message); msg != "" {
		for _, line := range util.Wrap(msg, inner) {
			rows = append(rows, theme.ModalMessage.Render(line))
		}
		rows = append(rows, "")
	}

	for _, c := range m.Alert.Contacts {
		rows = append(rows, m.contactRow(theme, c, inner))
	}
	if len(m.Alert.Contacts) > 0 {
		rows = append(rows, "")
	}

	button := theme.ModalButton.Render(CrisisModalClose)
	hint := theme.Help.Render("  Enter to close")
	rows = append(rows, button+hint)

	return theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m CrisisModal) contactRow(theme *styles.Theme, c model.Contact, width int) string {
	if c.Phone == "" {
		return theme.ModalName.Render(util.TruncateWidth(c.Name, width))
	}
	name := theme.ModalName.Render(c.Name + ":")
	return name + " " + theme.ModalPhone.Render(c.Phone)
}

// View renders the dialog centred in a width x height area.
func (m CrisisModal) View(theme *styles.Theme, width, height int) string {
	box := m.Box(theme, width)
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
