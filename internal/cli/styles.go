// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.Purple).
				Bold(true)

	errorLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	successStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	headingStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)
