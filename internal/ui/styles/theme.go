// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the chat screen.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	ErrorBubble     lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style
	Indicator       lipgloss.Style

	// ==========================================================================
	// INPUT & STATUS STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	SendButton     lipgloss.Style
	StatusInfo     lipgloss.Style
	StatusWarning  lipgloss.Style
	StatusError    lipgloss.Style
	Help           lipgloss.Style

	// ==========================================================================
	// CRISIS MODAL STYLES
	// ==========================================================================

	Modal        lipgloss.Style
	ModalTitle   lipgloss.Style
	ModalMessage lipgloss.Style
	ModalName    lipgloss.Style
	ModalPhone   lipgloss.Style
	ModalButton  lipgloss.Style
}

// NewTheme creates a theme. mode is "auto", "dark" or "light"; anything
// other than "dark" or "light" asks the terminal.
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		Background(AssistantBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)

	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(ErrorBubbleFg).
		Background(ErrorBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.RoleLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Indicator = lipgloss.NewStyle().
		Foreground(Purple).
		Italic(true)

	// Input & status
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SendButton = lipgloss.NewStyle().
		Bold(true).
		Foreground(Surface).
		Background(Cyan).
		Padding(0, 1)

	t.StatusInfo = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusWarning = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Crisis modal
	t.Modal = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(Rose).
		Background(Surface).
		Foreground(TextPrimary).
		Padding(1, 3)

	t.ModalTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose)

	t.ModalMessage = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.ModalName = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.ModalPhone = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose).
		Underline(true)

	t.ModalButton = lipgloss.NewStyle().
		Bold(true).
		Foreground(Surface).
		Background(Rose).
		Padding(0, 2)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleWidth returns the text width available inside a message bubble.
func (t *Theme) BubbleWidth() int {
	w := t.Width*3/4 - 4 // border and padding
	if w < 20 {
		w = 20
	}
	return w
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
