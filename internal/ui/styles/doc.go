// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the companion TUI.
//
// All colors use Lip Gloss AdaptiveColor so they follow the terminal's
// light or dark background. A Theme bundles the styles used by the chat
// screen; NewTheme honours the ui.theme setting ("auto", "dark", "light").
package styles
