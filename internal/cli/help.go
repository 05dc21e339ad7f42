// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// lineHelp is shown by /help in line mode.
const lineHelp = `# Chat commands

| Command | Action |
|---|---|
| ` + "`/help`" + ` | Show this help |
| ` + "`/mute`" + ` | Stop reading replies aloud |
| ` + "`/unmute`" + ` | Read replies aloud again |
| ` + "`/quit`" + ` | Leave the chat (also Ctrl+D) |

Anything else you type is sent to the companion.

When a support dialog is shown, press **Enter** to close it.
`

// renderMarkdown renders markdown for the terminal, falling back to the
// source text when rendering fails.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n") + "\n"
}
