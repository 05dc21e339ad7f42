// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/components"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
	"github.com/HeadupandFace/cbt-companion-app/internal/util"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

// indicatorText is the line-mode thinking placeholder.
const indicatorText = "Thinking..."

// eraseLine returns the cursor to column 0 and clears the line.
const eraseLine = "\r\x1b[K"

// LineRenderer is a widget.Renderer for scrolling terminal output.
//
// LineRenderer is safe for concurrent use.
type LineRenderer struct {
	mu            sync.Mutex
	w             io.Writer
	theme         *styles.Theme
	width         int
	animate       bool
	echoUser      bool
	assistantName string

	indicator     string
	modalOpen     bool
	statusVisible bool
}

// LineOptions configures a LineRenderer.
type LineOptions struct {
	Theme *styles.Theme
	Width int
	// Animate prints the thinking placeholder and erases it once the reply
	// arrives. Without it the placeholder is not printed.
	Animate bool
	// EchoUser prints the user's messages. A line editor already shows
	// what was typed, so this is for piped input.
	EchoUser bool
}

// NewLineRenderer creates a renderer writing to w.
func NewLineRenderer(w io.Writer, opts LineOptions) *LineRenderer {
	if opts.Width <= 0 {
		opts.Width = DefaultTerminalWidth
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}
	return &LineRenderer{
		w:        w,
		theme:    opts.Theme,
		width:    opts.Width,
		animate:  opts.Animate,
		echoUser: opts.EchoUser,
	}
}

var _ widget.Renderer = (*LineRenderer)(nil)

// SetAssistantName sets the label of assistant messages.
func (r *LineRenderer) SetAssistantName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assistantName = name
}

// AppendMessage prints a labelled message, one output line per text line.
func (r *LineRenderer) AppendMessage(msg model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.Role == model.RoleUser && !r.echoUser {
		return
	}

	var label string
	switch {
	case msg.Role == model.RoleUser:
		label = userLabelStyle.Render(msg.Role.DisplayName() + ":")
	case msg.IsError():
		label = errorLabelStyle.Render(r.assistantLabel() + ":")
	default:
		label = assistantLabelStyle.Render(r.assistantLabel() + ":")
	}

	var b strings.Builder
	b.WriteString(label)
	b.WriteByte('\n')
	for _, line := range util.Wrap(msg.Text, r.width-2) {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprint(r.w, b.String())
}

func (r *LineRenderer) assistantLabel() string {
	if r.assistantName != "" {
		return r.assistantName
	}
	return model.RoleAssistant.DisplayName()
}

// ShowIndicator prints the placeholder.
func (r *LineRenderer) ShowIndicator(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indicator != "" && r.animate {
		fmt.Fprint(r.w, eraseLine)
	}
	r.indicator = token
	if r.animate {
		fmt.Fprint(r.w, mutedStyle.Render(indicatorText))
	}
}

// RemoveIndicator erases the placeholder if token owns it.
func (r *LineRenderer) RemoveIndicator(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indicator != token {
		return
	}
	r.indicator = ""
	if r.animate {
		fmt.Fprint(r.w, eraseLine)
	}
}

// ShowModal prints the crisis dialog.
func (r *LineRenderer) ShowModal(alert model.CrisisAlert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modalOpen = true
	fmt.Fprintln(r.w, components.NewCrisisModal(alert).Box(r.theme, r.width))
}

// HideModal notes that the dialog was closed.
func (r *LineRenderer) HideModal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.modalOpen {
		return
	}
	r.modalOpen = false
	fmt.Fprintln(r.w, mutedStyle.Render("Support dialog closed."))
}

// ShowStatus prints the status text.
func (r *LineRenderer) ShowStatus(text string, kind widget.StatusKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusVisible = true
	line := components.StatusLine{Text: text, Kind: kind, Visible: true}
	fmt.Fprintln(r.w, line.View(r.theme, r.width))
}

// HideStatus marks the status as hidden. Printed output stays.
func (r *LineRenderer) HideStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusVisible = false
}

// ClearInput does nothing; the line editor has already consumed the line.
func (r *LineRenderer) ClearInput() {}

// SetEchoUser turns printing of user messages on or off.
func (r *LineRenderer) SetEchoUser(echo bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.echoUser = echo
}
