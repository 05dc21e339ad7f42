// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/components"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

// ScreenChangedMsg is delivered after the Screen has been drawn into.
type ScreenChangedMsg struct{}

// Snapshot is a consistent copy of the Screen.
type Snapshot struct {
	Messages []model.Message
	// Indicator is the token of the thinking placeholder, "" if none.
	Indicator string
	// Modal is the open crisis alert, nil when the modal is hidden.
	Modal  *model.CrisisAlert
	Status components.StatusLine
	// Clears counts ClearInput calls.
	Clears  int
	Version uint64
}

// Screen is a widget.Renderer that keeps the drawn state in memory.
//
// Screen is safe for concurrent use.
type Screen struct {
	mu        sync.Mutex
	messages  []model.Message
	indicator string
	modal     *model.CrisisAlert
	status    components.StatusLine
	clears    int
	version   uint64

	changed chan struct{}
	done    chan struct{}
	once    sync.Once
}

var _ widget.Renderer = (*Screen)(nil)

// NewScreen creates an empty Screen.
func NewScreen() *Screen {
	return &Screen{
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// update applies fn under the lock and signals the change.
func (s *Screen) update(fn func()) {
	s.mu.Lock()
	fn()
	s.version++
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// AppendMessage adds msg to the log.
func (s *Screen) AppendMessage(msg model.Message) {
	s.update(func() { s.messages = append(s.messages, msg) })
}

// ShowIndicator shows the placeholder for token, replacing any other.
func (s *Screen) ShowIndicator(token string) {
	s.update(func() { s.indicator = token })
}

// RemoveIndicator removes the placeholder if token owns it.
func (s *Screen) RemoveIndicator(token string) {
	s.update(func() {
		if s.indicator == token {
			s.indicator = ""
		}
	})
}

// ShowModal opens the modal with alert's content.
func (s *Screen) ShowModal(alert model.CrisisAlert) {
	s.update(func() {
		a := alert
		a.Contacts = append([]model.Contact(nil), alert.Contacts...)
		s.modal = &a
	})
}

// HideModal closes the modal.
func (s *Screen) HideModal() {
	s.update(func() { s.modal = nil })
}

// ShowStatus replaces the status text.
func (s *Screen) ShowStatus(text string, kind widget.StatusKind) {
	s.update(func() { s.status.Show(text, kind) })
}

// HideStatus hides the status line.
func (s *Screen) HideStatus() {
	s.update(func() { s.status.Hide() })
}

// ClearInput asks the view to empty its input field.
func (s *Screen) ClearInput() {
	s.update(func() { s.clears++ })
}

// Snapshot returns a copy of the current state.
func (s *Screen) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Messages:  append([]model.Message(nil), s.messages...),
		Indicator: s.indicator,
		Status:    s.status,
		Clears:    s.clears,
		Version:   s.version,
	}
	if s.modal != nil {
		m := *s.modal
		snap.Modal = &m
	}
	return snap
}

// WaitForChange returns a command that delivers ScreenChangedMsg on the
// next change. It returns nil once the Screen is closed.
func (s *Screen) WaitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.changed:
			return ScreenChangedMsg{}
		case <-s.done:
			return nil
		}
	}
}

// Close releases any pending WaitForChange command.
func (s *Screen) Close() {
	s.once.Do(func() { close(s.done) })
}
