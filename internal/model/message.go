// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// ParseRole maps a wire role onto a Role. The backend's history uses the
// Gemini vocabulary, where the assistant is "model".
func ParseRole(s string) Role {
	switch strings.ToLower(s) {
	case "user":
		return RoleUser
	case "assistant", "model":
		return RoleAssistant
	default:
		return Role(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Kind distinguishes assistant replies from synthesized error messages.
type Kind string

const (
	KindReply Kind = "reply"
	KindError Kind = "error"
)

// Message is one entry of the chat log.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role Role, kind Kind, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Kind:      kind,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, KindReply, text)
}

// NewAssistantMessage creates an assistant reply.
func NewAssistantMessage(text string) Message {
	return NewMessage(RoleAssistant, KindReply, text)
}

// NewErrorMessage creates an assistant-facing error message.
func NewErrorMessage(text string) Message {
	return NewMessage(RoleAssistant, KindError, text)
}

// IsError reports whether the message carries a synthesized error.
func (m Message) IsError() bool {
	return m.Kind == KindError
}

// Lines returns the text split on its line breaks. The log renders each
// line separately, which is how "\n" becomes a visible break.
func (m Message) Lines() []string {
	return strings.Split(strings.ReplaceAll(m.Text, "\r\n", "\n"), "\n")
}

// Preview returns a single-line, rune-safe preview of the text.
func (m Message) Preview(maxLen int) string {
	text := strings.Join(strings.Fields(m.Text), " ")
	runes := []rune(text)
	if len(runes) <= maxLen || maxLen < 4 {
		return text
	}
	return string(runes[:maxLen-3]) + "..."
}
