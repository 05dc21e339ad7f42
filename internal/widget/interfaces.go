// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import (
	"context"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/api"
	"github.com/HeadupandFace/cbt-companion-app/internal/model"
)

// StatusKind selects the styling of a status message.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusWarning
	StatusError
)

// String returns the kind name.
func (k StatusKind) String() string {
	switch k {
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return "info"
	}
}

// Renderer is the display surface of a frontend.
type Renderer interface {
	// AppendMessage adds a message to the end of the log and scrolls to it.
	AppendMessage(msg model.Message)
	// ShowIndicator shows the thinking placeholder for the given request.
	ShowIndicator(token string)
	// RemoveIndicator removes the placeholder shown for token.
	RemoveIndicator(token string)
	// ShowModal opens the crisis modal with fresh content.
	ShowModal(alert model.CrisisAlert)
	// HideModal closes the crisis modal.
	HideModal()
	// ShowStatus replaces the status line text and makes it visible.
	ShowStatus(text string, kind StatusKind)
	// HideStatus hides the status line.
	HideStatus()
	// ClearInput empties the input field.
	ClearInput()
}

// Speaker speaks text aloud.
type Speaker interface {
	Speak(text string) error
	Cancel()
}

// Sender delivers one message to the backend and always settles.
type Sender interface {
	Send(ctx context.Context, message string) api.Result
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, message string) api.Result

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, message string) api.Result {
	return f(ctx, message)
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d.
type AfterFunc func(d time.Duration, f func()) Timer

// stdAfterFunc schedules with time.AfterFunc.
func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
