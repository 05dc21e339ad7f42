// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view.
//
// The view has two halves. Screen is the widget.Renderer the controller
// draws into; it may be called from any goroutine and signals every change
// on a channel. Model is the Bubble Tea program state: it turns key presses
// into controller calls and copies the Screen into the viewport whenever
// the Screen reports a change.
package chat
