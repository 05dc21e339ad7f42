// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the building blocks of the companion chat
// screen.
//
// Components are pure renderers over a *styles.Theme: they take plain data
// (messages, a crisis alert, a status line) and return strings. State that
// changes over time, such as the thinking spinner, follows the Bubble Tea
// Update/View pattern.
//
// Components:
//   - Header: title bar with the assistant name and speech state
//   - MessageBubble: one chat log entry
//   - ThinkingIndicator: spinner shown while a request is in flight
//   - StatusLine: auto-hiding advisory text
//   - CrisisModal: centred support-contacts dialog
package components
