// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package widget implements the chat controller shared by every frontend.
//
// A Controller binds the send action to one request cycle:
//
//	Idle -> Sending -> {Reply | Crisis | Error} -> Idle
//
// It renders through a Renderer, speaks through a Speaker and posts through
// a Sender. All Renderer and Speaker calls are made under one mutex, so a
// frontend sees them strictly one at a time and in order.
//
// Each send is tagged with a request token. Only the response to the most
// recent send is rendered; a response that arrives after a newer send has
// started is logged and dropped. Starting a send removes the previous
// thinking indicator, so at most one is ever shown.
package widget
