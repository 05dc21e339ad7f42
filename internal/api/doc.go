// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the CBT companion backend.
//
// The chat endpoint never returns a Go error: every outcome of Send is a
// Result carrying either a *ChatResponse or a typed failure (*HTTPError or
// *TransportError), so the caller renders all of them through one sink.
//
// The remaining endpoints (login, history, user data, diary) use ordinary
// (value, error) returns.
//
// # Authentication
//
// The backend is session based. The client keeps a cookie jar seeded from a
// session file, and Login stores the session cookie after a successful
// ID-token exchange. Requests carry an X-CSRFToken header taken from a
// TokenSource: either a static value or the csrf-token meta tag of a page.
//
// # Usage
//
//	client, err := api.NewClient(api.Options{BaseURL: "http://127.0.0.1:5001"})
//	if err != nil {
//	    return err
//	}
//	result := client.Send(ctx, "I had a difficult day")
//	if result.Err != nil {
//	    fmt.Println(result.ErrorMessage())
//	}
package api
