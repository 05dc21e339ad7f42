// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local transcript for companion.
//
// The transcript is an SQLite database recording what the chat displayed:
// messages in the order they were appended and every crisis alert with its
// support contacts. Each run of the client is one session.
//
// # Key Types
//
//   - Transcript: The database handle
//   - StoredSession: A session with its messages and alerts
//   - SessionMeta: Lightweight metadata for listing
//   - RecordingRenderer: A widget.Renderer decorator that writes to a Transcript
//
// # Usage
//
//	t, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//	sessionID, err := t.StartSession(ctx, baseURL)
//	renderer = storage.NewRecordingRenderer(renderer, t, sessionID, logger)
//
// # Storage Location
//
// The database lives at ~/.companion/transcript.db unless configured.
package storage
