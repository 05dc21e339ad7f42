// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the companion packages.
//
// # Key Functions
//
// Text:
//   - TruncateWidth: display-width aware truncation with ellipsis
//   - Wrap: hard/soft wrapping that keeps the message's own line breaks
//   - Lines: split text on line breaks (handles \r\n)
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	for _, line := range util.Wrap(msg.Text, width) {
//	    fmt.Println(line)
//	}
//
//	err := util.AtomicWriteFile(path, data, 0600)
package util
