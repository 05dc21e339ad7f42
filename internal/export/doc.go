// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides transcript export functionality for companion.
//
// # Key Types
//
//   - Exporter: Format-specific export interface
//   - Options: Export configuration options
//
// # Supported Formats
//
//   - JSON: Machine-readable with full metadata
//   - Markdown: Human-readable with formatting
//   - HTML: Styled for viewing in browsers
//
// # Usage
//
// Export a stored session:
//
//	exporter, err := export.ForFormat("markdown", opts)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(session, exporter, opts)
package export
