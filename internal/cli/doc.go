// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the companion command line.
//
// Usage:
//
//	companion                    Start the chat (full screen, or line mode without a TTY)
//	companion line               Start the line-mode chat
//	companion login TOKEN        Sign in with an ID token
//	companion logout             Forget the saved session
//	companion whoami             Show the signed-in user
//	companion history            Print the stored conversation
//	companion clear-history      Delete the stored conversation
//	companion diary              List diary entries
//	companion diary add TEXT     Write today's diary entry
//	companion say TEXT           Speak text with the configured engine
//	companion sessions           List local transcripts
//	companion export [ID]        Export a transcript
//	companion config show|path|init|get KEY
//	companion version
//
// Global flags:
//
//	--config PATH   Use a specific config file
//	--url URL       Override server.base_url
//	-v, --verbose   Debug logging
package cli
