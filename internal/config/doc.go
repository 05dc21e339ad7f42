// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for companion.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Backend location, CSRF and session settings
//   - SpeechConfig: Speech engine selection
//   - UIConfig: Frontend selection, theme and status timing
//   - TranscriptConfig: Local transcript database
//   - LogConfig: Log level and file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (COMPANION_*), including ones set by .env files
//   - ~/.companion/config.toml
//   - ~/.companion/config.json
//   - Built-in defaults
//
// COMPANION_HOME relocates the whole ~/.companion directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	url := cfg.ChatURL()
//
// Watch reloads the file on every edit while a chat runs.
package config
