// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package speech speaks assistant replies through a local speech engine.
//
// Engines are external programs (espeak-ng, espeak, spd-say, say, or
// PowerShell's System.Speech on Windows). Only one utterance plays at a
// time: Speak stops whatever is playing before it starts.
package speech
