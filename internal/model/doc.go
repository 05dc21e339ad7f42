// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures rendered by the chat client.
//
// # Key Types
//
//   - Message: one entry of the chat log (user, assistant reply, or error)
//   - Role: sender of a message (user, assistant)
//   - CrisisAlert: message plus support contacts shown in the crisis modal
//   - Contact: a (service name, phone number) pair
//
// Messages are transient: the controller renders them and forgets them.
// Only the optional transcript store keeps a copy.
package model
