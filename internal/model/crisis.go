// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Contact is a support service shown in the crisis modal.
type Contact struct {
	// Key is the shared prefix of the _title/_phone pair ("samaritans").
	Key   string `json:"key"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Label renders the contact the way the modal lists it: "Name: Phone".
func (c Contact) Label() string {
	if c.Phone == "" {
		return c.Name
	}
	return c.Name + ": " + c.Phone
}

// CrisisAlert is everything the crisis modal displays.
type CrisisAlert struct {
	Message  string    `json:"message"`
	Contacts []Contact `json:"contacts"`
}
