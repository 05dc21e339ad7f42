// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// GenericErrorMessage is used when a failed response carries no error text.
const GenericErrorMessage = "An unknown error occurred."

// =============================================================================
// ERROR TYPES
// =============================================================================

// HTTPError is a response with a non-success status.
type HTTPError struct {
	Status int
	// Message is the body's "error" field, or GenericErrorMessage.
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// TransportError is a failure to reach the backend or to read its reply,
// including a success response whose body is not valid JSON.
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrNotLoggedIn   = errors.New("not logged in: run 'companion login' first")
	ErrTokenNotFound = errors.New("csrf-token meta tag not found")
)

// newTransportError wraps cause with a description shown to the user.
func newTransportError(cause error, format string, args ...interface{}) *TransportError {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return &TransportError{Message: msg, Cause: cause}
}

// causeError reports cause with its own description, the way a failed
// fetch is shown in the chat.
func causeError(cause error) *TransportError {
	return &TransportError{Message: cause.Error(), Cause: cause}
}

// MessageOf extracts the user-facing message of a chat failure.
func MessageOf(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message == "" {
			return GenericErrorMessage
		}
		return httpErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Message
	}
	if err == nil || err.Error() == "" {
		return GenericErrorMessage
	}
	return err.Error()
}
