// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// SESSION
// =============================================================================

// Login exchanges an identity-provider ID token for a backend session and
// saves the session cookie.
func (c *Client) Login(ctx context.Context, idToken string) (*LoginResponse, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("ID token is empty")
	}

	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/login", LoginRequest{IDToken: idToken}, &resp); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if meta, ok := c.token.(*MetaTokenSource); ok {
		meta.Reset()
	}
	if err := c.SaveSession(); err != nil {
		return &resp, err
	}
	c.logger.Info("logged in", zap.String("redirect", resp.Redirect))
	return &resp, nil
}

// SaveSession writes the current session cookies to the session file.
func (c *Client) SaveSession() error {
	if c.session == nil {
		return nil
	}
	return c.session.Save(c.baseURL.String(), c.httpClient.Jar.Cookies(c.baseURL))
}

// Logout forgets the stored session.
func (c *Client) Logout() error {
	if c.session == nil {
		return nil
	}
	return c.session.Clear()
}

// =============================================================================
// USER DATA
// =============================================================================

// UserData fetches the logged-in user's profile.
func (c *Client) UserData(ctx context.Context) (*UserData, error) {
	var user UserData
	if err := c.doJSON(ctx, http.MethodGet, "/api/user_data", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// History fetches the stored conversation, oldest first.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat_history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearHistory deletes the stored conversation.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/clear_chat_history", nil, nil)
}

// =============================================================================
// DIARY
// =============================================================================

// Diary lists diary entries, newest first.
func (c *Client) Diary(ctx context.Context) ([]DiaryEntry, error) {
	var entries []DiaryEntry
	if err := c.doJSON(ctx, http.MethodGet, "/api/diary", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteDiary saves text as today's diary entry, replacing any earlier
// entry for the same day.
func (c *Client) WriteDiary(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("diary entry is empty")
	}
	return c.doJSON(ctx, http.MethodPost, "/api/diary", DiaryRequest{Text: text}, nil)
}
