// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/util"
)

// sessionFile is the on-disk form of a login session.
type sessionFile struct {
	BaseURL string          `json:"base_url"`
	SavedAt time.Time       `json:"saved_at"`
	Cookies []sessionCookie `json:"cookies"`
}

type sessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SessionStore persists session cookies between runs.
type SessionStore struct {
	path string
}

// NewSessionStore returns a store backed by path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the cookies saved for baseURL. A missing file, or one saved
// for a different backend, yields no cookies and no error.
func (s *SessionStore) Load(baseURL string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if sf.BaseURL != baseURL {
		return nil, nil
	}

	cookies := make([]*http.Cookie, 0, len(sf.Cookies))
	for _, c := range sf.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	return cookies, nil
}

// Save writes the cookies for baseURL with 0600 permissions.
func (s *SessionStore) Save(baseURL string, cookies []*http.Cookie) error {
	sf := sessionFile{BaseURL: baseURL, SavedAt: time.Now().UTC()}
	for _, c := range cookies {
		sf.Cookies = append(sf.Cookies, sessionCookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
