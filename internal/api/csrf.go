// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TokenSource supplies the X-CSRFToken header value.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed CSRF token.
type StaticToken string

// Token returns the token itself.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// MetaTokenSource reads the token from the csrf-token meta tag of a page,
// the same tag the web app embeds in its chat page. The first token found
// is cached.
type MetaTokenSource struct {
	pageURL    string
	httpClient *http.Client

	mu     sync.Mutex
	cached string
}

// NewMetaTokenSource creates a token source that scrapes pageURL.
func NewMetaTokenSource(pageURL string, httpClient *http.Client) *MetaTokenSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &MetaTokenSource{pageURL: pageURL, httpClient: httpClient}
}

// Token fetches the page once and returns the cached token afterwards.
func (m *MetaTokenSource) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != "" {
		return m.cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", m.pageURL, err)
	}
	defer resp.Body.Close()

	if isLoginRedirect(resp) {
		return "", ErrNotLoggedIn
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: %s", m.pageURL, resp.Status)
	}

	token, err := FindMetaContent(resp.Body, "csrf-token")
	if err != nil {
		return "", err
	}
	m.cached = token
	return token, nil
}

// Reset drops the cached token, e.g. after a new login.
func (m *MetaTokenSource) Reset() {
	m.mu.Lock()
	m.cached = ""
	m.mu.Unlock()
}

// FindMetaContent returns the content attribute of the first
// <meta name="..."> tag with the given name.
func FindMetaContent(r io.Reader, name string) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return "", ErrTokenNotFound
			}
			return "", fmt.Errorf("failed to parse page: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.Meta {
				continue
			}
			var metaName, content string
			var hasContent bool
			for _, attr := range tok.Attr {
				switch strings.ToLower(attr.Key) {
				case "name":
					metaName = attr.Val
				case "content":
					content = attr.Val
					hasContent = true
				}
			}
			if strings.EqualFold(metaName, name) && hasContent {
				return content, nil
			}
		}
	}
}
