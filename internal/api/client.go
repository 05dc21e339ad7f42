// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Options holds configuration for the backend client.
type Options struct {
	// BaseURL is the web app root (default: http://127.0.0.1:5001).
	BaseURL string

	// ChatPath is the chat endpoint (default: /api/chat).
	ChatPath string

	// CSRFToken is a fixed X-CSRFToken value. When empty and CSRFPage is
	// set, the token is scraped from that page.
	CSRFToken string

	// CSRFPage is the page carrying <meta name="csrf-token">.
	CSRFPage string

	// TokenSource overrides CSRFToken/CSRFPage.
	TokenSource TokenSource

	// Timeout bounds each request. 0 means no timeout.
	Timeout time.Duration

	// SessionFile stores the login cookie. Empty keeps the session in memory.
	SessionFile string

	// RateLimit caps requests per second. 0 means unlimited.
	RateLimit float64

	// RateBurst is the number of requests allowed back to back (minimum 1).
	RateBurst int

	// Logger receives request diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the companion backend.
//
// The Client is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	chatURL    string
	token      TokenSource
	httpClient *http.Client
	session    *SessionStore
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a backend client, restoring any saved session.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://127.0.0.1:5001"
	}
	if opts.ChatPath == "" {
		opts.ChatPath = "/api/chat"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing scheme or host", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: base,
		logger:  logger,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: opts.Timeout,
			// Unauthenticated requests are redirected to the login page;
			// surface the redirect instead of parsing the login HTML.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	c.chatURL = c.resolve(opts.ChatPath)

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	if opts.SessionFile != "" {
		c.session = NewSessionStore(opts.SessionFile)
		cookies, err := c.session.Load(c.baseURL.String())
		if err != nil {
			logger.Warn("ignoring unreadable session file",
				zap.String("path", opts.SessionFile), zap.Error(err))
		} else if len(cookies) > 0 {
			jar.SetCookies(c.baseURL, cookies)
		}
	}

	switch {
	case opts.TokenSource != nil:
		c.token = opts.TokenSource
	case opts.CSRFToken != "":
		c.token = StaticToken(opts.CSRFToken)
	case opts.CSRFPage != "":
		c.token = NewMetaTokenSource(c.resolve(opts.CSRFPage), c.httpClient)
	}

	return c, nil
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ChatURL returns the chat endpoint URL.
func (c *Client) ChatURL() string {
	return c.chatURL
}

func (c *Client) resolve(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// =============================================================================
// CHAT
// =============================================================================

// Send posts one message to the chat endpoint. It always returns a settled
// Result; failures are typed *HTTPError or *TransportError.
func (c *Client) Send(ctx context.Context, message string) Result {
	body, err := json.Marshal(ChatRequest{Message: message})
	if err != nil {
		return Result{Err: newTransportError(err, "failed to encode request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return Result{Err: newTransportError(err, "failed to create request")}
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCSRF(ctx, req)

	if err := c.wait(ctx); err != nil {
		return Result{Err: newTransportError(err, "request cancelled")}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Err: causeError(unwrapURLError(err))}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Result{Err: causeError(err)}
	}

	c.logger.Debug("chat response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(data)))

	if !isSuccess(resp.StatusCode) {
		msg := errorField(data)
		if msg == "" {
			msg = GenericErrorMessage
		}
		return Result{Err: &HTTPError{Status: resp.StatusCode, Message: msg}}
	}

	chat, err := decodeChatResponse(data)
	if err != nil {
		return Result{Err: causeError(err)}
	}
	return Result{Response: chat}
}

// setCSRF adds the X-CSRFToken header. A token that cannot be obtained is
// logged and the request goes out without it.
func (c *Client) setCSRF(ctx context.Context, req *http.Request) {
	if c.token == nil {
		return
	}
	token, err := c.token.Token(ctx)
	if err != nil {
		c.logger.Warn("csrf token unavailable", zap.Error(err))
		return
	}
	if token != "" {
		req.Header.Set("X-CSRFToken", token)
	}
}

// wait blocks until the rate limiter admits another request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// isLoginRedirect reports whether resp bounces an anonymous request to the
// login page.
func isLoginRedirect(resp *http.Response) bool {
	if resp.StatusCode == http.StatusUnauthorized {
		return true
	}
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return false
	}
	return strings.Contains(resp.Header.Get("Location"), "/login")
}

// unwrapURLError strips the "Post <url>:" prefix net/http adds.
func unwrapURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

// doJSON performs a request against path, decoding a success body into out
// when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		c.setCSRF(ctx, req)
	}
	if err := c.wait(ctx); err != nil {
		return newTransportError(err, "request cancelled")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newTransportError(unwrapURLError(err), "could not reach the server")
	}
	defer resp.Body.Close()

	if isLoginRedirect(resp) {
		return ErrNotLoggedIn
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return newTransportError(err, "failed to read response")
	}

	if !isSuccess(resp.StatusCode) {
		msg := errorField(data)
		if msg == "" {
			msg = GenericErrorMessage
		}
		return &HTTPError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newTransportError(err, "the server sent an unreadable response")
	}
	return nil
}
