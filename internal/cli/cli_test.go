// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HeadupandFace/cbt-companion-app/internal/api"
	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/speech"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/chat"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/components"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

// =============================================================================
// HARNESS
// =============================================================================

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COMPANION_HOME", dir)
	for _, key := range []string{
		"COMPANION_URL", "COMPANION_CSRF_TOKEN", "COMPANION_TIMEOUT",
		"COMPANION_SESSION_FILE", "COMPANION_SPEECH_ENGINE",
		"COMPANION_VOICE", "COMPANION_UI_MODE", "COMPANION_THEME",
		"COMPANION_TRANSCRIPT", "COMPANION_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("COMPANION_SPEECH", "false")
	t.Setenv("NO_COLOR", "1")
	return dir
}

// scriptedReader replays input lines, then reports end of input.
type scriptedReader struct {
	lines   []string
	prompts []string
}

func (r *scriptedReader) ReadInput(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) Close() {}

func runCLI(t *testing.T, args []string, stdin string, reader LineReader) (string, error) {
	t.Helper()
	if reader == nil {
		reader = &scriptedReader{}
	}
	app := &App{
		Info:        BuildInfo{Version: "1.2.3", GitCommit: "abc", BuildDate: "today"},
		newReader:   func(*App) LineReader { return reader },
		interactive: func() bool { return false },
	}
	root := app.rootCommand()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// fakeBackend imitates the companion web app.
type fakeBackend struct {
	mu       sync.Mutex
	messages []string
	history  []map[string]interface{}
	diary    []map[string]string
	cleared  bool
}

const sessionCookie = "s3cret"

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		history: []map[string]interface{}{
			{"role": "user", "parts": []map[string]string{{"text": "earlier question"}}},
			{"role": "model", "parts": []map[string]string{{"text": "earlier answer"}}},
		},
		diary: []map[string]string{
			{"date": "2025-03-02", "text": "Walked by the river."},
			{"date": "2025-03-01", "text": "Slept badly."},
		},
	}

	authed := func(r *http.Request) bool {
		c, err := r.Cookie("session")
		return err == nil && c.Value == sessionCookie
	}
	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta name="csrf-token" content="tok"></head></html>`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRFToken") != "tok" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "The CSRF token is missing."})
			return
		}
		var req struct {
			Message string `json:"message"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.messages = append(b.messages, req.Message)
		b.mu.Unlock()

		switch {
		case strings.Contains(req.Message, "boom"):
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
		case strings.Contains(req.Message, "hopeless"):
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ai_response":"Please reach out for support.","crisis_alert":true,` +
				`"support_contacts":{"samaritans_title":"Samaritans","samaritans_phone":"116 123",` +
				`"nhs_title":"NHS","nhs_phone":"111"}}`))
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"ai_response":  "You said: " + req.Message,
				"crisis_alert": false,
			})
		}
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDToken string `json:"idToken"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.IDToken != "good-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: sessionCookie, Path: "/"})
		writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful", "redirect": "/chat"})
	})
	mux.HandleFunc("/api/user_data", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Redirect(w, r, "/login?next=%2Fapi%2Fuser_data", http.StatusFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"user_id": "u1", "username": "alex", "display_name": "Alex",
			"preferred_assistant": "Sam",
		})
	})
	mux.HandleFunc("/api/chat_history", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.history)
	})
	mux.HandleFunc("/api/clear_chat_history", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.cleared = true
		b.history = nil
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"message": "Chat history cleared"})
	})
	mux.HandleFunc("/api/diary", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.Method == http.MethodPost {
			var req struct {
				Text string `json:"text"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			b.diary = append([]map[string]string{{"date": "2025-03-03", "text": req.Text}}, b.diary...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "saved"})
			return
		}
		writeJSON(w, http.StatusOK, b.diary)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return b, server
}

func (b *fakeBackend) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.messages...)
}

func (b *fakeBackend) wasCleared() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cleared
}

// =============================================================================
// BASIC COMMANDS
// =============================================================================

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, []string{"version"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "companion 1.2.3")
	assert.Contains(t, out, "commit: abc")
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)

	out, err := runCLI(t, []string{"config", "path"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), strings.TrimSpace(out))

	out, err = runCLI(t, []string{"config", "init"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = runCLI(t, []string{"config", "init"}, "", nil)
	assert.ErrorContains(t, err, "already exists")

	out, err = runCLI(t, []string{"--url", "http://example.test:8080", "config", "get", "server.base_url"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:8080", strings.TrimSpace(out))

	out, err = runCLI(t, []string{"config", "show"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "[server]")
	assert.Contains(t, out, "base_url")
}

func TestInvalidURLFlag(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, []string{"--url", "ftp://nope", "version"}, "", nil)
	assert.ErrorContains(t, err, "server.base_url")
}

// =============================================================================
// LINE MODE
// =============================================================================

func TestLineMode_Reply(t *testing.T) {
	isolate(t)
	backend, server := newFakeBackend(t)

	reader := &scriptedReader{lines: []string{"hello there"}}
	out, err := runCLI(t, []string{"--url", server.URL, "line"}, "", reader)
	require.NoError(t, err)

	assert.Equal(t, []string{"hello there"}, backend.sent())
	assert.Contains(t, out, "You said: hello there")
	assert.Len(t, reader.prompts, 2)
	assert.Contains(t, reader.prompts[0], chatPrompt)
}

func TestRootCommand_FallsBackToLineMode(t *testing.T) {
	isolate(t)
	backend, server := newFakeBackend(t)

	reader := &scriptedReader{lines: []string{"hi"}}
	out, err := runCLI(t, []string{"--url", server.URL}, "", reader)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, backend.sent())
	assert.Contains(t, out, "You said: hi")
}

func TestLineMode_EmptyInputWarns(t *testing.T) {
	isolate(t)
	backend, server := newFakeBackend(t)

	reader := &scriptedReader{lines: []string{"   "}}
	out, err := runCLI(t, []string{"--url", server.URL, "line"}, "", reader)
	require.NoError(t, err)
	assert.Empty(t, backend.sent())
	assert.Contains(t, out, widget.EmptyInputStatus)
}

func TestLineMode_ServerError(t *testing.T) {
	isolate(t)
	_, server := newFakeBackend(t)

	reader := &scriptedReader{lines: []string{"boom please"}}
	out, err := runCLI(t, []string{"--url", server.URL, "line"}, "", reader)
	require.NoError(t, err)
	assert.Contains(t, out, "Sorry, I encountered an error: boom")
}

func TestLineMode_CrisisDialog(t *testing.T) {
	isolate(t)
	backend, server := newFakeBackend(t)

	reader := &scriptedReader{lines: []string{"I feel hopeless", "anything else", "", "after"}}
	out, err := runCLI(t, []string{"--url", server.URL, "line"}, "", reader)
	require.NoError(t, err)

	assert.Contains(t, out, components.CrisisModalTitle)
	assert.Contains(t, out, "Please reach out for support.")
	assert.Less(t, strings.Index(out, "Samaritans"), strings.Index(out, "NHS"))
	assert.Contains(t, out, "116 123")
	assert.Contains(t, out, modalReminder)
	assert.Contains(t, out, "Support dialog closed.")

	require.Len(t, reader.prompts, 5)
	assert.Contains(t, reader.prompts[1], modalPrompt)
	assert.Contains(t, reader.prompts[2], modalPrompt)
	assert.Contains(t, reader.prompts[3], chatPrompt)

	// Text typed while the dialog was open is never sent.
	assert.Equal(t, []string{"I feel hopeless", "after"}, backend.sent())
}

func TestLineMode_SlashCommands(t *testing.T) {
	isolate(t)
	backend, server := newFakeBackend(t)

	reader := &scriptedReader{lines: []string{"/help", "/mute", "/bogus", "/quit", "never sent"}}
	out, err := runCLI(t, []string{"--url", server.URL, "line"}, "", reader)
	require.NoError(t, err)

	assert.Contains(t, out, "Chat commands")
	assert.Contains(t, out, "Speech muted.")
	assert.Contains(t, out, "Unknown command /bogus")
	assert.Empty(t, backend.sent())
}

func TestLineMode_ShowsHistoryAndAssistantName(t *testing.T) {
	isolate(t)
	_, server := newFakeBackend(t)

	_, err := runCLI(t, []string{"--url", server.URL, "login", "good-token"}, "", nil)
	require.NoError(t, err)

	reader := &scriptedReader{lines: []string{"hello"}}
	out, err := runCLI(t, []string{"--url", server.URL, "line", "--history"}, "", reader)
	require.NoError(t, err)

	assert.Contains(t, out, "earlier question")
	assert.Contains(t, out, "Sam:")
	assert.Less(t, strings.Index(out, "earlier answer"), strings.Index(out, "You said: hello"))
}

func TestSlashCommandParsing(t *testing.T) {
	name, ok := slashCommand("  /Help me ")
	assert.True(t, ok)
	assert.Equal(t, "help", name)

	_, ok = slashCommand("/")
	assert.False(t, ok)
	_, ok = slashCommand("hello /help")
	assert.False(t, ok)
}

// =============================================================================
// ACCOUNT COMMANDS
// =============================================================================

func TestLoginAndWhoami(t *testing.T) {
	dir := isolate(t)
	_, server := newFakeBackend(t)

	_, err := runCLI(t, []string{"--url", server.URL, "whoami"}, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "companion login")

	_, err = runCLI(t, []string{"--url", server.URL, "login"}, "bad-token\n", nil)
	require.Error(t, err)

	out, err := runCLI(t, []string{"--url", server.URL, "login"}, "good-token\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	info, err := os.Stat(filepath.Join(dir, "session"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	out, err = runCLI(t, []string{"--url", server.URL, "whoami"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Alex")
	assert.Contains(t, out, "Sam")

	out, err = runCLI(t, []string{"--url", server.URL, "whoami", "--json"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, `"preferred_assistant": "Sam"`)

	_, err = runCLI(t, []string{"--url", server.URL, "logout"}, "", nil)
	require.NoError(t, err)
	_, err = runCLI(t, []string{"--url", server.URL, "whoami"}, "", nil)
	assert.Error(t, err)
}

func TestHistoryCommands(t *testing.T) {
	isolate(t)
	backend, server := newFakeBackend(t)

	out, err := runCLI(t, []string{"--url", server.URL, "history"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "earlier question")
	assert.Contains(t, out, "earlier answer")

	out, err = runCLI(t, []string{"--url", server.URL, "history", "-n", "1"}, "", nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "earlier question")
	assert.Contains(t, out, "earlier answer")

	out, err = runCLI(t, []string{"--url", server.URL, "clear-history"}, "n\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
	assert.False(t, backend.wasCleared())

	out, err = runCLI(t, []string{"--url", server.URL, "clear-history", "--yes"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Conversation cleared.")
	assert.True(t, backend.wasCleared())

	out, err = runCLI(t, []string{"--url", server.URL, "history"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No conversation yet.")
}

func TestDiaryCommands(t *testing.T) {
	isolate(t)
	_, server := newFakeBackend(t)

	out, err := runCLI(t, []string{"--url", server.URL, "diary"}, "", nil)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "2025-03-02"), strings.Index(out, "2025-03-01"))
	assert.Contains(t, out, "Walked by the river.")

	out, err = runCLI(t, []string{"--url", server.URL, "diary", "add", "Felt", "calmer"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Diary entry saved.")

	out, err = runCLI(t, []string{"--url", server.URL, "diary", "add"}, "From stdin\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Diary entry saved.")

	out, err = runCLI(t, []string{"--url", server.URL, "diary", "-n", "2"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "From stdin")
	assert.Contains(t, out, "Felt calmer")
	assert.NotContains(t, out, "Walked by the river.")

	_, err = runCLI(t, []string{"--url", server.URL, "diary", "add"}, "   \n", nil)
	assert.ErrorContains(t, err, "empty")
}

// =============================================================================
// SPEECH
// =============================================================================

func TestSayCommand_Errors(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, []string{"say"}, "", nil)
	assert.ErrorContains(t, err, "nothing to say")

	_, err = runCLI(t, []string{"say", "--engine", "none", "hello"}, "", nil)
	assert.ErrorContains(t, err, "no speech engine")
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

func TestSessionsAndExport(t *testing.T) {
	isolate(t)
	_, server := newFakeBackend(t)

	_, err := runCLI(t, []string{"sessions"}, "", nil)
	assert.ErrorIs(t, err, errNoTranscripts)

	t.Setenv("COMPANION_TRANSCRIPT", "true")
	reader := &scriptedReader{lines: []string{"remember this", "I feel hopeless", ""}}
	_, err = runCLI(t, []string{"--url", server.URL, "line"}, "", reader)
	require.NoError(t, err)

	out, err := runCLI(t, []string{"sessions"}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "remember this")
	assert.Contains(t, out, "1 alert(s)")

	outDir := t.TempDir()
	out, err = runCLI(t, []string{"export", "--format", "markdown", "--out", outDir}, "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to")

	files, err := filepath.Glob(filepath.Join(outDir, "companion_*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "remember this")
	assert.Contains(t, string(data), "You said: remember this")
	assert.Contains(t, string(data), "116 123")

	_, err = runCLI(t, []string{"export", "--format", "pdf"}, "", nil)
	assert.ErrorContains(t, err, "unsupported export format")
}

// =============================================================================
// LINE RENDERER
// =============================================================================

func TestLineRenderer_Indicator(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineRenderer(&buf, LineOptions{Width: 60, Animate: true})

	r.ShowIndicator("a")
	assert.Contains(t, buf.String(), indicatorText)

	buf.Reset()
	r.RemoveIndicator("b")
	assert.Empty(t, buf.String(), "another token must not erase the indicator")

	r.RemoveIndicator("a")
	assert.Equal(t, eraseLine, buf.String())
}

func TestLineRenderer_NoAnimationPrintsNoIndicator(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineRenderer(&buf, LineOptions{Width: 60})
	r.ShowIndicator("a")
	r.RemoveIndicator("a")
	assert.Empty(t, buf.String())
}

// =============================================================================
// LIVE CONFIG
// =============================================================================

func TestWatchConfig_AppliesSpeechSetting(t *testing.T) {
	dir := isolate(t)
	t.Setenv("COMPANION_SPEECH", "")
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[speech]\nenabled = true\n"), 0600))

	screen := chat.NewScreen()
	defer screen.Close()
	ctrl, err := widget.New(widget.Options{
		Renderer: screen,
		Sender: widget.SenderFunc(func(context.Context, string) api.Result {
			return api.Result{Response: &api.ChatResponse{AIResponse: "ok"}}
		}),
	})
	require.NoError(t, err)

	app := &App{Config: config.Default(), Logger: zap.NewNop(), configPath: path}
	sess := &chatSession{controller: ctrl, speaker: speech.Null{}, logger: zap.NewNop()}
	app.watchConfig(context.Background(), sess)
	require.NotNil(t, sess.watcher)
	defer sess.Close()

	require.NoError(t, os.WriteFile(path, []byte("[speech]\nenabled = false\n"), 0600))
	require.Eventually(t, func() bool {
		return screen.Snapshot().Status.Text == "Settings reloaded."
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, ctrl.Muted())

	require.NoError(t, os.WriteFile(path, []byte("[speech\n"), 0600))
	require.Eventually(t, func() bool {
		return strings.Contains(screen.Snapshot().Status.Text, "errors")
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, ctrl.Muted(), "a broken file keeps the current settings")

	require.NoError(t, os.WriteFile(path, []byte("[speech]\nenabled = true\n"), 0600))
	require.Eventually(t, func() bool { return !ctrl.Muted() }, 5*time.Second, 20*time.Millisecond)
}
