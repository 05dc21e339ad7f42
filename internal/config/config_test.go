// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COMPANION_HOME", dir)
	for _, key := range []string{
		"COMPANION_URL", "COMPANION_CSRF_TOKEN", "COMPANION_TIMEOUT",
		"COMPANION_SESSION_FILE", "COMPANION_SPEECH", "COMPANION_SPEECH_ENGINE",
		"COMPANION_VOICE", "COMPANION_UI_MODE", "COMPANION_THEME",
		"COMPANION_TRANSCRIPT", "COMPANION_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://127.0.0.1:5001", cfg.Server.BaseURL)
	assert.Equal(t, "/api/chat", cfg.Server.ChatPath)
	assert.Equal(t, 0, cfg.Server.TimeoutSecs)
	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, "auto", cfg.Speech.Engine)
	assert.Equal(t, "tui", cfg.UI.Mode)
	assert.Equal(t, 5*time.Second, cfg.StatusDuration())
	assert.Zero(t, cfg.Timeout())
	assert.NoError(t, cfg.Validate())
}

func TestChatURL(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "https://companion.example.org/"
	assert.Equal(t, "https://companion.example.org/api/chat", cfg.ChatURL())
	assert.Equal(t, "https://companion.example.org/chat", cfg.CSRFPageURL())
}

func TestDerivedPaths(t *testing.T) {
	dir := isolate(t)
	cfg := Default()

	assert.Equal(t, filepath.Join(dir, "session"), cfg.SessionPath())
	assert.Equal(t, filepath.Join(dir, "transcript.db"), cfg.TranscriptPath())
	assert.Equal(t, filepath.Join(dir, "companion.log"), cfg.LogPath())

	cfg.Server.SessionFile = "/tmp/elsewhere"
	assert.Equal(t, "/tmp/elsewhere", cfg.SessionPath())
}

func TestLoadTOMLKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
base_url = "https://cbt.example.com"

[speech]
enabled = false
`), 0600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://cbt.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "/api/chat", cfg.Server.ChatPath)
	assert.False(t, cfg.Speech.Enabled)
	assert.Equal(t, 5, cfg.UI.StatusSecs)
}

func TestLoadJSONFallback(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ui":{"mode":"line"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "line", cfg.UI.Mode)
}

func TestLoadWithoutFilesUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[ui]
mode = "gui"
`), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "ui.mode", verrs[0].Field)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("COMPANION_URL", "https://env.example.com")
	t.Setenv("COMPANION_CSRF_TOKEN", "tok")
	t.Setenv("COMPANION_SPEECH", "off")
	t.Setenv("COMPANION_TRANSCRIPT", "1")
	t.Setenv("COMPANION_TIMEOUT", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "tok", cfg.Server.CSRFToken)
	assert.False(t, cfg.Speech.Enabled)
	assert.True(t, cfg.Transcript.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
}

func TestDotEnvInConfigDir(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("COMPANION_THEME=light\n"), 0600))
	// godotenv sets the variable process-wide; restore it afterwards.
	t.Cleanup(func() { os.Unsetenv("COMPANION_THEME") })
	require.NoError(t, os.Unsetenv("COMPANION_THEME"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://x" }, "server.base_url"},
		{"missing host", func(c *Config) { c.Server.BaseURL = "http://" }, "server.base_url"},
		{"relative chat path", func(c *Config) { c.Server.ChatPath = "api/chat" }, "server.chat_path"},
		{"negative timeout", func(c *Config) { c.Server.TimeoutSecs = -1 }, "server.timeout_secs"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"zero burst", func(c *Config) { c.Server.RateBurst = 0 }, "server.rate_burst"},
		{"unknown engine", func(c *Config) { c.Speech.Engine = "festival" }, "speech.engine"},
		{"rate too high", func(c *Config) { c.Speech.Rate = 1000 }, "speech.rate"},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"status too long", func(c *Config) { c.UI.StatusSecs = 120 }, "ui.status_secs"},
		{"unknown level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			verrs, ok := err.(ValidateErrors)
			require.True(t, ok)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.Server.CSRFToken = "secret"
	cfg.Speech.Voice = "en-gb"

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.Server.CSRFToken)
	assert.Equal(t, "en-gb", loaded.Speech.Voice)
}

func TestGet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("server.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:5001", v)

	v, err = cfg.Get("ui.status_secs")
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = cfg.Get("server.nope")
	assert.Error(t, err)
	_, err = cfg.Get("version.more")
	assert.Error(t, err)
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestKeysResolve(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}
