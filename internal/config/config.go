// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/HeadupandFace/cbt-companion-app/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete companion configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend connection
	Server ServerConfig `toml:"server" json:"server"`

	// Spoken responses
	Speech SpeechConfig `toml:"speech" json:"speech"`

	// Frontend
	UI UIConfig `toml:"ui" json:"ui"`

	// Local transcript database
	Transcript TranscriptConfig `toml:"transcript" json:"transcript"`

	// Diagnostics log
	Log LogConfig `toml:"log" json:"log"`
}

// ServerConfig describes the companion backend.
type ServerConfig struct {
	// BaseURL is the scheme://host[:port] of the web app.
	BaseURL string `toml:"base_url" json:"base_url"`
	// ChatPath is the chat endpoint path.
	ChatPath string `toml:"chat_path" json:"chat_path"`
	// CSRFToken is sent as X-CSRFToken. When empty the token is read from
	// the csrf-token meta tag of CSRFPage.
	CSRFToken string `toml:"csrf_token" json:"csrf_token"`
	// CSRFPage is the page whose <meta name="csrf-token"> supplies the token.
	CSRFPage string `toml:"csrf_page" json:"csrf_page"`
	// TimeoutSecs bounds a chat request. 0 waits for the transport to give up.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// SessionFile stores the login session cookie (empty = ~/.companion/session).
	SessionFile string `toml:"session_file" json:"session_file"`
	// RateLimit caps backend requests per second (0 = unlimited).
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// RateBurst is how many requests may go out back to back.
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
}

// SpeechConfig selects the speech engine.
type SpeechConfig struct {
	// Enabled turns spoken responses on.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Engine is "auto", "espeak-ng", "espeak", "spd-say", "say", "powershell" or "none".
	Engine string `toml:"engine" json:"engine"`
	// Voice is passed to the engine when set.
	Voice string `toml:"voice" json:"voice"`
	// Rate is words per minute; 0 keeps the engine default.
	Rate int `toml:"rate" json:"rate"`
}

// UIConfig contains frontend configuration.
type UIConfig struct {
	// Mode is "tui" (full screen) or "line" (REPL).
	Mode string `toml:"mode" json:"mode"`
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// StatusSecs is how long a status message stays visible.
	StatusSecs int `toml:"status_secs" json:"status_secs"`
	// AssistantName overrides the label of assistant messages.
	AssistantName string `toml:"assistant_name" json:"assistant_name"`
}

// TranscriptConfig controls the local transcript database.
type TranscriptConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path of the SQLite file (empty = ~/.companion/transcript.db).
	Path string `toml:"path" json:"path"`
}

// LogConfig controls the diagnostics log.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" json:"level"`
	// Path of the log file (empty = ~/.companion/companion.log).
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL:     "http://127.0.0.1:5001",
			ChatPath:    "/api/chat",
			CSRFPage:    "/chat",
			TimeoutSecs: 0, // the browser widget never timed out either
			RateLimit:   2,
			RateBurst:   5,
		},

		Speech: SpeechConfig{
			Enabled: true,
			Engine:  "auto",
		},

		UI: UIConfig{
			Mode:       "tui",
			Theme:      "auto",
			StatusSecs: 5,
		},

		Transcript: TranscriptConfig{
			Enabled: false,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the companion configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("COMPANION_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".companion"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// inConfigDir resolves name inside the config directory, or returns explicit
// unchanged when it is set.
func inConfigDir(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "companion", name)
	}
	return filepath.Join(dir, name)
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// ChatURL returns the absolute chat endpoint URL.
func (c *Config) ChatURL() string {
	return joinURL(c.Server.BaseURL, c.Server.ChatPath)
}

// CSRFPageURL returns the absolute URL of the page carrying the CSRF meta tag.
func (c *Config) CSRFPageURL() string {
	return joinURL(c.Server.BaseURL, c.Server.CSRFPage)
}

// Timeout returns the chat request timeout; 0 means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// StatusDuration returns how long status messages stay visible.
func (c *Config) StatusDuration() time.Duration {
	return time.Duration(c.UI.StatusSecs) * time.Second
}

// SessionPath returns the session cookie file path.
func (c *Config) SessionPath() string {
	return inConfigDir(c.Server.SessionFile, "session")
}

// TranscriptPath returns the transcript database path.
func (c *Config) TranscriptPath() string {
	return inConfigDir(c.Transcript.Path, "transcript.db")
}

// LogPath returns the diagnostics log path.
func (c *Config) LogPath() string {
	return inConfigDir(c.Log.Path, "companion.log")
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// .env files and environment overrides are applied last.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	// Defaults still work; the load error is informational.
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	loadDotEnv()

	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// the values already in cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv reads .env from the working directory and the config
// directory. Variables already set in the environment win.
func loadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaults.Server.BaseURL
	}
	if cfg.Server.ChatPath == "" {
		cfg.Server.ChatPath = defaults.Server.ChatPath
	}
	if cfg.Server.CSRFPage == "" {
		cfg.Server.CSRFPage = defaults.Server.CSRFPage
	}
	if cfg.Speech.Engine == "" {
		cfg.Speech.Engine = defaults.Speech.Engine
	}
	if cfg.UI.Mode == "" {
		cfg.UI.Mode = defaults.UI.Mode
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.StatusSecs == 0 {
		cfg.UI.StatusSecs = defaults.UI.StatusSecs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
// The file can hold a CSRF token, so it stays private to the user.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# companion configuration file\n")
	buf.WriteString("# Generated by companion - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validEngines = map[string]bool{
		"auto": true, "espeak-ng": true, "espeak": true, "spd-say": true,
		"say": true, "powershell": true, "none": true,
	}
	validModes  = map[string]bool{"tui": true, "line": true}
	validThemes = map[string]bool{"auto": true, "dark": true, "light": true}
	validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.Server.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("scheme must be http or https, got '%s'", u.Scheme),
		})
	case u.Host == "":
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: "missing host",
		})
	}

	if !strings.HasPrefix(c.Server.ChatPath, "/") {
		errs = append(errs, ValidationError{
			Field:   "server.chat_path",
			Message: fmt.Sprintf("must start with '/', got '%s'", c.Server.ChatPath),
		})
	}
	if c.Server.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit",
			Message: "must be non-negative",
		})
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_burst",
			Message: "must be at least 1 when rate_limit is set",
		})
	}

	if !validEngines[strings.ToLower(c.Speech.Engine)] {
		errs = append(errs, ValidationError{
			Field:   "speech.engine",
			Message: fmt.Sprintf("invalid engine '%s', must be one of: auto, espeak-ng, espeak, spd-say, say, powershell, none", c.Speech.Engine),
		})
	}
	if c.Speech.Rate < 0 || c.Speech.Rate > 600 {
		errs = append(errs, ValidationError{
			Field:   "speech.rate",
			Message: fmt.Sprintf("rate must be 0-600 words per minute, got %d", c.Speech.Rate),
		})
	}

	if !validModes[strings.ToLower(c.UI.Mode)] {
		errs = append(errs, ValidationError{
			Field:   "ui.mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: tui, line", c.UI.Mode),
		})
	}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.StatusSecs < 1 || c.UI.StatusSecs > 60 {
		errs = append(errs, ValidationError{
			Field:   "ui.status_secs",
			Message: fmt.Sprintf("status_secs must be 1-60, got %d", c.UI.StatusSecs),
		})
	}

	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
//   - COMPANION_URL: overrides server.base_url
//   - COMPANION_CSRF_TOKEN: overrides server.csrf_token
//   - COMPANION_TIMEOUT: overrides server.timeout_secs
//   - COMPANION_SESSION_FILE: overrides server.session_file
//   - COMPANION_SPEECH: "1"/"true" enables, "0"/"false" disables speech
//   - COMPANION_SPEECH_ENGINE: overrides speech.engine
//   - COMPANION_VOICE: overrides speech.voice
//   - COMPANION_UI_MODE: overrides ui.mode
//   - COMPANION_THEME: overrides ui.theme
//   - COMPANION_TRANSCRIPT: enables/disables the transcript database
//   - COMPANION_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("COMPANION_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("COMPANION_CSRF_TOKEN"); v != "" {
		c.Server.CSRFToken = v
	}
	if v := os.Getenv("COMPANION_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Server.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("COMPANION_SESSION_FILE"); v != "" {
		c.Server.SessionFile = v
	}
	if v := os.Getenv("COMPANION_SPEECH"); v != "" {
		c.Speech.Enabled = parseBool(v)
	}
	if v := os.Getenv("COMPANION_SPEECH_ENGINE"); v != "" {
		c.Speech.Engine = v
	}
	if v := os.Getenv("COMPANION_VOICE"); v != "" {
		c.Speech.Voice = v
	}
	if v := os.Getenv("COMPANION_UI_MODE"); v != "" {
		c.UI.Mode = v
	}
	if v := os.Getenv("COMPANION_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("COMPANION_TRANSCRIPT"); v != "" {
		c.Transcript.Enabled = parseBool(v)
	}
	if v := os.Getenv("COMPANION_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	if key == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// equivalent ("base_url" -> "BaseUrl"; matched case-insensitively).
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// Keys returns all configuration keys in dot notation.
func Keys() []string {
	return []string{
		"version",
		"server.base_url",
		"server.chat_path",
		"server.csrf_token",
		"server.csrf_page",
		"server.timeout_secs",
		"server.session_file",
		"server.rate_limit",
		"server.rate_burst",
		"speech.enabled",
		"speech.engine",
		"speech.voice",
		"speech.rate",
		"ui.mode",
		"ui.theme",
		"ui.status_secs",
		"ui.assistant_name",
		"transcript.enabled",
		"transcript.path",
		"log.level",
		"log.path",
	}
}
