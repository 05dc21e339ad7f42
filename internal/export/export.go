// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/storage"
	"github.com/HeadupandFace/cbt-companion-app/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export converts a session to the target format and returns the content.
	Export(sess *storage.StoredSession) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the session header (dates, counts).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	// Default: "light"
	Theme string

	// AssistantName labels assistant messages. Default: "Assistant".
	AssistantName string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "light",
	}
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{"markdown", "json", "html"}
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s (use one of %s)",
			format, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a session to a file using the specified exporter.
// Returns the output file path or an error. The file is written 0600.
func ExportToFile(sess *storage.StoredSession, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(sess)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("companion_%s_%s%s",
		sanitizeFilename(sess.Summary()),
		sess.StartedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	outputPath := filepath.Join(outputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			return outputPath, fmt.Errorf("exported, but could not open file: %w", err)
		}
	}

	return outputPath, nil
}

// =============================================================================
// TIMELINE
// =============================================================================

// entry is one item of a session in display order: a message or an alert.
type entry struct {
	at      time.Time
	message *model.Message
	alert   *storage.StoredAlert
}

// timeline merges messages and alerts by time. Messages keep their stored
// order, and an alert sorts after a message shown at the same instant.
func timeline(sess *storage.StoredSession) []entry {
	entries := make([]entry, 0, len(sess.Messages)+len(sess.Alerts))
	for i := range sess.Messages {
		entries = append(entries, entry{at: sess.Messages[i].Timestamp, message: &sess.Messages[i]})
	}
	for i := range sess.Alerts {
		entries = append(entries, entry{at: sess.Alerts[i].ShownAt, alert: &sess.Alerts[i]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})
	return entries
}

func validate(sess *storage.StoredSession) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}
	if len(sess.Messages) == 0 && len(sess.Alerts) == 0 {
		return fmt.Errorf("session has no messages")
	}
	if sess.StartedAt.IsZero() {
		return fmt.Errorf("session has invalid start timestamp")
	}
	return nil
}

// roleLabel returns the heading for a message.
func roleLabel(msg *model.Message, opts *Options) string {
	if msg.Role == model.RoleAssistant && opts.AssistantName != "" {
		return opts.AssistantName
	}
	if msg.Role == "" {
		return "Unknown"
	}
	return msg.Role.DisplayName()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	maxLen := 50
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "session"
	}

	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
