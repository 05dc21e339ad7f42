// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown format.
type MarkdownExporter struct {
	options *Options
	now     func() time.Time
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

// Export converts a session to Markdown format.
func (e *MarkdownExporter) Export(sess *storage.StoredSession) ([]byte, error) {
	if err := validate(sess); err != nil {
		return nil, err
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(sess.Summary())))
		sb.WriteString(fmt.Sprintf("session: %s\n", sess.ID))
		sb.WriteString(fmt.Sprintf("date: %s\n", sess.StartedAt.Format(time.RFC3339)))
		if !sess.EndedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("ended: %s\n", sess.EndedAt.Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(sess.Messages)))
		if len(sess.Alerts) > 0 {
			sb.WriteString(fmt.Sprintf("crisis_alerts: %d\n", len(sess.Alerts)))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", e.now().Format(time.RFC3339)))
		sb.WriteString("generator: companion\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(sess.Summary())))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		sb.WriteString(fmt.Sprintf("- **Started**: %s\n", formatTimestamp(sess.StartedAt)))
		if !sess.EndedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("- **Ended**: %s\n", formatTimestamp(sess.EndedAt)))
		}
		if sess.BaseURL != "" {
			sb.WriteString(fmt.Sprintf("- **Server**: %s\n", sess.BaseURL))
		}
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(sess.Messages)))
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")

	entries := timeline(sess)
	for i, ent := range entries {
		if ent.message != nil {
			e.writeMessage(&sb, ent.message)
		} else {
			e.writeAlert(&sb, ent.alert)
		}
		if i < len(entries)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from companion on %s*\n",
		e.now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeMessage(sb *strings.Builder, msg *model.Message) {
	label := roleLabel(msg, e.options)
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
	} else {
		sb.WriteString(fmt.Sprintf("### %s\n\n", label))
	}

	content := strings.TrimSpace(msg.Text)
	if msg.IsError() {
		content = "> " + strings.ReplaceAll(content, "\n", "\n> ")
	}
	sb.WriteString(content)
	sb.WriteString("\n\n")
}

func (e *MarkdownExporter) writeAlert(sb *strings.Builder, alert *storage.StoredAlert) {
	if e.options.IncludeTimestamps && !alert.ShownAt.IsZero() {
		sb.WriteString(fmt.Sprintf("### [Crisis Support] <sub>%s</sub>\n\n", formatShortTimestamp(alert.ShownAt)))
	} else {
		sb.WriteString("### [Crisis Support]\n\n")
	}
	sb.WriteString(strings.TrimSpace(alert.Message))
	sb.WriteString("\n\n")
	for _, c := range alert.Contacts {
		if c.Phone == "" {
			sb.WriteString(fmt.Sprintf("- **%s**\n", escapeMarkdown(c.Name)))
		} else {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", escapeMarkdown(c.Name), c.Phone))
		}
	}
	if len(alert.Contacts) > 0 {
		sb.WriteString("\n")
	}
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
