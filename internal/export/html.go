// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/model"
	"github.com/HeadupandFace/cbt-companion-app/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports sessions to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
	now     func() time.Time
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, now: time.Now}
}

// Export converts a session to HTML format.
func (e *HTMLExporter) Export(sess *storage.StoredSession) ([]byte, error) {
	if err := validate(sess); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "dark" {
		theme = "light"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(sess.Summary())))
	sb.WriteString("    <meta name=\"generator\" content=\"companion\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", sess.StartedAt.Format(time.RFC3339)))
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(sess))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, ent := range timeline(sess) {
		if ent.message != nil {
			sb.WriteString(e.renderMessage(ent.message))
		} else {
			sb.WriteString(e.renderAlert(ent.alert))
		}
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>companion</strong> on %s</p>\n",
		e.now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(sess *storage.StoredSession) string {
	var sb strings.Builder
	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(sess.Summary())))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Started:</strong> %s</span>\n", formatTimestamp(sess.StartedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(sess.Messages)))
	if len(sess.Alerts) > 0 {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Crisis alerts:</strong> %d</span>\n", len(sess.Alerts)))
	}
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg *model.Message) string {
	class := string(msg.Role) + "-message"
	if msg.IsError() {
		class += " error-message"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s\">\n", html.EscapeString(class)))
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg, e.options))))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")
	sb.WriteString(fmt.Sprintf("                <div class=\"message-content\">%s</div>\n", formatContent(msg.Text)))
	sb.WriteString("            </div>\n")
	return sb.String()
}

func (e *HTMLExporter) renderAlert(alert *storage.StoredAlert) string {
	var sb strings.Builder
	sb.WriteString("            <div class=\"crisis-alert\">\n")
	sb.WriteString("                <div class=\"message-header\"><span class=\"role-label\">Crisis Support</span></div>\n")
	sb.WriteString(fmt.Sprintf("                <p>%s</p>\n", formatContent(alert.Message)))
	if len(alert.Contacts) > 0 {
		sb.WriteString("                <ul>\n")
		for _, c := range alert.Contacts {
			if c.Phone == "" {
				sb.WriteString(fmt.Sprintf("                    <li><strong>%s</strong></li>\n", html.EscapeString(c.Name)))
				continue
			}
			sb.WriteString(fmt.Sprintf("                    <li><strong>%s:</strong> <a href=\"tel:%s\">%s</a></li>\n",
				html.EscapeString(c.Name), html.EscapeString(telHref(c.Phone)), html.EscapeString(c.Phone)))
		}
		sb.WriteString("                </ul>\n")
	}
	sb.WriteString("            </div>\n")
	return sb.String()
}

// formatContent escapes plain text and keeps its line breaks.
func formatContent(text string) string {
	return strings.ReplaceAll(html.EscapeString(strings.TrimSpace(text)), "\n", "<br>\n")
}

// telHref keeps the dialable part of a phone label ("999 or 112" -> "999").
func telHref(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9', r == '+':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			continue
		default:
			return b.String()
		}
	}
	return b.String()
}

const css = `    <style>
        body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; line-height: 1.5; }
        .light-theme { background: #f9fafb; color: #1f2937; }
        .dark-theme { background: #111827; color: #e5e7eb; }
        .container { max-width: 760px; margin: 0 auto; padding: 24px; }
        .header h1 { font-size: 1.5rem; margin-bottom: 4px; }
        .metadata { display: flex; gap: 16px; font-size: 0.85rem; opacity: 0.8; }
        .message { border-radius: 12px; padding: 12px 16px; margin: 12px 0; }
        .user-message { background: #dbeafe; margin-left: 20%; }
        .assistant-message { background: #ede9fe; margin-right: 20%; }
        .dark-theme .user-message { background: #1e3a8a; }
        .dark-theme .assistant-message { background: #4c1d95; }
        .error-message { border-left: 4px solid #dc2626; }
        .message-header { display: flex; justify-content: space-between; font-size: 0.8rem; opacity: 0.8; }
        .crisis-alert { border: 2px solid #dc2626; border-radius: 12px; padding: 12px 16px; margin: 12px 0; }
        .crisis-alert a { color: #dc2626; font-weight: bold; }
        .footer { font-size: 0.8rem; opacity: 0.6; margin-top: 32px; text-align: center; }
    </style>
`
