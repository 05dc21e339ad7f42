// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HeadupandFace/cbt-companion-app/internal/export"
	"github.com/HeadupandFace/cbt-companion-app/internal/storage"
)

// errNoTranscripts is returned when the transcript database does not exist.
var errNoTranscripts = errors.New("no transcripts recorded; set transcript.enabled = true to record chats")

// openTranscripts opens the existing transcript database.
func (a *App) openTranscripts() (*storage.Transcript, error) {
	path := a.Config.TranscriptPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, errNoTranscripts
	}
	return storage.Open(path)
}

// =============================================================================
// SESSIONS
// =============================================================================

func (a *App) sessionsCommand() *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List locally recorded chat transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.openTranscripts()
			if err != nil {
				return err
			}
			defer t.Close()

			metas, err := t.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := out(cmd)
			if asJSON {
				return writeJSON(w, metas)
			}
			if len(metas) == 0 {
				fmt.Fprintln(w, infoStyle.Render("No transcripts yet."))
				return nil
			}
			for _, m := range metas {
				alerts := ""
				if m.AlertCount > 0 {
					alerts = warningStyle.Render(fmt.Sprintf("  %d alert(s)", m.AlertCount))
				}
				fmt.Fprintf(w, "%s  %s  %3d msgs%s  %s\n",
					headingStyle.Render(shortID(m.ID)),
					m.StartedAt.Format("2006-01-02 15:04"),
					m.MessageCount,
					alerts,
					mutedStyle.Render(m.Preview))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of transcripts to list (0 = all)")
	cmd.AddCommand(a.sessionsDeleteCommand())
	return cmd
}

func (a *App) sessionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transcript (ID may be a prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.openTranscripts()
			if err != nil {
				return err
			}
			defer t.Close()

			if err := t.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), successStyle.Render("Transcript deleted."))
			return nil
		},
	}
}

// shortID returns the first block of a UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// =============================================================================
// EXPORT
// =============================================================================

func (a *App) exportCommand() *cobra.Command {
	opts := export.DefaultOptions()
	var (
		format       string
		noTimestamps bool
	)
	cmd := &cobra.Command{
		Use:   "export [ID]",
		Short: "Export a transcript to Markdown, JSON or HTML",
		Long: `Export a recorded transcript. ID may be a prefix; without it the most
recent transcript is exported.

  companion export
  companion export 3f2a --format html --open`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := "latest"
			if len(args) == 1 {
				id = args[0]
			}

			opts.IncludeTimestamps = !noTimestamps
			if opts.AssistantName == "" {
				opts.AssistantName = a.Config.UI.AssistantName
			}
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return err
			}

			t, err := a.openTranscripts()
			if err != nil {
				return err
			}
			defer t.Close()

			sess, err := t.Load(cmd.Context(), id)
			if err != nil {
				return err
			}

			path, err := export.ExportToFile(sess, exporter, opts)
			if path != "" {
				fmt.Fprintln(out(cmd), successStyle.Render("Exported to "+path))
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown",
		"output format: "+strings.Join(export.Formats(), ", "))
	cmd.Flags().StringVarP(&opts.OutputDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&opts.OpenAfterExport, "open", false, "open the file after exporting")
	cmd.Flags().StringVar(&opts.Theme, "theme", "light", "HTML theme (light or dark)")
	cmd.Flags().StringVar(&opts.AssistantName, "assistant-name", "", "label for assistant messages")
	cmd.Flags().BoolVar(&noTimestamps, "no-timestamps", false, "omit message timestamps")
	return cmd
}
