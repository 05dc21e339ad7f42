// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HeadupandFace/cbt-companion-app/internal/util"
)

func (a *App) diaryCommand() *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "diary",
		Short: "List your diary entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			entries, err := client.Diary(cmd.Context())
			if err != nil {
				return wrapAuth(err)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			w := out(cmd)
			if asJSON {
				return writeJSON(w, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, infoStyle.Render("No diary entries yet."))
				return nil
			}
			width := GetTerminalWidth() - 2
			for i, e := range entries {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintln(w, headingStyle.Render(e.Date))
				for _, line := range util.Wrap(e.Text, width) {
					fmt.Fprintln(w, "  "+line)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the newest N entries")
	cmd.AddCommand(a.diaryAddCommand())
	return cmd
}

func (a *App) diaryAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add [TEXT...]",
		Short: "Write today's diary entry",
		Long: `Write today's diary entry. An existing entry for today is replaced.
Without arguments the text is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read entry: %w", err)
				}
				text = string(data)
			}

			client, err := a.newClient()
			if err != nil {
				return err
			}
			if err := client.WriteDiary(cmd.Context(), text); err != nil {
				return wrapAuth(err)
			}
			fmt.Fprintln(out(cmd), successStyle.Render("Diary entry saved."))
			return nil
		},
	}
}
