// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HeadupandFace/cbt-companion-app/internal/api"
)

// notLoggedInHint is appended to ErrNotLoggedIn failures.
const notLoggedInHint = "run 'companion login' first"

// wrapAuth adds a login hint to ErrNotLoggedIn.
func wrapAuth(err error) error {
	if errors.Is(err, api.ErrNotLoggedIn) {
		return fmt.Errorf("%w; %s", err, notLoggedInHint)
	}
	return err
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

func (a *App) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login [ID_TOKEN]",
		Short: "Sign in with an identity-provider ID token",
		Long: `Exchange an ID token (as issued to the web app's sign-in page) for a
companion session. The session cookie is saved to ~/.companion/session.

Pass the token as an argument, or pipe it on stdin:

  companion login "$TOKEN"
  pbpaste | companion login`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokenArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			resp, err := client.Login(cmd.Context(), token)
			if err != nil {
				return err
			}

			w := out(cmd)
			msg := resp.Message
			if msg == "" {
				msg = "Logged in."
			}
			fmt.Fprintln(w, successStyle.Render(msg))
			if resp.NeedsOnboarding() {
				fmt.Fprintln(w, infoStyle.Render("Finish onboarding in the web app to choose your assistant."))
			}
			return nil
		},
	}
}

// tokenArg returns the token argument, or the first line of stdin.
func tokenArg(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("no ID token given")
	}
	return token, nil
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			if err := client.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), successStyle.Render("Logged out."))
			return nil
		},
	}
}

// =============================================================================
// WHOAMI
// =============================================================================

func (a *App) whoamiCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			user, err := client.UserData(cmd.Context())
			if err != nil {
				return wrapAuth(err)
			}

			w := out(cmd)
			if asJSON {
				return writeJSON(w, user)
			}
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("User:"), user.Name())
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("ID:"), user.UserID)
			if user.PreferredAssistant != "" {
				fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Assistant:"), user.PreferredAssistant)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// =============================================================================
// HISTORY
// =============================================================================

func (a *App) historyCommand() *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the conversation stored by the web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			entries, err := client.History(cmd.Context())
			if err != nil {
				return wrapAuth(err)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			w := out(cmd)
			if asJSON {
				return writeJSON(w, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, infoStyle.Render("No conversation yet."))
				return nil
			}

			r := NewLineRenderer(w, LineOptions{Width: GetTerminalWidth(), EchoUser: true})
			r.SetAssistantName(a.Config.UI.AssistantName)
			for _, e := range entries {
				r.AppendMessage(e.Message())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last N messages")
	return cmd
}

func (a *App) clearHistoryCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-history",
		Short: "Delete the conversation stored by the web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := out(cmd)
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), w, "Delete your stored conversation? This cannot be undone.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, infoStyle.Render("Cancelled."))
					return nil
				}
			}

			client, err := a.newClient()
			if err != nil {
				return err
			}
			if err := client.ClearHistory(cmd.Context()); err != nil {
				return wrapAuth(err)
			}
			fmt.Fprintln(w, successStyle.Render("Conversation cleared."))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

// confirm asks a yes/no question; anything but y/yes is no.
func confirm(in io.Reader, w io.Writer, question string) (bool, error) {
	fmt.Fprint(w, warningStyle.Render(question)+" [y/N] ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
