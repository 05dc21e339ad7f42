// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

const (
	chatPrompt  = "You> "
	modalPrompt = "[Enter to close] "

	// modalReminder is printed when something other than Enter is typed
	// while the support dialog is open.
	modalReminder = "Press Enter to close the support dialog."
)

// =============================================================================
// INPUT
// =============================================================================

// LineReader reads one line of input.
type LineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// linerReader provides input history and line editing.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader(*App) LineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &linerReader{
		line:        line,
		historyFile: filepath.Join(configDir, "input_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// ReadInput reads a line, adding non-empty input to the history.
func (r *linerReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// LINE MODE
// =============================================================================

func (a *App) lineCommand() *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "line",
		Short: "Chat in line mode (no full-screen interface)",
		Long: `Chat one line at a time. Works with pipes:

  echo "I had a rough day" | companion line

Type /help for the chat commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runLine(cmd, history)
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "show the stored conversation first")
	return cmd
}

// runLine runs the line-mode chat until end of input or /quit.
func (a *App) runLine(cmd *cobra.Command, history bool) error {
	ctx := cmd.Context()
	w := out(cmd)
	tty := IsTTY()

	renderer := NewLineRenderer(w, LineOptions{
		Theme:   styles.NewTheme(a.Config.UI.Theme),
		Width:   GetTerminalWidth(),
		Animate: IsStdoutTTY(),
	})

	sess, err := a.startChat(ctx, renderer)
	if err != nil {
		return err
	}
	defer sess.Close()

	name := sess.assistantName(ctx, a.Config.UI.AssistantName)
	renderer.SetAssistantName(name)

	fmt.Fprintln(w, welcomeStyle.Render("companion")+infoStyle.Render("  type /help for commands"))
	if history {
		renderer.SetEchoUser(true)
		if err := sess.preloadHistory(ctx); err != nil {
			a.Logger.Warn("history not shown", zap.Error(err))
			sess.controller.ShowStatus("Could not load earlier messages.", widget.StatusWarning)
		}
	}
	renderer.SetEchoUser(!tty)

	reader := a.newReader(a)
	defer reader.Close()

	if err := lineLoop(ctx, reader, sess.controller, w); err != nil {
		return err
	}

	// Piped input ends right after the last reply; let it finish speaking.
	if waiter, ok := sess.speaker.(interface{ Wait() }); ok && !tty {
		waiter.Wait()
	}
	return nil
}

// lineLoop reads and sends lines until input ends.
func lineLoop(ctx context.Context, reader LineReader, ctrl *widget.Controller, w io.Writer) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		prompt := chatPrompt
		if ctrl.ModalOpen() {
			prompt = modalPrompt
		}
		input, err := reader.ReadInput(promptStyle.Render(prompt))
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		// The support dialog closes only through its close control.
		if ctrl.ModalOpen() {
			if strings.TrimSpace(input) == "" {
				ctrl.CloseModal()
			} else {
				fmt.Fprintln(w, warningStyle.Render(modalReminder))
			}
			continue
		}

		if name, ok := slashCommand(input); ok {
			if quit := runSlashCommand(name, ctrl, w); quit {
				return nil
			}
			continue
		}

		ctrl.Send(ctx, input)
	}
}

// slashCommand returns the command name of "/name" input.
func slashCommand(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) < 2 {
		return "", false
	}
	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		return "", false
	}
	return strings.ToLower(fields[0]), true
}

// runSlashCommand executes a chat command and reports whether to quit.
func runSlashCommand(name string, ctrl *widget.Controller, w io.Writer) bool {
	switch name {
	case "quit", "q", "exit":
		return true
	case "help", "h", "?":
		fmt.Fprint(w, renderMarkdown(lineHelp, GetTerminalWidth()))
	case "mute":
		ctrl.SetMuted(true)
		ctrl.ShowStatus("Speech muted.", widget.StatusInfo)
	case "unmute":
		ctrl.SetMuted(false)
		ctrl.ShowStatus("Speech on.", widget.StatusInfo)
	default:
		ctrl.ShowStatus(fmt.Sprintf("Unknown command /%s. Type /help for commands.", name), widget.StatusWarning)
	}
	return false
}
