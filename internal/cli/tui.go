// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HeadupandFace/cbt-companion-app/internal/ui/chat"
	"github.com/HeadupandFace/cbt-companion-app/internal/ui/styles"
	"github.com/HeadupandFace/cbt-companion-app/internal/widget"
)

// runTUI runs the full-screen chat until the user quits.
func (a *App) runTUI(cmd *cobra.Command, history bool) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	screen := chat.NewScreen()
	defer screen.Close()

	sess, err := a.startChat(ctx, screen)
	if err != nil {
		return err
	}
	defer sess.Close()

	name := sess.assistantName(ctx, a.Config.UI.AssistantName)
	if history {
		if err := sess.preloadHistory(ctx); err != nil {
			a.Logger.Warn("history not shown", zap.Error(err))
			sess.controller.ShowStatus("Could not load earlier messages.", widget.StatusWarning)
		}
	}

	m := chat.New(chat.Options{
		Controller:    sess.controller,
		Screen:        screen,
		Theme:         styles.NewTheme(a.Config.UI.Theme),
		Context:       ctx,
		Title:         "companion",
		AssistantName: name,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	// Abandon any request still waiting for the backend.
	cancel()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
