// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/logging"
)

// BuildInfo is the version information stamped at build time.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// App carries what every command needs once flags are parsed.
type App struct {
	Info   BuildInfo
	Config *config.Config
	Logger *zap.Logger

	configPath string
	baseURL    string
	verbose    bool

	// newReader opens the line-mode input; tests replace it.
	newReader func(*App) LineReader
	// interactive reports whether the full-screen chat can run.
	interactive func() bool
}

// Execute runs the command line and returns the process exit code.
func Execute(info BuildInfo) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(info)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	app := &App{
		Info:        info,
		newReader:   newLinerReader,
		interactive: Interactive,
	}
	return app.rootCommand()
}

func (a *App) rootCommand() *cobra.Command {
	var history bool

	root := &cobra.Command{
		Use:   "companion",
		Short: "Terminal client for the CBT companion",
		Long: `companion talks to the CBT companion web app from the terminal.

Run without arguments to start the chat. Replies are read aloud when a
speech engine is installed; press Ctrl+S (or type /mute) to silence them.
If you are in crisis, the support contacts the companion suggests are shown
in a dialog that stays open until you close it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.Logger != nil {
				_ = a.Logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.Config.UI.Mode == "line" || !a.interactive() {
				return a.runLine(cmd, history)
			}
			return a.runTUI(cmd, history)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.companion/config.toml)")
	flags.StringVar(&a.baseURL, "url", "", "companion web app URL (overrides server.base_url)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.Flags().BoolVar(&history, "history", false, "show the stored conversation first")

	root.AddCommand(
		a.lineCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.historyCommand(),
		a.clearHistoryCommand(),
		a.diaryCommand(),
		a.sayCommand(),
		a.sessionsCommand(),
		a.exportCommand(),
		a.configCommand(),
		a.versionCommand(),
	)
	return root
}

// setup loads the configuration and the logger.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	lipgloss.SetColorProfile(GetColorProfile())

	cfg, err := a.loadConfig()
	if err != nil {
		var verrs config.ValidateErrors
		if cfg == nil || errors.As(err, &verrs) {
			return err
		}
		// Defaults are still usable.
		fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("Warning: "+err.Error()))
	}
	if a.baseURL != "" {
		cfg.Server.BaseURL = a.baseURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.Config = cfg

	logger, err := logging.New(logging.Options{
		Path:    cfg.LogPath(),
		Level:   cfg.Log.Level,
		Verbose: a.verbose,
	})
	if err != nil {
		return err
	}
	a.Logger = logger.With(zap.String("command", cmd.Name()))
	return nil
}

func (a *App) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		return config.LoadFromPath(a.configPath)
	}
	return config.Load()
}

// out is where command results are printed.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
