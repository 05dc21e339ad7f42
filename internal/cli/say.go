// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HeadupandFace/cbt-companion-app/internal/speech"
)

func (a *App) sayCommand() *cobra.Command {
	var (
		engineName string
		list       bool
	)
	cmd := &cobra.Command{
		Use:   "say [TEXT...]",
		Short: "Speak text with the configured speech engine",
		Long: `Speak text aloud the way chat replies are spoken. Useful to check the
speech setup:

  companion say "Hello there"
  companion say --engine espeak-ng "Testing"
  companion say --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := out(cmd)
			if list {
				engines := speech.Available()
				if len(engines) == 0 {
					fmt.Fprintln(w, infoStyle.Render("No speech engine installed."))
					return nil
				}
				for _, name := range engines {
					fmt.Fprintln(w, name)
				}
				return nil
			}

			text := speech.Normalize(strings.Join(args, " "))
			if text == "" {
				return errors.New("nothing to say")
			}

			name := a.Config.Speech.Engine
			if engineName != "" {
				name = engineName
			}
			engine, err := speech.New(speech.Options{
				Engine: name,
				Voice:  a.Config.Speech.Voice,
				Rate:   a.Config.Speech.Rate,
				Logger: a.Logger.Named("speech"),
			})
			if err != nil {
				return err
			}
			if _, ok := engine.(speech.Null); ok {
				return speech.ErrNoEngine
			}

			if err := engine.Speak(text); err != nil {
				return err
			}
			if waiter, ok := engine.(interface{ Wait() }); ok {
				waiter.Wait()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&engineName, "engine", "", "speech engine (overrides speech.engine)")
	cmd.Flags().BoolVar(&list, "list", false, "list installed engines")
	return cmd
}
