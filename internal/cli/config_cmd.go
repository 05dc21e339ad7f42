// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
)

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return toml.NewEncoder(out(cmd)).Encode(a.Config)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := a.configPath
				if path == "" {
					var err error
					if path, err = config.ConfigPathTOML(); err != nil {
						return err
					}
				}
				fmt.Fprintln(out(cmd), path)
				return nil
			},
		},
		&cobra.Command{
			Use:       "get KEY",
			Short:     "Print one setting, e.g. server.base_url",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.Keys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.Config.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), v)
				return nil
			},
		},
		a.configInitCommand(),
	)
	return cmd
}

func (a *App) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configPath
			if path == "" {
				var err error
				if path, err = config.ConfigPathTOML(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.EnsureConfigDir(); err != nil {
				return err
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), successStyle.Render("Wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
