// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/LaansDole/colab-llm/internal/config"
)

// ConfigCommand groups the config subcommands.
type ConfigCommand struct {
	Show ConfigShowCommand `command:"show" description:"Print the effective configuration as TOML"`
	Init ConfigInitCommand `command:"init" description:"Write a default configuration file"`
	Path ConfigPathCommand `command:"path" description:"Print the configuration file location"`
}

// ConfigShowCommand prints the configuration after env and flag overrides.
type ConfigShowCommand struct {
	app *App
}

// Execute runs `config show`.
func (c *ConfigShowCommand) Execute(_ []string) error {
	a := c.app
	if err := a.setup(); err != nil {
		return err
	}
	fmt.Fprint(a.stdout, a.cfg.String())
	return nil
}

// ConfigInitCommand writes the built-in defaults.
type ConfigInitCommand struct {
	Force bool `short:"f" long:"force" description:"Overwrite an existing file"`

	app *App
}

// Execute runs `config init`. It works even when the existing file is
// invalid, so a broken config can be reset with --force.
func (c *ConfigInitCommand) Execute(_ []string) error {
	a := c.app
	path, err := a.configPath()
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	if _, err := os.Stat(path); err == nil && !c.Force {
		return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	if err := config.Save(config.Default(), path); err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	fmt.Fprintf(a.stdout, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
	return nil
}

// ConfigPathCommand prints where the config file is read from.
type ConfigPathCommand struct {
	app *App
}

// Execute runs `config path`.
func (c *ConfigPathCommand) Execute(_ []string) error {
	path, err := c.app.configPath()
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	fmt.Fprintln(c.app.stdout, path)
	return nil
}
