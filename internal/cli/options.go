// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/jessevdk/go-flags"

	"github.com/LaansDole/colab-llm/internal/config"
)

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// GenerationOptions override the [generation] and [server] config sections.
type GenerationOptions struct {
	Endpoint    string  `short:"e" long:"endpoint" value-name:"URL" description:"Server URL starting with http:// or https://"`
	Model       string  `short:"m" long:"model" value-name:"NAME" description:"Model identifier"`
	System      string  `short:"s" long:"system" value-name:"TEXT" description:"System prompt (empty disables it)"`
	Temperature float64 `long:"temperature" value-name:"T" description:"Sampling temperature, 0.1 to 2.0"`
	TopP        float64 `long:"top-p" value-name:"P" description:"Nucleus sampling, 0.1 to 1.0"`
	MaxTokens   int     `long:"max-tokens" value-name:"N" description:"Maximum tokens to generate, 100 to 4096"`
}

// Options are the global command-line options.
type Options struct {
	Config      string            `short:"c" long:"config" value-name:"PATH" description:"Config file (default: ~/.colab-llm/config.toml)"`
	Generation  GenerationOptions `group:"Generation Options"`
	Plain       bool              `long:"plain" description:"Use the line REPL instead of the full-screen UI"`
	WatchConfig bool              `long:"watch-config" description:"Reload settings when the config file changes"`
	LogLevel    string            `long:"log-level" value-name:"LEVEL" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	JSON        bool              `long:"json" description:"Machine-readable output for ask and status"`
	Version     bool              `short:"v" long:"version" description:"Show the program version"`
}

// =============================================================================
// OVERRIDES
// =============================================================================

// applyFlags copies explicitly set flags onto cfg. Unset flags keep the file
// and environment values, so a zero flag value is never mistaken for intent.
func applyFlags(p *flags.Parser, opts *Options, cfg *config.Config) {
	isSet := func(name string) bool {
		opt := p.FindOptionByLongName(name)
		return opt != nil && opt.IsSet()
	}

	g := opts.Generation
	if isSet("endpoint") {
		cfg.Server.Endpoint = g.Endpoint
	}
	if isSet("model") {
		cfg.Generation.Model = g.Model
	}
	if isSet("system") {
		cfg.Generation.SystemPrompt = g.System
	}
	if isSet("temperature") {
		cfg.Generation.Temperature = g.Temperature
	}
	if isSet("top-p") {
		cfg.Generation.TopP = g.TopP
	}
	if isSet("max-tokens") {
		cfg.Generation.MaxTokens = g.MaxTokens
	}
	if isSet("plain") {
		cfg.UI.Plain = opts.Plain
	}
	if isSet("log-level") {
		cfg.Logging.Level = opts.LogLevel
	}
}
