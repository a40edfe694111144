// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for
// colab-llm.
//
// Options and subcommands are declared as go-flags structs. Every command
// loads the TOML config, applies COLAB_LLM_* environment variables and then
// explicitly set flags, opens the rotating log file and builds a chat
// session from the result.
//
// # Commands
//
//	colab-llm [chat]          full-screen chat (line REPL with --plain or no TTY)
//	colab-llm ask <message>   one exchange, reply on stdout, metrics on stderr
//	colab-llm status          probe the configured server
//	colab-llm config show     print the effective configuration
//	colab-llm config init     write a default config file
//	colab-llm config path     print the config file location
//
// # Usage
//
//	os.Exit(cli.Execute(os.Args[1:]))
//
// ask and status accept --json for machine-readable output.
package cli
