// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view for colab-llm.

The view is a Bubble Tea program around one chat.Session. It shows the
conversation in a scrollable viewport, reads messages from a single-line
input and keeps the server status in the header.

# Key Components

## Model (model.go)

The Model struct holds the view state:
  - the displayed entries (turns plus notices that never reach the transcript)
  - the text input, viewport, spinner and help line
  - the in-flight exchange and its cancel function

## Update Loop (update.go)

  - Enter sends the input, or runs it as a slash command
  - Esc cancels the exchange in flight
  - Tab cycles completions for slash commands
  - a status tick polls /api/version through the throttled prober
  - ConfigReloadedMsg applies settings from an edited config file

## View Rendering (view.go)

Header with model and status, the transcript, completions and the input.
Replies are rendered as Markdown with glamour when enabled.

# Usage

	p := chat.NewProgram(chat.Options{Session: sess, Prober: prober})
	watcher, _ := config.NewWatcher(path, 0, func(cfg *config.Config, err error) {
	    p.Send(chat.ConfigReloadedMsg{Settings: cfg.ChatSettings(), Err: err})
	})
	defer watcher.Close()
	return p.Run()

While an exchange is in flight the input is blocked; Esc cancels it and the
transcript stays as it was.
*/
package chat
