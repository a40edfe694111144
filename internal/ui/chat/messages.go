// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	chatpkg "github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/commands"
)

// =============================================================================
// EXCHANGE MESSAGES
// =============================================================================

// ReplyMsg delivers the result of an exchange.
type ReplyMsg struct {
	Message string
	Reply   chatpkg.Reply
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusMsg delivers a probe result for the header.
type StatusMsg struct {
	Status chatpkg.Status

	// reschedule is set on the periodic poll, so one-off polls do not
	// start a second tick loop
	reschedule bool
}

// statusTickMsg asks for another poll.
type statusTickMsg struct {
	at time.Time
}

// =============================================================================
// COMMAND MESSAGES
// =============================================================================

// CommandResultMsg delivers the result of a slash command. Commands that
// touch the network (/status) run off the render loop.
type CommandResultMsg struct {
	Input  string
	Result commands.Result
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg is sent when the config file changed on disk. Err is set
// when the new file could not be loaded; the current settings are kept.
type ConfigReloadedMsg struct {
	Settings     chatpkg.Settings
	ExportDir    string
	ExportFormat string
	Err          error
}
