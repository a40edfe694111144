// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	chatpkg "github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/commands"
	"github.com/LaansDole/colab-llm/internal/ollama"
)

// MsgCanceled is shown when the user cancels an exchange.
const MsgCanceled = "Request canceled."

// Layout heights of the fixed parts of the screen.
const (
	headerHeight       = 1
	inputHeight        = 3 // rounded border around one line
	maxCompletionLines = 6
)

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)
	m.help.Width = m.width

	m.layout()
	m.updateViewport()
	return m, nil
}

// layout sizes the viewport to whatever the fixed parts leave over.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}

	reserved := headerHeight + inputHeight + lipgloss.Height(m.renderFooter())
	if m.completion.Visible {
		reserved += min(len(m.completion.Completions), maxCompletionLines)
	}

	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = max(m.height-reserved, 1)

	// border (2) + padding (2) + prompt
	m.input.Width = max(m.width-4-lipgloss.Width(m.input.Prompt)-1, 10)
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.cancelMgr.cancel()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.state == StateWaiting {
			if m.cancelMgr.cancel() {
				m.logger.Debug("request canceled by user")
			}
			return m, nil
		}
		m.completion.Clear()
		m.layout()
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		if m.completion.Visible {
			m.completion.Prev()
			return m, nil
		}
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		if m.completion.Visible {
			m.completion.Next()
			return m, nil
		}
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	// Input is blocked while an exchange is in flight
	if m.state != StateReady {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keyMap.Complete):
		return m.handleTab(msg.Type == tea.KeyShiftTab)

	case key.Matches(msg, m.keyMap.Submit):
		if m.completion.Visible {
			m.acceptCompletion()
			return m, nil
		}
		return m.submit()

	case key.Matches(msg, m.keyMap.Clear):
		return m.startCommand("/clear")
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.completion.Visible && m.input.Value() != before {
		m.refreshCompletions()
	}
	return m, cmd
}

// =============================================================================
// COMPLETION
// =============================================================================

func (m Model) handleTab(reverse bool) (tea.Model, tea.Cmd) {
	if m.completion.Visible {
		if reverse {
			m.completion.Prev()
		} else {
			m.completion.Next()
		}
		return m, nil
	}

	value := m.input.Value()
	comps := m.completer.Complete(value, m.input.Position())
	switch len(comps) {
	case 0:
		return m, nil
	case 1:
		m.input.SetValue(commands.Apply(value, comps[0]))
		m.input.CursorEnd()
		return m, nil
	}

	m.completion.Update(value, comps)
	m.layout()
	return m, nil
}

func (m *Model) acceptCompletion() {
	selected := m.completion.Selected
	if selected < 0 || selected >= len(m.completion.Completions) {
		selected = 0
	}
	comp := m.completion.Completions[selected]
	m.input.SetValue(commands.Apply(m.completion.OriginalInput, comp))
	m.input.CursorEnd()
	m.completion.Clear()
	m.layout()
}

// refreshCompletions recomputes the visible list after the input changed.
func (m *Model) refreshCompletions() {
	value := m.input.Value()
	comps := m.completer.Complete(value, m.input.Position())
	if len(comps) == 0 {
		m.completion.Clear()
	} else {
		m.completion.Update(value, comps)
	}
	m.layout()
}

// =============================================================================
// SUBMIT
// =============================================================================

// submit sends the input, or runs it when it is a slash command. Blank
// input is ignored.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.input.Reset()

	if commands.IsCommand(text) {
		return m.startCommand(strings.TrimSpace(text))
	}

	m.entries = append(m.entries, entry{kind: entryUser, text: text})
	m.pending = text
	m.state = StateWaiting
	m.input.Blur()
	m.updateViewport()

	m.logger.Debug("message submitted", zap.Int("length", len(text)))
	return m, tea.Batch(m.spinner.Tick, m.exchange(text))
}

func (m Model) startCommand(input string) (tea.Model, tea.Cmd) {
	m.entries = append(m.entries, entry{kind: entryCommand, text: input})
	m.state = StateWaiting
	m.input.Blur()
	m.updateViewport()
	return m, tea.Batch(m.spinner.Tick, m.runCommand(input))
}

// finish returns the view to the ready state.
func (m *Model) finish() {
	m.state = StateReady
	m.pending = ""
	m.cancelMgr.cancel()
	m.input.Focus()
}

// =============================================================================
// RESULTS
// =============================================================================

func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	m.finish()

	reply := msg.Reply
	switch {
	case reply.OK():
		m.entries = append(m.entries, entry{kind: entryAssistant, text: reply.Text, metrics: reply.Metrics})
	case ollama.IsCanceled(reply.Err):
		m.entries = append(m.entries, entry{kind: entryNotice, text: MsgCanceled})
	default:
		m.entries = append(m.entries, entry{kind: outcomeKind(reply.Outcome), text: reply.Text})
	}

	m.updateViewport()
	return m, textinput.Blink
}

// outcomeKind picks how a failed exchange is shown.
func outcomeKind(o chatpkg.Outcome) entryKind {
	switch o {
	case chatpkg.OutcomeValidation, chatpkg.OutcomeServerError, chatpkg.OutcomeTimeout:
		return entryGuidance
	default:
		return entryFailure
	}
}

func (m Model) handleCommandResult(msg CommandResultMsg) (tea.Model, tea.Cmd) {
	m.finish()
	res := msg.Result

	switch res.Action {
	case commands.ActionQuit:
		m.quitting = true
		return m, tea.Quit
	case commands.ActionCleared, commands.ActionReloaded:
		m.entries = append(entriesFrom(m.session.History()), entry{kind: entryCommand, text: msg.Input})
	}

	switch {
	case res.Err != nil:
		m.entries = append(m.entries, entry{kind: entryFailure, text: res.Err.Error()})
	case res.Output != "":
		m.entries = append(m.entries, entry{kind: entryNotice, text: res.Output})
	}

	// /status probes directly; show what it found
	if st, ok := m.prober.Last(); ok {
		m.status = &st
	}

	m.updateViewport()

	// The endpoint may have changed; Poll only probes when it did
	return m, tea.Batch(textinput.Blink, m.pollStatus(false))
}

// handleConfigReloaded applies settings from an edited config file. The
// transcript is left alone.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.logger.Warn("config reload failed", zap.Error(msg.Err))
		m.entries = append(m.entries, entry{kind: entryFailure, text: fmt.Sprintf("Config reload failed: %v", msg.Err)})
		m.updateViewport()
		return m, nil
	}

	err := m.session.Update(func(s *chatpkg.Settings) { *s = msg.Settings })
	if err != nil {
		m.logger.Warn("reloaded config rejected", zap.Error(err))
		m.entries = append(m.entries, entry{kind: entryFailure, text: fmt.Sprintf("Config reload rejected: %v", err)})
		m.updateViewport()
		return m, nil
	}

	if msg.ExportDir != "" {
		m.exportDir = msg.ExportDir
	}
	if msg.ExportFormat != "" {
		m.exportFormat = msg.ExportFormat
	}

	m.logger.Info("config reloaded", zap.String("model", msg.Settings.Model))
	m.entries = append(m.entries, entry{kind: entryNotice, text: "Config reloaded."})
	m.updateViewport()
	return m, m.pollStatus(false)
}

// =============================================================================
// VIEWPORT
// =============================================================================

// updateViewport re-renders the conversation and scrolls to the end.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}
