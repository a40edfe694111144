// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	chatpkg "github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/model"
	"github.com/LaansDole/colab-llm/internal/util"
)

const (
	welcomeText   = "Ask anything. Type /help for commands."
	noServerText  = "No server set. Use /endpoint https://xxxx.ngrok-free.app to connect."
	maxModelWidth = 40
)

// =============================================================================
// LAYOUT
// =============================================================================

// renderChat renders the complete chat interface.
func (m Model) renderChat() string {
	parts := []string{m.renderHeader(), m.viewport.View()}
	if m.completion.Visible {
		parts = append(parts, m.renderCompletions())
	}
	parts = append(parts, m.renderInput(), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderHeader shows the model on the left and server status on the right.
func (m Model) renderHeader() string {
	settings := m.session.Settings()
	left := m.theme.HeaderTitle.Render("colab-llm") +
		m.theme.HeaderDetail.Render("  "+util.Truncate(settings.Model, maxModelWidth))
	right := m.renderStatus()

	width := max(m.width, lipgloss.Width(left)+lipgloss.Width(right)+3)
	gap := max(width-2-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return m.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderStatus() string {
	if m.status == nil {
		return m.theme.HeaderDetail.Render("checking server...")
	}
	switch m.status.State {
	case chatpkg.StateReachable:
		return m.theme.StatusOK.Render(m.status.Message())
	case chatpkg.StateUnset, chatpkg.StateDegraded:
		return m.theme.StatusWarn.Render(m.status.Message())
	default:
		return m.theme.StatusError.Render(m.status.Message())
	}
}

// =============================================================================
// CONVERSATION
// =============================================================================

// renderEntries renders the conversation pane content.
func (m Model) renderEntries() string {
	width := max(m.viewport.Width, 20)

	if len(m.entries) == 0 {
		text := welcomeText
		if m.session.Settings().Endpoint == "" {
			text += "\n" + noServerText
		}
		return m.theme.Notice.Width(width).Render(text)
	}

	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderEntry(e, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderEntry(e entry, width int) string {
	switch e.kind {
	case entryUser:
		return m.theme.UserLabel.Render(model.RoleUser.DisplayName()) + "\n" +
			m.theme.Body.Width(width).Render(e.text)

	case entryAssistant:
		var b strings.Builder
		b.WriteString(m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName()))
		b.WriteString("\n")
		if rendered, ok := m.markdown.render(e.text, width); ok {
			b.WriteString(strings.TrimRight(rendered, "\n"))
		} else {
			b.WriteString(m.theme.Body.Width(width).Render(e.text))
		}
		if e.metrics != "" {
			b.WriteString("\n")
			b.WriteString(m.theme.Metrics.Render(e.metrics))
		}
		return b.String()

	case entryCommand:
		return m.theme.Help.Render("> " + e.text)
	case entryNotice:
		return m.theme.Notice.Width(width).Render(e.text)
	case entryGuidance:
		return m.theme.Guidance.Width(width).Render(e.text)
	default:
		return m.theme.Failure.Width(width).Render(e.text)
	}
}

// =============================================================================
// INPUT AREA
// =============================================================================

func (m Model) renderCompletions() string {
	comps := m.completion.Completions
	selected := m.completion.Selected

	start := 0
	if selected >= maxCompletionLines {
		start = selected - maxCompletionLines + 1
	}
	end := min(start+maxCompletionLines, len(comps))

	descWidth := max(m.width-28, 10)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := comps[i]
		style := m.theme.Completion
		if i == selected {
			style = m.theme.CompletionSelected
		}
		line := util.PadRight(c.Display, 24) + m.theme.CompletionDesc.Render(util.Truncate(c.Description, descWidth))
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderInput() string {
	var line string
	if m.state == StateWaiting {
		label := "Running command..."
		if m.pending != "" {
			label = "Waiting for reply... (Esc to cancel)"
		}
		line = m.spinner.View() + " " + m.theme.Help.Render(label)
	} else {
		line = m.input.View()
	}
	return m.theme.InputBorder.Width(max(m.width-2, 10)).Render(line)
}

func (m Model) renderFooter() string {
	return m.help.View(m.keyMap)
}
