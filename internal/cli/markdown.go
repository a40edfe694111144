// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders replies for the terminal. A nil renderer passes
// text through unchanged.
type markdownRenderer struct {
	r *glamour.TermRenderer
}

// newMarkdownRenderer builds a glamour renderer for theme ("dark", "light"
// or "auto"). It returns a pass-through renderer when rendering is off or
// glamour cannot be initialized.
func newMarkdownRenderer(enabled bool, theme string, width int) *markdownRenderer {
	if !enabled {
		return &markdownRenderer{}
	}
	if width > MaxRenderWidth {
		width = MaxRenderWidth
	}

	style := glamour.WithAutoStyle()
	if theme == "dark" || theme == "light" {
		style = glamour.WithStandardStyle(theme)
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width-4))
	if err != nil {
		return &markdownRenderer{}
	}
	return &markdownRenderer{r: r}
}

// Render returns content formatted for display. It falls back to the raw
// text if rendering fails.
func (m *markdownRenderer) Render(content string) string {
	if m == nil || m.r == nil {
		return ensureNewline(content)
	}
	rendered, err := m.r.Render(content)
	if err != nil {
		return ensureNewline(content)
	}
	return rendered
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
