// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/glamour"
)

// markdownRenderer caches a glamour renderer for the current width. The
// style is fixed up front: asking the terminal for its background while
// the program owns it would garble input.
type markdownRenderer struct {
	enabled bool
	style   string
	width   int
	r       *glamour.TermRenderer
}

func newMarkdownRenderer(enabled, dark bool) *markdownRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	return &markdownRenderer{enabled: enabled, style: style}
}

// render returns text as styled Markdown wrapped to width. ok is false when
// rendering is disabled or failed; callers show the raw text instead.
func (mr *markdownRenderer) render(text string, width int) (string, bool) {
	if mr == nil || !mr.enabled {
		return "", false
	}

	if mr.r == nil || mr.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(mr.style),
			glamour.WithWordWrap(max(width-4, 20)),
		)
		if err != nil {
			return "", false
		}
		mr.r = r
		mr.width = width
	}

	out, err := mr.r.Render(text)
	if err != nil {
		return "", false
	}
	return out, true
}
