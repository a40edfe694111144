// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the chat view.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS
	// ==========================================================================

	Header       lipgloss.Style
	HeaderTitle  lipgloss.Style
	HeaderDetail lipgloss.Style
	StatusOK     lipgloss.Style
	StatusWarn   lipgloss.Style
	StatusError  lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Body           lipgloss.Style
	Notice         lipgloss.Style
	Guidance       lipgloss.Style
	Failure        lipgloss.Style
	Metrics        lipgloss.Style

	// ==========================================================================
	// INPUT AND COMPLETION
	// ==========================================================================

	InputPrompt        lipgloss.Style
	InputBorder        lipgloss.Style
	Completion         lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionDesc     lipgloss.Style
	Help               lipgloss.Style
}

// NewTheme creates a theme. mode is "dark", "light" or "auto"; auto asks
// the terminal for its background.
func NewTheme(mode string) *Theme {
	t := &Theme{ColorProfile: termenv.ColorProfile()}

	switch mode {
	case "dark":
		t.IsDark = true
	case "light":
		t.IsDark = false
	default:
		t.IsDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(t.IsDark)

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderDetail = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.StatusOK = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusWarn = lipgloss.NewStyle().Foreground(Amber)
	t.StatusError = lipgloss.NewStyle().Foreground(Rose)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Body = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.Notice = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(2)

	t.Guidance = lipgloss.NewStyle().
		Foreground(Amber).
		PaddingLeft(2)

	t.Failure = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true).
		PaddingLeft(2)

	t.Metrics = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		PaddingLeft(2)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.InputBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.Completion = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(1)

	t.CompletionSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		PaddingLeft(1)

	t.CompletionDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
