// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// Truncate shortens s so that its display width is at most maxWidth columns.
// Wide characters (CJK, emoji) count as two columns. If the string has to be
// cut, Ellipsis is appended and included in the width budget.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(Ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// OneLine collapses every run of whitespace, newlines included, into a
// single space.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StringWidth returns the display width of a string.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads s with spaces up to width display columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
