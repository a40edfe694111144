// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the colab-llm TUI.

All colors use Lip Gloss AdaptiveColor, so one palette serves both light and
dark terminals. A Theme bundles the styles the chat view needs and can be
forced to light or dark when background detection guesses wrong.

# Color System (colors.go)

  - Purple: assistant turns and selections
  - Cyan: brand and user turns
  - Emerald: reachable server, successful replies
  - Amber: guidance, degraded server
  - Rose: failures

Status text always carries an ASCII indicator ([OK], [X], [!], [i]) in
addition to its color.

# Usage

	theme := styles.NewTheme("auto")
	theme.SetSize(width, height)
	header := theme.Header.Render("colab-llm")
	fmt.Println(styles.RenderStatus(ok, "API is reachable"))
*/
package styles
