// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"

	"github.com/LaansDole/colab-llm/internal/model"
)

const (
	userLabel      = "User: "
	assistantLabel = "Assistant: "
	separator      = "\n\n"
)

// Format builds the prompt for message given the prior history and the
// system instructions. It is pure: the same inputs always give the same
// text, and history is never modified.
//
// The result always ends with "Assistant: " (trailing space included) so
// the model continues as the assistant.
func Format(message string, history []model.Turn, system string) string {
	var b strings.Builder
	b.Grow(estimateSize(message, history, system))

	if system != "" {
		b.WriteString(system)
		b.WriteString(separator)
	}

	for _, turn := range history {
		if turn.Role == model.RoleUser {
			b.WriteString(userLabel)
		} else {
			b.WriteString(assistantLabel)
		}
		b.WriteString(turn.Content)
		b.WriteString(separator)
	}

	b.WriteString(userLabel)
	b.WriteString(message)
	b.WriteString(separator)
	b.WriteString(assistantLabel)

	return b.String()
}

func estimateSize(message string, history []model.Turn, system string) int {
	n := len(system) + len(separator) + len(userLabel) + len(message) + len(separator) + len(assistantLabel)
	for _, turn := range history {
		n += len(assistantLabel) + len(turn.Content) + len(separator)
	}
	return n
}
