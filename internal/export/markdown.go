// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		created := conv.CreatedAt
		if created.IsZero() {
			created = e.options.now()
		}
		sb.WriteString("---\n")
		if conv.Model != "" {
			sb.WriteString(fmt.Sprintf("model: %s\n", escapeYAML(conv.Model)))
		}
		sb.WriteString(fmt.Sprintf("date: %s\n", created.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("turns: %d\n", len(conv.Turns)))
		sb.WriteString("generator: colab-llm\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString("# Conversation\n\n")

	for i, turn := range conv.Turns {
		sb.WriteString(fmt.Sprintf("### %s\n\n", turn.Role.DisplayName()))
		sb.WriteString(strings.TrimSpace(turn.Content))
		sb.WriteString("\n\n")

		if i < len(conv.Turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString(fmt.Sprintf("*Exported from colab-llm on %s*\n", formatTimestamp(e.options.now())))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeYAML quotes values that would otherwise break the front matter.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
