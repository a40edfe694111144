// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/LaansDole/colab-llm/internal/model"
	"github.com/LaansDole/colab-llm/internal/util"
)

// DefaultDir is where exports go when no directory is configured.
const DefaultDir = "conversations"

// TimestampFormat is the layout used in export file names.
const TimestampFormat = "20060102_150405"

// ErrEmptyConversation is returned when there is nothing to export.
var ErrEmptyConversation = errors.New("conversation is empty")

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is the exported view of a session.
type Conversation struct {
	Turns     []model.Turn
	Model     string
	CreatedAt time.Time
}

// NewConversation wraps a transcript snapshot for export.
func NewConversation(turns []model.Turn, modelName string) *Conversation {
	return &Conversation{
		Turns:     turns,
		Model:     modelName,
		CreatedAt: time.Now(),
	}
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".json").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ForFormat returns the exporter registered under name ("json" or "md").
// An empty name selects JSON.
func ForFormat(name string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return NewJSONExporter(), nil
	case "md", "markdown":
		return NewMarkdownExporter(nil), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (use json or md)", name)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: "conversations" under the working directory
	OutputDir string

	// IncludeMetadata adds a header block (model, date, turn count) to
	// formats that support one.
	IncludeMetadata bool

	// Now overrides the clock used for file names and headers.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       DefaultDir,
		IncludeMetadata: true,
		Now:             time.Now,
	}
}

func (o *Options) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// FileName returns the export file name for the given time and extension.
func FileName(t time.Time, ext string) string {
	return "conversation_" + t.Format(TimestampFormat) + ext
}

// ToFile exports a conversation to a file using the specified exporter.
// Returns the output file path or an error.
func ToFile(conv *Conversation, exporter Exporter, opts *Options) (string, error) {
	if conv == nil || len(conv.Turns) == 0 {
		return "", ErrEmptyConversation
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = DefaultDir
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := filepath.Join(dir, FileName(opts.now(), exporter.FileExtension()))
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return outputPath, nil
}

// Load reads a JSON export back into turns.
func Load(path string) ([]model.Turn, error) {
	turns, err := model.ReadTurns(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return turns, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
