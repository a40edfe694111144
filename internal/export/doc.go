// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export saves a transcript to disk on user request.
//
// Files are named conversation_{YYYYMMDD_HHMMSS}{ext} and written into a
// conversations directory that is created on demand.
//
// # Supported Formats
//
//   - JSON: array of {role, content} records, two-space indent. This is the
//     format /load reads back.
//   - Markdown: human-readable transcript with a small front matter block.
//
// # Usage
//
//	conv := export.NewConversation(sess.History(), sess.Settings().Model)
//	path, err := export.ToFile(conv, export.NewJSONExporter(), nil)
//	if errors.Is(err, export.ErrEmptyConversation) {
//	    fmt.Println("No conversation to save.")
//	}
package export
