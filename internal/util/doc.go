// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the colab-llm packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//
// String Utilities:
//   - Truncate: Display-width aware truncation with ellipsis
//   - OneLine: Collapse whitespace so text fits in a single row
//
// # Usage
//
//	// Write files atomically to prevent partial exports
//	err := util.AtomicWriteFile(path, data, 0644)
//
//	// Fit a long message into a 60-column preview
//	preview := util.Truncate(util.OneLine(content), 60)
package util
