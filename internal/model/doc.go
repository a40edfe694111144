// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation transcript and its turns.
//
// A Transcript is the ordered, append-only log of everything said in the
// current session. Its order is the order fed back into the model, so it is
// only ever appended to, read through copies, or cleared as a whole.
//
// # Key Types
//
//   - Role: Turn role enumeration (user, assistant)
//   - Turn: Immutable message attributed to one role
//   - Transcript: Concurrency-safe ordered log of turns
//
// # Usage
//
//	t := model.NewTranscript()
//	t.AppendExchange("Hello!", "Hi, how can I help?")
//	history := t.Snapshot() // a copy; later appends are not visible
//
// Export and re-load a transcript:
//
//	if err := t.Export("conversations/conversation.json"); err != nil {
//	    return err
//	}
//	turns, err := model.ReadTurns("conversations/conversation.json")
package model
