// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/LaansDole/colab-llm/internal/util"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered log of turns for one session.
//
// Insertion order is the conversation order fed back to the model. Turns
// are only appended, read through copies, or removed all at once by Clear.
// The store does not enforce user/assistant alternation.
//
// Transcript is safe for concurrent use.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{turns: make([]Turn, 0)}
}

// NewTranscriptFrom creates a transcript holding a copy of turns.
func NewTranscriptFrom(turns []Turn) *Transcript {
	return &Transcript{turns: slices.Clone(turns)}
}

// Append adds a single turn to the end of the transcript.
func (t *Transcript) Append(turn Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
}

// AppendExchange appends the user turn and then the assistant turn under a
// single lock, so readers never observe one without the other.
func (t *Transcript) AppendExchange(userContent, assistantContent string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, NewUserTurn(userContent), NewAssistantTurn(assistantContent))
}

// Snapshot returns a copy of the current turns. Mutating the returned slice
// does not affect the transcript, and later appends are not visible in it.
func (t *Transcript) Snapshot() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Replace discards the current turns and installs a copy of turns.
func (t *Transcript) Replace(turns []Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = slices.Clone(turns)
	if t.turns == nil {
		t.turns = make([]Turn, 0)
	}
}

// Clear removes every turn.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = make([]Turn, 0)
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// IsEmpty returns true if there are no turns.
func (t *Transcript) IsEmpty() bool {
	return t.Len() == 0
}

// LastAssistant returns the most recent assistant turn.
func (t *Transcript) LastAssistant() (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Role == RoleAssistant {
			return t.turns[i], true
		}
	}
	return Turn{}, false
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// EncodeTurns renders turns as a JSON array of {role, content} records with
// two-space indentation. An empty sequence encodes as "[]".
func EncodeTurns(turns []Turn) ([]byte, error) {
	if turns == nil {
		turns = []Turn{}
	}
	return json.MarshalIndent(turns, "", "  ")
}

// DecodeTurns parses the output of EncodeTurns. Every record must carry a
// known role.
func DecodeTurns(data []byte) ([]Turn, error) {
	var raw []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for i, r := range raw {
		role, err := ParseRole(r.Role)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		turns = append(turns, Turn{Role: role, Content: r.Content})
	}
	return turns, nil
}

// Export writes the full ordered transcript to path.
func (t *Transcript) Export(path string) error {
	data, err := EncodeTurns(t.Snapshot())
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// ReadTurns loads a transcript previously written by Export.
func ReadTurns(path string) ([]Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeTurns(data)
}
