// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "fmt"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies who a turn is attributed to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ParseRole converts a serialized role back into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message of the conversation. Turns are values and are never
// mutated once they are part of a transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserTurn creates a turn attributed to the user.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// NewAssistantTurn creates a turn attributed to the assistant.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// IsUser returns true for user turns.
func (t Turn) IsUser() bool {
	return t.Role == RoleUser
}
