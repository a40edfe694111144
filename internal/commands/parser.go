// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
	"unicode"
)

// =============================================================================
// INVOCATION
// =============================================================================

// Invocation is one slash command line split into its parts.
type Invocation struct {
	// Name is the command word as typed, e.g. "/Model"
	Name string

	// Command is the registered command, nil when Name is unknown
	Command *Command

	Args []string

	// RawArgs is the text after the command word with quotes and inner
	// spacing intact, for free-text commands such as /system
	RawArgs string
}

// IsCommand reports whether input is a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// Resolve splits input and looks the command word up, ignoring case. ok is
// false when input is not a slash command.
func (r *Registry) Resolve(input string) (inv Invocation, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return Invocation{}, false
	}

	name, rest := cutWord(input)
	inv.Name = name
	inv.RawArgs = strings.TrimSpace(rest)
	inv.Args, _ = scan(inv.RawArgs)
	inv.Command = r.Get(strings.ToLower(name))
	return inv, true
}

// Tokenize splits s on unquoted whitespace. Single or double quotes group
// words; a backslash inside quotes escapes a quote or another backslash.
func Tokenize(s string) []string {
	tokens, _ := scan(s)
	return tokens
}

// =============================================================================
// SCANNER
// =============================================================================

// scan tokenizes s and reports whether it ends in unquoted whitespace,
// which means the next argument has started but is still empty.
func scan(s string) (tokens []string, open bool) {
	var (
		cur     strings.Builder
		inToken bool // a quoted "" still counts as a token
		quote   rune
		escaped bool
	)

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
		inToken = false
	}

	for _, ch := range s {
		open = false
		switch {
		case escaped:
			if ch != quote && ch != '\\' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(ch)
			escaped = false
		case quote != 0 && ch == '\\':
			escaped = true
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
			inToken = true
		case quote == 0 && unicode.IsSpace(ch):
			flush()
			open = true
		default:
			cur.WriteRune(ch)
			inToken = true
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	flush()
	return tokens, open
}

// cutWord splits s at its first whitespace.
func cutWord(s string) (word, rest string) {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

// partialCommand returns the command word while it is still being typed,
// and "" once an argument has started or input is not a command.
func partialCommand(input string) string {
	if !strings.HasPrefix(input, "/") {
		return ""
	}
	word, rest := cutWord(input)
	if rest != "" {
		return ""
	}
	return word
}

// partialArg returns the index of the argument under the cursor at the end
// of input and the part of it typed so far.
func partialArg(input string) (index int, partial string) {
	tokens, open := scan(strings.TrimLeftFunc(input, unicode.IsSpace))
	switch {
	case len(tokens) == 0:
		return 0, ""
	case open:
		return len(tokens) - 1, ""
	case len(tokens) == 1:
		return 0, ""
	}
	return len(tokens) - 2, tokens[len(tokens)-1]
}

// =============================================================================
// ARGUMENT CHECKS
// =============================================================================

// ArgError reports an argument that does not fit the command's definition.
type ArgError struct {
	Command string
	Arg     string
	Reason  string
	Got     string
	Allowed []string
}

func (e *ArgError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s", e.Command, e.Arg, e.Reason)
	if e.Got != "" {
		fmt.Fprintf(&b, " %q", e.Got)
	}
	if len(e.Allowed) > 0 {
		fmt.Fprintf(&b, " (one of: %s)", strings.Join(e.Allowed, ", "))
	}
	return b.String()
}

// checkArgs verifies required arguments are present and enum arguments hold
// one of their values.
func checkArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}
	for i, def := range cmd.Args {
		if i >= len(args) {
			if def.Required {
				return &ArgError{Command: cmd.Name, Arg: def.Name, Reason: "is required"}
			}
			continue
		}
		if def.Type == ArgTypeEnum && len(def.Values) > 0 && !def.accepts(args[i]) {
			return &ArgError{
				Command: cmd.Name,
				Arg:     def.Name,
				Reason:  "does not accept",
				Got:     args[i],
				Allowed: def.Values,
			}
		}
	}
	return nil
}

func (d ArgDef) accepts(value string) bool {
	for _, v := range d.Values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
