// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// maxFileCompletions caps directory listings.
const maxFileCompletions = 20

// Completion is one tab-completion candidate.
type Completion struct {
	// Value replaces the word being completed
	Value string

	// Display is what the candidate list shows
	Display string

	Description string

	// Score ranks candidates, higher first
	Score int
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer completes command names and their arguments.
type Completer struct {
	registry *Registry

	// ModelsFn returns model names offered for /model. Nil disables model
	// completion.
	ModelsFn func() []string

	// FilesFn returns paths matching prefix. Nil lists the file system.
	FilesFn func(prefix string) []string
}

// NewCompleter returns a completer over registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns candidates for the word that ends at cursorPos.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos >= 0 && cursorPos < len(input) {
		input = input[:cursorPos]
	}
	input = strings.TrimLeftFunc(input, unicode.IsSpace)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	if word := partialCommand(input); word != "" {
		return c.commandNames(strings.ToLower(word))
	}

	name, _ := cutWord(input)
	cmd := c.registry.Get(name)
	if cmd == nil {
		return nil
	}
	index, partial := partialArg(input)
	if index >= len(cmd.Args) {
		return nil
	}
	return c.argValues(cmd, cmd.Args[index], partial)
}

// Line returns whole-line candidates, for line editors that replace the
// entire input on completion.
func (c *Completer) Line(input string) []string {
	comps := c.Complete(input, len(input))
	if len(comps) == 0 {
		return nil
	}
	lines := make([]string, len(comps))
	for i, comp := range comps {
		lines[i] = Apply(input, comp)
	}
	return lines
}

// Apply returns input with the word being completed replaced by comp.
func Apply(input string, comp Completion) string {
	if partialCommand(input) != "" {
		return comp.Value
	}
	_, partial := partialArg(input)
	return strings.TrimSuffix(input, partial) + comp.Value
}

func (c *Completer) commandNames(prefix string) []Completion {
	var out []Completion
	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, prefix) {
			out = append(out, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       score(cmd.Name, prefix),
			})
		}
		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(alias, prefix) {
				out = append(out, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       score(alias, prefix) - 10,
				})
			}
		}
	}
	return ranked(out)
}

func (c *Completer) argValues(cmd *Command, def ArgDef, partial string) []Completion {
	switch {
	case def.Type == ArgTypeEnum:
		return matching(def.Values, partial)
	case def.Type == ArgTypeFile && c.FilesFn != nil:
		return matching(c.FilesFn(partial), partial)
	case def.Type == ArgTypeFile:
		return listFiles(partial)
	case cmd.Name == "/model" && c.ModelsFn != nil:
		return matching(c.ModelsFn(), partial)
	}
	return nil
}

// matching keeps the values that start with partial, ignoring case.
func matching(values []string, partial string) []Completion {
	prefix := strings.ToLower(partial)
	var out []Completion
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), prefix) {
			out = append(out, Completion{Value: v, Display: v, Score: score(v, prefix)})
		}
	}
	return ranked(out)
}

// listFiles completes a path against the directory it points into. Dot
// files are only offered once a dot has been typed.
func listFiles(partial string) []Completion {
	sep := string(os.PathSeparator)
	dir, prefix := filepath.Split(partial)

	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	entries, err := os.ReadDir(readDir)
	if err != nil {
		return nil
	}

	lower := strings.ToLower(prefix)
	var out []Completion
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(strings.ToLower(name), lower) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		comp := Completion{Value: dir + name, Display: name, Score: score(name, lower)}
		if e.IsDir() {
			comp.Value += sep
			comp.Description = "directory"
			comp.Score += 5
		} else if info, err := e.Info(); err == nil {
			comp.Description = formatFileSize(info.Size())
		}
		out = append(out, comp)
	}

	out = ranked(out)
	if len(out) > maxFileCompletions {
		out = out[:maxFileCompletions]
	}
	return out
}

// score favors exact matches, then shorter candidates.
func score(value, prefix string) int {
	value = strings.ToLower(value)
	if value == prefix {
		return 200
	}
	return 170 - len(value) - len(value)/2
}

// ranked sorts by score, then by value.
func ranked(comps []Completion) []Completion {
	slices.SortStableFunc(comps, func(a, b Completion) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return strings.Compare(a.Value, b.Value)
	})
	return comps
}

func formatFileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

// =============================================================================
// CANDIDATE LIST
// =============================================================================

// CompletionState tracks a candidate list the user is cycling through.
type CompletionState struct {
	// OriginalInput is the input the candidates were computed for
	OriginalInput string

	Completions []Completion

	// Selected is the highlighted index, -1 when nothing is highlighted
	Selected int

	Visible bool
}

// NewCompletionState returns an empty, hidden list.
func NewCompletionState() *CompletionState {
	return &CompletionState{Selected: -1}
}

// Update shows comps for input with the first one highlighted.
func (cs *CompletionState) Update(input string, comps []Completion) {
	cs.OriginalInput = input
	cs.Completions = comps
	cs.Selected = 0
	cs.Visible = len(comps) > 0
}

// Next highlights the following candidate, wrapping around.
func (cs *CompletionState) Next() { cs.move(1) }

// Prev highlights the preceding candidate, wrapping around.
func (cs *CompletionState) Prev() { cs.move(-1) }

func (cs *CompletionState) move(step int) {
	n := len(cs.Completions)
	if n == 0 {
		return
	}
	cs.Selected = ((cs.Selected+step)%n + n) % n
}

// Accept returns the highlighted value, the first one when nothing is
// highlighted, or "" for an empty list.
func (cs *CompletionState) Accept() string {
	if len(cs.Completions) == 0 {
		return ""
	}
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return cs.Completions[0].Value
	}
	return cs.Completions[cs.Selected].Value
}

// Clear hides the list.
func (cs *CompletionState) Clear() {
	*cs = CompletionState{Selected: -1}
}
