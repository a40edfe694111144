// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/LaansDole/colab-llm/internal/chat"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Handler executes a command. args excludes the command name.
type Handler func(ctx *Context, args []string) Result

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/model <name>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler is the function that executes the command
	Handler Handler

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values for enum types
	Values []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeFile                  // File path
	ArgTypeEnum                  // One of predefined values
)

// =============================================================================
// RESULT
// =============================================================================

// Action tells the shell what to do after printing a Result.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionCleared  // transcript emptied
	ActionReloaded // transcript replaced
)

// Result is the outcome of running a command.
type Result struct {
	Output string
	Action Action
	Err    error
}

func output(format string, args ...any) Result {
	return Result{Output: fmt.Sprintf(format, args...)}
}

func failure(err error) Result {
	return Result{Err: err}
}

// =============================================================================
// COMMAND CONTEXT
// =============================================================================

// Context provides the state command handlers operate on.
type Context struct {
	// Ctx bounds network calls such as /status
	Ctx context.Context

	// Session is the conversation being configured
	Session *chat.Session

	// Prober answers /status (a fresh default prober when nil)
	Prober *chat.Prober

	// ExportDir is where /save writes (default: conversations)
	ExportDir string

	// ExportFormat is used by /save without an argument (default: json)
	ExportFormat string

	// Clipboard receives /copy text (default: system clipboard)
	Clipboard func(string) error

	// Now stamps export file names (default: time.Now)
	Now func() time.Time

	// Logger records command activity
	Logger *zap.Logger

	// RawArgs is the unsplit argument text of the command being run
	RawArgs string

	registry *Registry
}

func (c *Context) ctx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Context) writeClipboard(text string) error {
	if c.Clipboard != nil {
		return c.Clipboard(text)
	}
	return clipboard.WriteAll(text)
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry resolves slash commands by name or alias. Register everything
// before the registry is shared; lookups do not lock.
type Registry struct {
	byName map[string]*Command // names and aliases, lower case
	sorted []*Command
}

// NewRegistry returns a registry holding the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Command)}
	r.registerBuiltins()
	return r
}

// Register adds cmd under its name and aliases. A later registration with
// the same name replaces the earlier one.
func (r *Registry) Register(cmd *Command) {
	if old := r.byName[strings.ToLower(cmd.Name)]; old != nil {
		r.sorted = slices.DeleteFunc(r.sorted, func(c *Command) bool { return c == old })
		maps.DeleteFunc(r.byName, func(_ string, c *Command) bool { return c == old })
	}
	for _, name := range append([]string{cmd.Name}, cmd.Aliases...) {
		r.byName[strings.ToLower(name)] = cmd
	}

	i, _ := slices.BinarySearchFunc(r.sorted, cmd.Name, func(c *Command, name string) int {
		return strings.Compare(c.Name, name)
	})
	r.sorted = slices.Insert(r.sorted, i, cmd)
}

// Get returns the command called name (or aliased to it), or nil.
func (r *Registry) Get(name string) *Command {
	return r.byName[strings.ToLower(name)]
}

// All returns every command sorted by name.
func (r *Registry) All() []*Command {
	return slices.Clone(r.sorted)
}

// ByCategory groups the visible commands for /help.
func (r *Registry) ByCategory() map[string][]*Command {
	groups := make(map[string][]*Command)
	for _, cmd := range r.sorted {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		groups[category] = append(groups[category], cmd)
	}
	return groups
}

// Run executes input. Every failure is reported through Result.Err.
func (r *Registry) Run(ctx *Context, input string) Result {
	inv, ok := r.Resolve(input)
	switch {
	case !ok:
		return failure(fmt.Errorf("not a command: %q", input))
	case inv.Command == nil:
		return failure(fmt.Errorf("unknown command %s (try /help)", inv.Name))
	case ctx.Session == nil:
		return failure(fmt.Errorf("%s: no active session", inv.Command.Name))
	}
	if err := checkArgs(inv.Command, inv.Args); err != nil {
		return failure(err)
	}

	ctx.RawArgs = inv.RawArgs
	ctx.registry = r

	res := inv.Command.Handler(ctx, inv.Args)
	ctx.logger().Debug("command executed",
		zap.String("command", inv.Command.Name),
		zap.Int("args", len(inv.Args)),
		zap.Bool("failed", res.Err != nil),
	)
	return res
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	// Navigation
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Args:        []ArgDef{{Name: "command", Type: ArgTypeString, Description: "Command to describe"}},
		Category:    "Navigation",
		Handler:     handleHelp,
	})
	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit colab-llm",
		Category:    "Navigation",
		Handler:     handleQuit,
	})

	// Conversation
	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/new", "/reset"},
		Description: "Clear the conversation",
		Category:    "Conversation",
		Handler:     handleClear,
	})
	r.Register(&Command{
		Name:        "/save",
		Aliases:     []string{"/export"},
		Description: "Save the conversation to the conversations directory",
		Usage:       "/save [json|md]",
		Args: []ArgDef{{
			Name: "format", Type: ArgTypeEnum, Values: []string{"json", "md", "markdown"},
			Description: "Export format",
		}},
		Category: "Conversation",
		Handler:  handleSave,
	})
	r.Register(&Command{
		Name:        "/load",
		Description: "Replace the conversation with a saved JSON file",
		Usage:       "/load <path>",
		Args:        []ArgDef{{Name: "path", Required: true, Type: ArgTypeFile, Description: "JSON export to load"}},
		Category:    "Conversation",
		Handler:     handleLoad,
	})
	r.Register(&Command{
		Name:        "/history",
		Description: "List the turns so far",
		Category:    "Conversation",
		Handler:     handleHistory,
	})
	r.Register(&Command{
		Name:        "/copy",
		Description: "Copy the last reply to the clipboard",
		Category:    "Conversation",
		Handler:     handleCopy,
	})

	// Settings
	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Show or change the model",
		Usage:       "/model [name]",
		Args:        []ArgDef{{Name: "name", Type: ArgTypeString, Description: "Model identifier"}},
		Category:    "Settings",
		Handler:     handleModel,
	})
	r.Register(&Command{
		Name:        "/endpoint",
		Aliases:     []string{"/url"},
		Description: "Show or change the server URL",
		Usage:       "/endpoint [url]",
		Args:        []ArgDef{{Name: "url", Type: ArgTypeString, Description: "http:// or https:// server root"}},
		Category:    "Settings",
		Handler:     handleEndpoint,
	})
	r.Register(&Command{
		Name:        "/system",
		Description: "Show or change the system prompt",
		Usage:       "/system [text|--reset]",
		Args:        []ArgDef{{Name: "text", Type: ArgTypeString, Description: "New system prompt"}},
		Category:    "Settings",
		Handler:     handleSystem,
	})
	r.Register(&Command{
		Name:        "/set",
		Description: "Change a sampling parameter",
		Usage:       "/set <temperature|top_p|max_tokens> <value>",
		Args: []ArgDef{
			{
				Name: "param", Required: true, Type: ArgTypeEnum,
				Values:      []string{"temperature", "top_p", "max_tokens", "temp", "top-p", "max-tokens"},
				Description: "Parameter name",
			},
			{Name: "value", Required: true, Type: ArgTypeString, Description: "New value"},
		},
		Category: "Settings",
		Handler:  handleSet,
	})
	r.Register(&Command{
		Name:        "/settings",
		Aliases:     []string{"/config"},
		Description: "Show all settings",
		Category:    "Settings",
		Handler:     handleSettings,
	})
	r.Register(&Command{
		Name:        "/status",
		Description: "Check whether the server is reachable",
		Category:    "Settings",
		Handler:     handleStatus,
	})
}
