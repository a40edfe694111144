// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/export"
	"github.com/LaansDole/colab-llm/internal/util"
)

// historyPreviewWidth bounds each line of /history.
const historyPreviewWidth = 72

// categoryOrder fixes the order of sections in /help.
var categoryOrder = []string{"Conversation", "Settings", "Navigation"}

// =============================================================================
// NAVIGATION
// =============================================================================

func handleHelp(ctx *Context, args []string) Result {
	reg := ctx.registry
	if reg == nil {
		reg = NewRegistry()
	}

	if len(args) > 0 {
		name := strings.ToLower(args[0])
		if !strings.HasPrefix(name, "/") {
			name = "/" + name
		}
		cmd := reg.Get(name)
		if cmd == nil {
			return failure(fmt.Errorf("unknown command %s (try /help)", name))
		}
		return Result{Output: describeCommand(cmd)}
	}

	var sb strings.Builder
	sb.WriteString("Commands:\n")
	groups := reg.ByCategory()
	for _, category := range categoryOrder {
		cmds := groups[category]
		if len(cmds) == 0 {
			continue
		}
		sb.WriteString("\n" + category + "\n")
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			sb.WriteString("  " + util.PadRight(usage, 44) + cmd.Description + "\n")
		}
	}
	sb.WriteString("\nAnything not starting with / is sent to the model.")
	return Result{Output: sb.String()}
}

func describeCommand(cmd *Command) string {
	var sb strings.Builder
	usage := cmd.Usage
	if usage == "" {
		usage = cmd.Name
	}
	sb.WriteString(usage + "\n  " + cmd.Description)
	if len(cmd.Aliases) > 0 {
		sb.WriteString("\n  aliases: " + strings.Join(cmd.Aliases, ", "))
	}
	for _, arg := range cmd.Args {
		line := fmt.Sprintf("\n  %s: %s", arg.Name, arg.Description)
		if arg.Required {
			line += " (required)"
		}
		if arg.Type == ArgTypeEnum {
			line += " [" + strings.Join(arg.Values, "|") + "]"
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func handleQuit(_ *Context, _ []string) Result {
	return Result{Output: "Goodbye.", Action: ActionQuit}
}

// =============================================================================
// CONVERSATION
// =============================================================================

func handleClear(ctx *Context, _ []string) Result {
	ctx.Session.Clear()
	return Result{Output: "Conversation cleared.", Action: ActionCleared}
}

func handleSave(ctx *Context, args []string) Result {
	format := ctx.ExportFormat
	if len(args) > 0 {
		format = args[0]
	}
	exporter, err := export.ForFormat(format)
	if err != nil {
		return failure(err)
	}

	conv := export.NewConversation(ctx.Session.History(), ctx.Session.Settings().Model)
	opts := export.DefaultOptions()
	if ctx.ExportDir != "" {
		opts.OutputDir = ctx.ExportDir
	}
	if ctx.Now != nil {
		opts.Now = ctx.Now
	}

	path, err := export.ToFile(conv, exporter, opts)
	if errors.Is(err, export.ErrEmptyConversation) {
		return output("No conversation to save.")
	}
	if err != nil {
		return failure(err)
	}

	ctx.logger().Info("conversation saved", zap.String("path", path), zap.Int("turns", len(conv.Turns)))
	return output("Conversation saved to %s", path)
}

func handleLoad(ctx *Context, args []string) Result {
	turns, err := export.Load(args[0])
	if err != nil {
		return failure(err)
	}

	ctx.Session.Transcript().Replace(turns)
	ctx.logger().Info("conversation loaded", zap.String("path", args[0]), zap.Int("turns", len(turns)))
	return Result{
		Output: fmt.Sprintf("Loaded %d turns from %s", len(turns), args[0]),
		Action: ActionReloaded,
	}
}

func handleHistory(ctx *Context, _ []string) Result {
	turns := ctx.Session.History()
	if len(turns) == 0 {
		return Result{Output: "No messages yet."}
	}

	var sb strings.Builder
	for i, turn := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		label := util.PadRight(turn.Role.DisplayName()+":", 11)
		sb.WriteString(fmt.Sprintf("%3d  %s%s", i+1, label, util.Truncate(util.OneLine(turn.Content), historyPreviewWidth)))
	}
	return Result{Output: sb.String()}
}

func handleCopy(ctx *Context, _ []string) Result {
	last, ok := ctx.Session.Transcript().LastAssistant()
	if !ok {
		return Result{Output: "Nothing to copy yet."}
	}
	if err := ctx.writeClipboard(last.Content); err != nil {
		return failure(fmt.Errorf("copy to clipboard: %w", err))
	}
	return output("Copied %d characters to the clipboard.", len([]rune(last.Content)))
}

// =============================================================================
// SETTINGS
// =============================================================================

func handleModel(ctx *Context, args []string) Result {
	if len(args) == 0 {
		return output("Model: %s", ctx.Session.Settings().Model)
	}
	if err := ctx.Session.SetModel(args[0]); err != nil {
		return failure(err)
	}
	return output("Model set to %s", ctx.Session.Settings().Model)
}

func handleEndpoint(ctx *Context, args []string) Result {
	if len(args) == 0 {
		endpoint := ctx.Session.Settings().Endpoint
		if endpoint == "" {
			return Result{Output: "Endpoint: (not set)"}
		}
		return output("Endpoint: %s", endpoint)
	}

	if err := ctx.Session.SetEndpoint(args[0]); err != nil {
		return failure(err)
	}
	endpoint := ctx.Session.Settings().Endpoint
	if !chat.ValidEndpoint(endpoint) {
		return output("Endpoint set to %s\n%s", endpoint, chat.MsgInvalidEndpoint)
	}
	return output("Endpoint set to %s", endpoint)
}

func handleSystem(ctx *Context, args []string) Result {
	if len(args) == 0 {
		prompt := ctx.Session.Settings().SystemPrompt
		if prompt == "" {
			return Result{Output: "System prompt: (none)"}
		}
		return output("System prompt: %s", prompt)
	}

	text := ctx.RawArgs
	if len(args) == 1 && args[0] == "--reset" {
		text = chat.DefaultSystemPrompt
	} else if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}

	if err := ctx.Session.SetSystemPrompt(text); err != nil {
		return failure(err)
	}
	return Result{Output: "System prompt updated."}
}

// normalizeParam maps the accepted spellings onto canonical names.
func normalizeParam(name string) string {
	switch strings.ToLower(name) {
	case "temperature", "temp":
		return "temperature"
	case "top_p", "top-p", "topp":
		return "top_p"
	case "max_tokens", "max-tokens", "maxtokens":
		return "max_tokens"
	}
	return ""
}

func handleSet(ctx *Context, args []string) Result {
	param := normalizeParam(args[0])
	raw := args[1]

	var apply func(*chat.Settings)
	switch param {
	case "temperature", "top_p":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return failure(fmt.Errorf("%s: %q is not a number", param, raw))
		}
		if param == "temperature" {
			apply = func(s *chat.Settings) { s.Temperature = v }
		} else {
			apply = func(s *chat.Settings) { s.TopP = v }
		}
	case "max_tokens":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return failure(fmt.Errorf("%s: %q is not a whole number", param, raw))
		}
		apply = func(s *chat.Settings) { s.MaxTokens = v }
	default:
		return failure(fmt.Errorf("unknown parameter %q", args[0]))
	}

	if err := ctx.Session.Update(apply); err != nil {
		return failure(err)
	}
	return output("%s set to %s", param, raw)
}

func handleSettings(ctx *Context, _ []string) Result {
	s := ctx.Session.Settings()
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = "(not set)"
	}

	rows := map[string]string{
		"endpoint":    endpoint,
		"model":       s.Model,
		"temperature": strconv.FormatFloat(s.Temperature, 'f', -1, 64),
		"top_p":       strconv.FormatFloat(s.TopP, 'f', -1, 64),
		"max_tokens":  strconv.Itoa(s.MaxTokens),
		"system":      util.Truncate(util.OneLine(s.SystemPrompt), historyPreviewWidth),
		"turns":       strconv.Itoa(ctx.Session.Transcript().Len()),
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(util.PadRight(k, 13) + rows[k])
	}
	return Result{Output: sb.String()}
}

func handleStatus(ctx *Context, _ []string) Result {
	prober := ctx.Prober
	if prober == nil {
		prober = chat.NewProber(ctx.Session.Client(), 0)
	}
	st := prober.Probe(ctx.ctx(), ctx.Session.Settings().Endpoint)
	return Result{Output: st.Message()}
}
