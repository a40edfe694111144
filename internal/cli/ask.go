// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// maxStdinMessage bounds a message read from a pipe.
const maxStdinMessage = 1 << 20

// AskCommand sends a single message with an empty history.
//
// Examples:
//
//	colab-llm ask "What is a goroutine?"
//	colab-llm ask -e https://xxxx.ngrok-free.app --temperature 0.2 "Summarize RFC 2119"
//	git diff | colab-llm ask --json
type AskCommand struct {
	Args struct {
		Message []string `positional-arg-name:"message" description:"Message to send (read from stdin when omitted)"`
	} `positional-args:"yes"`

	app *App
}

// Execute runs the ask command.
func (c *AskCommand) Execute(_ []string) error {
	a := c.app
	if err := a.setup(); err != nil {
		return err
	}

	message := strings.Join(c.Args.Message, " ")
	if message == "" && !a.stdinTTY() {
		data, err := io.ReadAll(io.LimitReader(a.stdin, maxStdinMessage))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		message = string(data)
	}

	sess, _ := a.newSession()
	ctx, cancel := signalContext()
	defer cancel()

	reply := sess.Submit(ctx, message)
	a.log.Named("cli").Info("ask finished",
		zap.Stringer("outcome", reply.Outcome),
		zap.Int("tokens", reply.Tokens),
		zap.Duration("elapsed", reply.Elapsed),
	)

	if a.opts.JSON {
		result := AskResult{
			Model:          sess.Settings().Model,
			Reply:          reply.Text,
			Metrics:        reply.Metrics,
			Outcome:        reply.Outcome.String(),
			Tokens:         reply.Tokens,
			ElapsedSeconds: reply.Elapsed.Seconds(),
			StatusCode:     reply.StatusCode,
		}
		resp := NewJSONResponse("ask", result)
		if !reply.OK() {
			resp = NewJSONErrorResponseStr("ask", reply.Text, result)
		}
		if err := resp.Write(a.stdout); err != nil {
			return err
		}
	} else if reply.OK() {
		renderer := newMarkdownRenderer(a.renderMarkdown(), a.cfg.UI.Theme, GetTerminalWidth())
		fmt.Fprint(a.stdout, renderer.Render(reply.Text))
		fmt.Fprintln(a.stderr, DimStyle.Render(reply.Metrics))
	} else {
		fmt.Fprintln(a.stderr, replyStyle(reply.Outcome).Render(reply.Text))
	}

	if !reply.OK() {
		return &ExitError{Code: outcomeExitCode(reply.Outcome), Err: reply.Err, Silent: true}
	}
	return nil
}

// renderMarkdown reports whether replies should go through glamour. Piped
// output always gets the raw text.
func (a *App) renderMarkdown() bool {
	return a.cfg.UI.RenderMarkdown && !a.cfg.UI.Plain && a.isTTY()
}
