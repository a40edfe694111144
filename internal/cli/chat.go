// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/commands"
	"github.com/LaansDole/colab-llm/internal/config"
	"github.com/LaansDole/colab-llm/internal/ollama"
	uichat "github.com/LaansDole/colab-llm/internal/ui/chat"
)

// replPrompt is kept free of escape sequences; liner measures it by runes.
const replPrompt = "you> "

// ChatCommand starts an interactive chat. It opens the full-screen view on
// a terminal and falls back to the line REPL with --plain or when piped.
type ChatCommand struct {
	app *App
}

// Execute runs the chat command.
func (c *ChatCommand) Execute(_ []string) error {
	a := c.app
	if err := a.setup(); err != nil {
		return err
	}

	sess, prober := a.newSession()
	registry := commands.NewRegistry()

	a.log.Named("cli").Info("chat started",
		zap.String("session_id", sess.ID()),
		zap.Bool("plain", a.cfg.UI.Plain || !a.isTTY()),
	)

	if !a.cfg.UI.Plain && a.isTTY() {
		return a.runTUI(sess, prober, registry)
	}
	return a.runREPL(sess, prober, registry)
}

// =============================================================================
// FULL-SCREEN VIEW
// =============================================================================

func (a *App) runTUI(sess *chat.Session, prober *chat.Prober, registry *commands.Registry) error {
	p := uichat.NewProgram(uichat.Options{
		Session:        sess,
		Prober:         prober,
		Registry:       registry,
		StatusInterval: a.cfg.StatusInterval(),
		ExportDir:      a.cfg.Export.Dir,
		ExportFormat:   a.cfg.Export.Format,
		RenderMarkdown: a.cfg.UI.RenderMarkdown,
		Theme:          a.cfg.UI.Theme,
		Logger:         a.log.Named("tui"),
	})

	if a.opts.WatchConfig {
		if w := a.watchConfig(func(msg uichat.ConfigReloadedMsg) { p.Send(msg) }); w != nil {
			defer w.Close()
		}
	}

	if err := p.Run(); err != nil {
		return fmt.Errorf("chat view: %w", err)
	}
	return nil
}

// watchConfig starts the config watcher. Reloads keep flag overrides on
// top of the file. It returns nil when the file cannot be watched.
func (a *App) watchConfig(deliver func(uichat.ConfigReloadedMsg)) *config.Watcher {
	log := a.log.Named("config")
	w, err := config.NewWatcher(a.cfgPath, 0, func(cfg *config.Config, err error) {
		if err != nil {
			deliver(uichat.ConfigReloadedMsg{Err: err})
			return
		}
		a.overrides(cfg)
		deliver(uichat.ConfigReloadedMsg{
			Settings:     cfg.ChatSettings(),
			ExportDir:    cfg.Export.Dir,
			ExportFormat: cfg.Export.Format,
		})
	})
	if err != nil {
		log.Warn("config watch disabled", zap.String("path", a.cfgPath), zap.Error(err))
		fmt.Fprintf(a.stderr, "%s config watch disabled: %v\n", WarningStyle.Render("[WARN]"), err)
		return nil
	}
	log.Info("watching config", zap.String("path", w.Path()))
	return w
}

// =============================================================================
// LINE REPL
// =============================================================================

func (a *App) runREPL(sess *chat.Session, prober *chat.Prober, registry *commands.Registry) error {
	r := &repl{
		session:      sess,
		prober:       prober,
		registry:     registry,
		renderer:     newMarkdownRenderer(a.renderMarkdown(), a.cfg.UI.Theme, GetTerminalWidth()),
		out:          a.stdout,
		errOut:       a.stderr,
		logger:       a.log.Named("repl"),
		exportDir:    a.cfg.Export.Dir,
		exportFormat: a.cfg.Export.Format,
	}

	if a.opts.WatchConfig {
		if w := a.watchConfig(r.applyReload); w != nil {
			defer w.Close()
		}
	}

	if !a.stdinTTY() {
		return r.runScript(a.stdin)
	}

	r.printWelcome()

	historyFile, err := config.HistoryPath()
	if err != nil {
		historyFile = ""
	}
	completer := commands.NewCompleter(registry)
	lr := newLineReader(historyFile, completer.Line)
	defer lr.Close()

	for {
		line, err := lr.ReadLine(replPrompt)
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed terminal
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(a.stdout)
				r.printGoodbye()
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		if r.interruptible(line) {
			r.printGoodbye()
			return nil
		}
	}
}

// repl executes one line at a time. It is shared by the interactive loop
// and piped input.
type repl struct {
	session   *chat.Session
	prober    *chat.Prober
	registry  *commands.Registry
	renderer  *markdownRenderer
	out       io.Writer
	errOut    io.Writer
	logger    *zap.Logger
	clipboard func(string) error

	// guarded: the config watcher writes from its own goroutine
	mu           sync.Mutex
	exportDir    string
	exportFormat string
	notices      []string
}

// runScript handles piped input line by line until EOF or a quit command.
func (r *repl) runScript(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), maxStdinMessage)
	for scanner.Scan() {
		if r.interruptible(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// interruptible handles line with Ctrl+C canceling the exchange instead of
// killing the process.
func (r *repl) interruptible(line string) bool {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return r.handleLine(ctx, line)
}

// handleLine runs one line of input and reports whether the REPL should
// exit. Blank lines are skipped.
func (r *repl) handleLine(ctx context.Context, line string) (quit bool) {
	r.flushNotices()

	input := strings.TrimSpace(line)
	switch {
	case input == "":
		return false
	case commands.IsCommand(input):
		return r.runCommand(ctx, input)
	}

	r.send(ctx, line)
	return false
}

func (r *repl) runCommand(ctx context.Context, input string) bool {
	r.mu.Lock()
	cmdCtx := &commands.Context{
		Ctx:          ctx,
		Session:      r.session,
		Prober:       r.prober,
		ExportDir:    r.exportDir,
		ExportFormat: r.exportFormat,
		Clipboard:    r.clipboard,
		Logger:       r.logger,
	}
	r.mu.Unlock()

	res := r.registry.Run(cmdCtx, input)
	if res.Err != nil {
		fmt.Fprintf(r.errOut, "%s %v\n", ErrorStyle.Render("[ERROR]"), res.Err)
	} else if res.Output != "" {
		fmt.Fprintln(r.out, res.Output)
	}
	return res.Action == commands.ActionQuit
}

func (r *repl) send(ctx context.Context, message string) {
	reply := r.session.Submit(ctx, message)

	switch {
	case reply.OK():
		fmt.Fprint(r.out, r.renderer.Render(reply.Text))
		fmt.Fprintln(r.out, DimStyle.Render(reply.Metrics))
	case ollama.IsCanceled(reply.Err):
		fmt.Fprintln(r.errOut, WarningStyle.Render("[Cancelled]"))
	default:
		fmt.Fprintln(r.errOut, replyStyle(reply.Outcome).Render(reply.Text))
	}
}

// applyReload takes settings from an edited config file. The prompt may be
// active, so the notice is printed before the next line is handled.
func (r *repl) applyReload(msg uichat.ConfigReloadedMsg) {
	notice := "Config reloaded."
	switch {
	case msg.Err != nil:
		notice = fmt.Sprintf("Config reload failed: %v", msg.Err)
	default:
		if err := r.session.Update(func(s *chat.Settings) { *s = msg.Settings }); err != nil {
			notice = fmt.Sprintf("Config reload rejected: %v", err)
		}
	}
	r.logger.Info("config reload", zap.String("result", notice))

	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.Err == nil {
		if msg.ExportDir != "" {
			r.exportDir = msg.ExportDir
		}
		if msg.ExportFormat != "" {
			r.exportFormat = msg.ExportFormat
		}
	}
	r.notices = append(r.notices, notice)
}

func (r *repl) flushNotices() {
	r.mu.Lock()
	notices := r.notices
	r.notices = nil
	r.mu.Unlock()

	for _, n := range notices {
		fmt.Fprintln(r.out, DimStyle.Render(n))
	}
}

func (r *repl) printWelcome() {
	settings := r.session.Settings()
	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = "(not set, use /endpoint <url>)"
	}

	fmt.Fprintln(r.out, TitleStyle.Render("colab-llm "+Version))
	fmt.Fprintln(r.out, RenderLabel("Model:")+ValueStyle.Render(settings.Model))
	fmt.Fprintln(r.out, RenderLabel("Endpoint:")+ValueStyle.Render(endpoint))
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(r.out, RenderSeparator(40))
}

func (r *repl) printGoodbye() {
	turns := len(r.session.History())
	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("Session ended after %d turns.", turns)))
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides line editing and persistent history for the REPL.
type lineReader struct {
	line        *liner.State
	historyFile string
}

// newLineReader opens the terminal for line editing. An empty historyFile
// keeps history in memory only.
func newLineReader(historyFile string, complete liner.Completer) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if complete != nil {
		line.SetCompleter(complete)
	}

	lr := &lineReader{line: line, historyFile: historyFile}
	lr.loadHistory()
	return lr
}

func (lr *lineReader) loadHistory() {
	if lr.historyFile == "" {
		return
	}
	if f, err := os.Open(lr.historyFile); err == nil {
		lr.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads a line of input with the given prompt.
func (lr *lineReader) ReadLine(prompt string) (string, error) {
	input, err := lr.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		lr.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists history owner-readable only.
func (lr *lineReader) saveHistory() {
	if lr.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(lr.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(lr.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	lr.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (lr *lineReader) Close() {
	lr.saveHistory()
	lr.line.Close()
}
