// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/config"
	"github.com/LaansDole/colab-llm/internal/logging"
	"github.com/LaansDole/colab-llm/internal/ollama"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APP
// =============================================================================

// App holds the parsed options and the streams commands write to.
type App struct {
	opts   Options
	parser *flags.Parser

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// isTTY reports whether stdin and stdout are both terminals
	isTTY func() bool

	// stdinTTY reports whether stdin is a terminal
	stdinTTY func() bool

	cfg     *config.Config
	cfgPath string
	log     *logging.Logger
}

// NewApp creates an App bound to the given streams.
func NewApp(stdin io.Reader, stdout, stderr io.Writer) *App {
	a := &App{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		isTTY:    func() bool { return IsTTY() && IsStdoutTTY() },
		stdinTTY: IsTTY,
	}

	a.parser = flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	a.parser.Name = "colab-llm"
	a.parser.SubcommandsOptional = true
	a.parser.CommandHandler = a.dispatch

	chatCmd, _ := a.parser.AddCommand("chat", "Start an interactive chat (default)",
		"Opens the full-screen chat, or the line REPL with --plain or when not attached to a terminal.",
		&ChatCommand{app: a})
	chatCmd.Aliases = []string{"c"}

	askCmd, _ := a.parser.AddCommand("ask", "Send one message and print the reply",
		"Sends a single message with an empty history. The reply goes to stdout and the metrics line to stderr. "+
			"Without arguments the message is read from stdin.",
		&AskCommand{app: a})
	askCmd.Aliases = []string{"a"}

	statusCmd, _ := a.parser.AddCommand("status", "Check whether the server is reachable",
		"Queries /api/version on the configured endpoint.", &StatusCommand{app: a})
	statusCmd.Aliases = []string{"s"}

	cfgCmd := &ConfigCommand{}
	cfgCmd.Show.app = a
	cfgCmd.Init.app = a
	cfgCmd.Path.app = a
	_, _ = a.parser.AddCommand("config", "Show or create the configuration file", "", cfgCmd)

	return a
}

// Execute parses args and runs the selected command. It returns the process
// exit code.
func Execute(args []string) int {
	return NewApp(os.Stdin, os.Stdout, os.Stderr).Run(args)
}

// Run parses args and runs the selected command.
func (a *App) Run(args []string) int {
	defer a.close()

	_, err := a.parser.ParseArgs(args)
	if err == nil {
		return ExitSuccess
	}

	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) {
		if flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(a.stdout, flagsErr.Message)
			return ExitSuccess
		}
		fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), flagsErr.Message)
		fmt.Fprintln(a.stderr, DimStyle.Render("Run 'colab-llm --help' for usage."))
		return ExitUsageError
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || !exitErr.Silent {
		fmt.Fprintf(a.stderr, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
	}
	return GetExitCode(err)
}

// dispatch runs before every command. The bare program name means chat.
func (a *App) dispatch(cmd flags.Commander, args []string) error {
	if a.opts.Version {
		fmt.Fprintf(a.stdout, "colab-llm %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return nil
	}
	if cmd == nil {
		cmd = &ChatCommand{app: a}
	}
	return cmd.Execute(args)
}

// =============================================================================
// SETUP
// =============================================================================

// setup loads the config, applies flag overrides and opens the log file.
func (a *App) setup() error {
	if a.cfg != nil {
		return nil
	}

	path, err := a.configPath()
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	applyFlags(a.parser, &a.opts, cfg)
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("invalid options: %w", err)}
	}

	logFile := cfg.Logging.File
	if logFile == "" {
		if p, err := config.LogPath(); err == nil {
			logFile = p
		}
	}
	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		File:       logFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		// Logging is best effort; the terminal still works without it
		fmt.Fprintf(a.stderr, "%s logging disabled: %v\n", WarningStyle.Render("[WARN]"), err)
		logger = logging.Nop()
	}
	logging.SetGlobal(logger)

	a.cfg = cfg
	a.cfgPath = path
	a.log = logger
	a.log.Named("cli").Debug("config loaded",
		zap.String("path", path),
		zap.String("endpoint", cfg.Server.Endpoint),
		zap.String("model", cfg.Generation.Model),
	)
	return nil
}

func (a *App) configPath() (string, error) {
	if a.opts.Config != "" {
		return a.opts.Config, nil
	}
	return config.Path()
}

// overrides reapplies flags to a config loaded after startup.
func (a *App) overrides(cfg *config.Config) {
	applyFlags(a.parser, &a.opts, cfg)
}

func (a *App) close() {
	if a.log != nil {
		_ = a.log.Close()
	}
}

// newClient builds the inference client from the loaded config.
func (a *App) newClient() *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:         a.cfg.Server.Endpoint,
		GenerateTimeout: a.cfg.RequestTimeout(),
		ProbeTimeout:    a.cfg.ProbeTimeout(),
	})
}

// newSession builds a session and a status prober sharing one client.
func (a *App) newSession() (*chat.Session, *chat.Prober) {
	client := a.newClient()
	sess := chat.NewSession(a.cfg.ChatSettings(),
		chat.WithClient(client),
		chat.WithLogger(a.log.Named("chat")),
	)
	prober := chat.NewProber(client, a.cfg.StatusInterval())
	prober.SetLogger(a.log.Named("status"))
	return sess, prober
}

// signalContext returns a context canceled by Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
