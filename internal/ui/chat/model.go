// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	chatpkg "github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/commands"
	"github.com/LaansDole/colab-llm/internal/model"
	"github.com/LaansDole/colab-llm/internal/ui/styles"
)

// DefaultStatusInterval is how often the header re-checks the server.
const DefaultStatusInterval = 15 * time.Second

// State represents the current state of the chat view.
type State int

const (
	StateReady   State = iota // Ready for input
	StateWaiting              // An exchange or command is in flight
)

// =============================================================================
// ENTRIES
// =============================================================================

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryCommand  // echoed slash command
	entryNotice   // command output
	entryGuidance // validation, server status and timeout texts
	entryFailure
)

// entry is one block in the conversation pane. Only user and assistant
// entries mirror the transcript; the rest exist on screen only.
type entry struct {
	kind    entryKind
	text    string
	metrics string
}

func entriesFrom(turns []model.Turn) []entry {
	entries := make([]entry, 0, len(turns))
	for _, t := range turns {
		kind := entryUser
		if t.Role == model.RoleAssistant {
			kind = entryAssistant
		}
		entries = append(entries, entry{kind: kind, text: t.Content})
	}
	return entries
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat view.
type Options struct {
	// Session is the conversation to drive (required)
	Session *chatpkg.Session

	// Prober feeds the header status (default: a prober on the session client)
	Prober *chatpkg.Prober

	// Registry resolves slash commands (default: the built-in commands)
	Registry *commands.Registry

	// StatusInterval is the header poll period (default: 15s)
	StatusInterval time.Duration

	ExportDir    string
	ExportFormat string

	// RenderMarkdown renders replies with glamour
	RenderMarkdown bool

	// Theme is "dark", "light" or "auto"
	Theme string

	// Clipboard receives /copy text (default: system clipboard)
	Clipboard func(string) error

	Logger *zap.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state    State
	quitting bool

	// Styling
	theme    *styles.Theme
	markdown *markdownRenderer

	// Dimensions
	width  int
	height int

	// Conversation
	session  *chatpkg.Session
	entries  []entry
	pending  string // message in flight
	prober   *chatpkg.Prober
	status   *chatpkg.Status
	interval time.Duration

	// Exchange cancellation, shared across model copies
	cancelMgr *cancelManager

	// Slash commands
	registry   *commands.Registry
	completer  *commands.Completer
	completion *commands.CompletionState

	exportDir    string
	exportFormat string
	clipboard    func(string) error
	logger       *zap.Logger

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keyMap   KeyMap
}

// New creates a new chat model.
func New(opts Options) Model {
	session := opts.Session
	if session == nil {
		session = chatpkg.NewSession(chatpkg.DefaultSettings())
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	prober := opts.Prober
	if prober == nil {
		prober = chatpkg.NewProber(session.Client(), DefaultStatusInterval)
	}

	interval := opts.StatusInterval
	if interval <= 0 {
		interval = DefaultStatusInterval
	}

	registry := opts.Registry
	if registry == nil {
		registry = commands.NewRegistry()
	}
	completer := commands.NewCompleter(registry)
	completer.ModelsFn = func() []string {
		current := session.Settings().Model
		if current == chatpkg.DefaultModel {
			return []string{current}
		}
		return []string{current, chatpkg.DefaultModel}
	}

	cb := opts.Clipboard
	if cb == nil {
		cb = clipboard.WriteAll
	}

	theme := styles.NewTheme(opts.Theme)

	// Create text input with prompt
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message or /help..."
	ti.CharLimit = 0
	ti.Focus()

	// Create viewport
	vp := viewport.New(80, 20)

	// Create spinner with ASCII-compatible animation
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	h := help.New()
	h.ShortSeparator = "  "

	return Model{
		state:        StateReady,
		theme:        theme,
		markdown:     newMarkdownRenderer(opts.RenderMarkdown, theme.IsDark),
		session:      session,
		entries:      entriesFrom(session.History()),
		prober:       prober,
		interval:     interval,
		cancelMgr:    newCancelManager(),
		registry:     registry,
		completer:    completer,
		completion:   commands.NewCompletionState(),
		exportDir:    opts.ExportDir,
		exportFormat: opts.ExportFormat,
		clipboard:    cb,
		logger:       logger,
		viewport:     vp,
		input:        ti,
		spinner:      sp,
		help:         h,
		keyMap:       DefaultKeyMap(),
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.pollStatus(true))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ReplyMsg:
		return m.handleReply(msg)

	case CommandResultMsg:
		return m.handleCommandResult(msg)

	case StatusMsg:
		st := msg.Status
		m.status = &st
		if msg.reschedule {
			return m, m.scheduleStatus()
		}
		return m, nil

	case statusTickMsg:
		return m, m.pollStatus(true)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case spinner.TickMsg:
		if m.state == StateWaiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	default:
		// For any unhandled messages, update the text input if ready
		// and always update the viewport for scroll events, etc.
		if m.state == StateReady {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}

		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)

		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderChat()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current view state.
func (m Model) State() State {
	return m.state
}

// Session returns the session the view drives.
func (m Model) Session() *chatpkg.Session {
	return m.session
}

// =============================================================================
// BACKGROUND COMMANDS
// =============================================================================

// exchange runs one exchange off the render loop. Esc cancels it through
// cancelMgr; the client's own timeout still bounds it.
func (m Model) exchange(text string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	session := m.session
	return func() tea.Msg {
		defer cancel()
		return ReplyMsg{Message: text, Reply: session.Submit(ctx, text)}
	}
}

// runCommand runs a slash command off the render loop.
func (m Model) runCommand(input string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	cmdCtx := &commands.Context{
		Ctx:          ctx,
		Session:      m.session,
		Prober:       m.prober,
		ExportDir:    m.exportDir,
		ExportFormat: m.exportFormat,
		Clipboard:    m.clipboard,
		Logger:       m.logger,
	}
	registry := m.registry
	return func() tea.Msg {
		defer cancel()
		return CommandResultMsg{Input: input, Result: registry.Run(cmdCtx, input)}
	}
}

// pollStatus checks the current endpoint through the throttled prober.
func (m Model) pollStatus(reschedule bool) tea.Cmd {
	endpoint := m.session.Settings().Endpoint
	prober := m.prober
	return func() tea.Msg {
		return StatusMsg{Status: prober.Poll(context.Background(), endpoint), reschedule: reschedule}
	}
}

func (m Model) scheduleStatus() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return statusTickMsg{at: t}
	})
}
