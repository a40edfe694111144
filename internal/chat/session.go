// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LaansDole/colab-llm/internal/model"
	"github.com/LaansDole/colab-llm/internal/ollama"
	"github.com/LaansDole/colab-llm/internal/prompt"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is one conversation with one server: settings plus transcript.
//
// All methods are safe for concurrent use. Exchanges are serialized, so a
// second Send waits for the first to finish.
type Session struct {
	id         string
	client     *ollama.Client
	transcript *model.Transcript
	now        func() time.Time
	logger     *zap.Logger

	mu       sync.RWMutex
	settings Settings

	sendMu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithClient sets the Ollama client whose transport and timeouts are used.
// Its base URL is replaced per exchange by the endpoint in effect.
func WithClient(c *ollama.Client) Option {
	return func(s *Session) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTranscript makes the session append to an existing transcript.
func WithTranscript(t *model.Transcript) Option {
	return func(s *Session) {
		if t != nil {
			s.transcript = t
		}
	}
}

// WithClock overrides the clock used to measure elapsed time.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger. The session adds its own session_id field.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session with an empty transcript.
func NewSession(settings Settings, opts ...Option) *Session {
	s := &Session{
		id:         uuid.Must(uuid.NewV7()).String(),
		client:     ollama.NewClientWithConfig(nil),
		transcript: model.NewTranscript(),
		now:        time.Now,
		logger:     zap.NewNop(),
		settings:   settings,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Transcript returns the session's transcript store.
func (s *Session) Transcript() *model.Transcript {
	return s.transcript
}

// Client returns the Ollama client the session sends through.
func (s *Session) Client() *ollama.Client {
	return s.client
}

// History returns a copy of the conversation so far.
func (s *Session) History() []model.Turn {
	return s.transcript.Snapshot()
}

// Clear empties the transcript. Settings are kept.
func (s *Session) Clear() {
	s.transcript.Clear()
	s.logger.Info("transcript cleared")
}

// =============================================================================
// SETTINGS ACCESS
// =============================================================================

// Settings returns a copy of the current settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies fn to a copy of the settings and commits the result only if
// it validates. On error the previous settings stay in effect.
func (s *Session) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	s.settings = next
	s.logger.Debug("settings updated",
		zap.String("endpoint", next.Endpoint),
		zap.String("model", next.Model),
		zap.Float64("temperature", next.Temperature),
		zap.Float64("top_p", next.TopP),
		zap.Int("max_tokens", next.MaxTokens),
	)
	return nil
}

// SetEndpoint changes the server URL. Malformed values are accepted here and
// rejected at exchange time with guidance text.
func (s *Session) SetEndpoint(endpoint string) error {
	return s.Update(func(st *Settings) { st.Endpoint = strings.TrimSpace(endpoint) })
}

// SetModel changes the model identifier.
func (s *Session) SetModel(name string) error {
	return s.Update(func(st *Settings) { st.Model = strings.TrimSpace(name) })
}

// SetSystemPrompt replaces the system instructions. Empty disables them.
func (s *Session) SetSystemPrompt(text string) error {
	return s.Update(func(st *Settings) { st.SystemPrompt = text })
}

// =============================================================================
// EXCHANGE
// =============================================================================

// Submit sends message using the session's current settings.
func (s *Session) Submit(ctx context.Context, message string) Reply {
	return s.Send(ctx, message, s.Settings().Params)
}

// Send performs one exchange with the server described by params. The
// system instructions come from the session settings.
//
// Preconditions are checked before any network traffic. On success the
// user turn and the assistant turn are appended together; on any failure
// the transcript is unchanged.
func (s *Session) Send(ctx context.Context, message string, params Params) Reply {
	if strings.TrimSpace(message) == "" {
		return validationReply(MsgEmptyMessage)
	}
	if !ValidEndpoint(params.Endpoint) {
		return validationReply(MsgInvalidEndpoint)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	system := s.Settings().SystemPrompt
	history := s.transcript.Snapshot()
	text := prompt.Format(message, history, system)

	req := ollama.NewGenerateRequest(params.Model, text, ollama.Options{
		Temperature: params.Temperature,
		TopP:        params.TopP,
		NumPredict:  params.MaxTokens,
	})
	client := s.client.WithBaseURL(params.Endpoint)

	log := s.logger.With(zap.String("model", params.Model), zap.String("endpoint", client.BaseURL()))
	log.Debug("sending generate request",
		zap.Int("history_turns", len(history)),
		zap.Int("prompt_bytes", len(text)),
	)

	start := s.now()
	resp, err := client.Generate(ctx, req)
	elapsed := s.now().Sub(start)

	if err != nil {
		reply := failureReply(err, elapsed)
		log.Warn("exchange failed",
			zap.Stringer("outcome", reply.Outcome),
			zap.Int("status", reply.StatusCode),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return reply
	}

	answer := resp.Text()
	tokens := resp.Tokens()
	s.transcript.AppendExchange(message, answer)

	log.Info("exchange complete",
		zap.Int("tokens", tokens),
		zap.Duration("elapsed", elapsed),
		zap.Int("transcript_turns", s.transcript.Len()),
	)

	return Reply{
		Text:       answer,
		Metrics:    FormatMetrics(tokens, elapsed),
		Outcome:    OutcomeSuccess,
		StatusCode: http.StatusOK,
		Tokens:     tokens,
		Elapsed:    elapsed,
	}
}

// failureReply maps a client error onto the user-facing failure texts.
func failureReply(err error, elapsed time.Duration) Reply {
	reply := Reply{Elapsed: elapsed, Err: err}

	switch {
	case ollama.StatusCode(err) != 0:
		reply.StatusCode = ollama.StatusCode(err)
		reply.Outcome = OutcomeServerError
		reply.Text = statusMessage(reply.StatusCode)
	case ollama.IsTimeout(err):
		reply.Outcome = OutcomeTimeout
		reply.Text = MsgTimeout
	case ollama.IsConnection(err):
		reply.Outcome = OutcomeConnection
		reply.Text = MsgConnection
	default:
		reply.Outcome = OutcomeError
		reply.Text = errorMessage(err)
	}
	return reply
}
