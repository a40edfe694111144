// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LaansDole/colab-llm/internal/model"
	"github.com/LaansDole/colab-llm/internal/ollama"
)

// =============================================================================
// HELPERS
// =============================================================================

// steppingClock advances by step on every call, so the start and end
// readings of one exchange are exactly step apart.
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

type fakeServer struct {
	*httptest.Server
	hits     atomic.Int32
	mu       sync.Mutex
	requests []ollama.GenerateRequest
}

func newFakeServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		if r.URL.Path == "/api/generate" {
			var req ollama.GenerateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				fs.mu.Lock()
				fs.requests = append(fs.requests, req)
				fs.mu.Unlock()
			}
		}
		handler(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) lastRequest(t *testing.T) ollama.GenerateRequest {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.NotEmpty(t, fs.requests)
	return fs.requests[len(fs.requests)-1]
}

func replyWith(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func newTestSession(endpoint string, opts ...Option) *Session {
	settings := DefaultSettings()
	settings.Endpoint = endpoint
	opts = append([]Option{WithClock(steppingClock(2 * time.Second))}, opts...)
	return NewSession(settings, opts...)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestSend_EmptyMessage(t *testing.T) {
	srv := newFakeServer(t, replyWith(`{"response":"x"}`))
	sess := newTestSession(srv.URL)

	for _, msg := range []string{"", "   ", "\n\t"} {
		reply := sess.Submit(context.Background(), msg)
		assert.Equal(t, MsgEmptyMessage, reply.Text)
		assert.Empty(t, reply.Metrics)
		assert.Equal(t, OutcomeValidation, reply.Outcome)
	}

	assert.Zero(t, srv.hits.Load(), "no request should be sent")
	assert.Zero(t, sess.Transcript().Len())
}

func TestSend_InvalidEndpoint(t *testing.T) {
	sess := newTestSession("")

	for _, endpoint := range []string{"", "not-a-url", "ftp://host", "localhost:11434"} {
		params := sess.Settings().Params
		params.Endpoint = endpoint

		reply := sess.Send(context.Background(), "hi", params)
		assert.Equal(t, MsgInvalidEndpoint, reply.Text, "endpoint %q", endpoint)
		assert.Empty(t, reply.Metrics)
		assert.Equal(t, OutcomeValidation, reply.Outcome)
	}
	assert.Zero(t, sess.Transcript().Len())
}

func TestSend_EmptyMessageCheckedFirst(t *testing.T) {
	sess := newTestSession("not-a-url")
	reply := sess.Submit(context.Background(), "")
	assert.Equal(t, MsgEmptyMessage, reply.Text)
}

// =============================================================================
// SUCCESS
// =============================================================================

func TestSend_Success(t *testing.T) {
	srv := newFakeServer(t, replyWith(`{"response":"hello","eval_count":10}`))
	sess := newTestSession(srv.URL)

	reply := sess.Submit(context.Background(), "hi")

	require.True(t, reply.OK(), "reply: %+v", reply)
	assert.Equal(t, "hello", reply.Text)
	assert.Equal(t, "Generated 10 tokens in 2.00s (5.0 tokens/s)", reply.Metrics)
	assert.Equal(t, 10, reply.Tokens)
	assert.Equal(t, 2*time.Second, reply.Elapsed)

	turns := sess.History()
	require.Len(t, turns, 2)
	assert.Equal(t, model.NewUserTurn("hi"), turns[0])
	assert.Equal(t, model.NewAssistantTurn("hello"), turns[1])
}

func TestSend_RequestBody(t *testing.T) {
	srv := newFakeServer(t, replyWith(`{"response":"4","eval_count":1}`))
	sess := newTestSession(srv.URL)
	require.NoError(t, sess.SetSystemPrompt("Be terse."))

	params := sess.Settings().Params
	params.Model = "llama3"
	params.Temperature = 1.5
	params.TopP = 0.5
	params.MaxTokens = 300

	sess.Send(context.Background(), "2+2?", params)

	req := srv.lastRequest(t)
	assert.Equal(t, "llama3", req.Model)
	assert.False(t, req.Stream)
	assert.Equal(t, "Be terse.\n\nUser: 2+2?\n\nAssistant: ", req.Prompt)
	require.NotNil(t, req.Options)
	assert.Equal(t, 1.5, req.Options.Temperature)
	assert.Equal(t, 0.5, req.Options.TopP)
	assert.Equal(t, 300, req.Options.NumPredict)
}

func TestSend_HistoryFedBack(t *testing.T) {
	srv := newFakeServer(t, replyWith(`{"response":"ok","eval_count":2}`))
	sess := newTestSession(srv.URL)
	require.NoError(t, sess.SetSystemPrompt(""))

	sess.Submit(context.Background(), "first")
	sess.Submit(context.Background(), "second")

	req := srv.lastRequest(t)
	assert.Equal(t, "User: first\n\nAssistant: ok\n\nUser: second\n\nAssistant: ", req.Prompt)
	assert.Equal(t, 4, sess.Transcript().Len())
}

func TestSend_MessageKeptVerbatim(t *testing.T) {
	srv := newFakeServer(t, replyWith(`{"response":"ok"}`))
	sess := newTestSession(srv.URL)

	sess.Submit(context.Background(), "  padded  ")

	assert.Equal(t, "  padded  ", sess.History()[0].Content)
}

func TestSend_MissingFieldsUseDefaults(t *testing.T) {
	srv := newFakeServer(t, replyWith(`{"done":true}`))
	sess := newTestSession(srv.URL)

	reply := sess.Submit(context.Background(), "hi")

	require.True(t, reply.OK())
	assert.Equal(t, ollama.DefaultResponseText, reply.Text)
	assert.Equal(t, "Generated 0 tokens in 2.00s (0.0 tokens/s)", reply.Metrics)
	assert.Equal(t, ollama.DefaultResponseText, sess.History()[1].Content)
}

func TestSend_TrailingSlashEndpoint(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"response":"ok"}`))
	})
	sess := newTestSession(srv.URL + "/")

	assert.True(t, sess.Submit(context.Background(), "hi").OK())
}

// =============================================================================
// FAILURES
// =============================================================================

func TestSend_ServerError(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	sess := newTestSession(srv.URL)

	reply := sess.Submit(context.Background(), "hi")

	assert.Equal(t, "⚠️ Error: API returned status code 500", reply.Text)
	assert.Empty(t, reply.Metrics)
	assert.Equal(t, OutcomeServerError, reply.Outcome)
	assert.Equal(t, 500, reply.StatusCode)
	assert.Zero(t, sess.Transcript().Len())
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{GenerateTimeout: 50 * time.Millisecond})
	sess := newTestSession(srv.URL, WithClient(client))
	sess.Transcript().AppendExchange("earlier", "turns")
	before := sess.Transcript().Len()

	reply := sess.Submit(context.Background(), "hi")

	assert.Equal(t, MsgTimeout, reply.Text)
	assert.Empty(t, reply.Metrics)
	assert.Equal(t, OutcomeTimeout, reply.Outcome)
	assert.Equal(t, before, sess.Transcript().Len())
}

func TestSend_ConnectionError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	sess := newTestSession("http://" + addr)
	reply := sess.Submit(context.Background(), "hi")

	assert.Equal(t, MsgConnection, reply.Text)
	assert.Equal(t, OutcomeConnection, reply.Outcome)
	assert.Zero(t, sess.Transcript().Len())
}

func TestSend_UntrustedCertificate(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	sess := newTestSession(srv.URL)
	reply := sess.Submit(context.Background(), "hi")

	assert.Equal(t, MsgConnection, reply.Text)
	assert.Equal(t, OutcomeConnection, reply.Outcome)
	assert.Zero(t, hits.Load())
	assert.Zero(t, sess.Transcript().Len())
}

func TestSend_InvalidJSON(t *testing.T) {
	srv := newFakeServer(t, replyWith(`<html>proxy error</html>`))
	sess := newTestSession(srv.URL)

	reply := sess.Submit(context.Background(), "hi")

	assert.True(t, strings.HasPrefix(reply.Text, "❌ Error: "), reply.Text)
	assert.Equal(t, OutcomeError, reply.Outcome)
	assert.Empty(t, reply.Metrics)
	assert.Zero(t, sess.Transcript().Len())
}

func TestSend_Canceled(t *testing.T) {
	release := make(chan struct{})
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	sess := newTestSession(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	reply := sess.Submit(ctx, "hi")

	assert.Equal(t, OutcomeError, reply.Outcome)
	assert.True(t, ollama.IsCanceled(reply.Err))
	assert.Zero(t, sess.Transcript().Len())
}

func TestSend_UsableAfterFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"response":"back","eval_count":1}`))
	})
	sess := newTestSession(srv.URL)

	assert.False(t, sess.Submit(context.Background(), "hi").OK())
	fail.Store(false)
	assert.True(t, sess.Submit(context.Background(), "hi").OK())
	assert.Equal(t, 2, sess.Transcript().Len())
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestSend_Serialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		w.Write([]byte(`{"response":"ok","eval_count":1}`))
	})
	sess := newTestSession(srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Submit(context.Background(), "hi")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, 10, sess.Transcript().Len())
}

// =============================================================================
// SETTINGS AND LOGGING
// =============================================================================

func TestSession_UpdateRejectsInvalid(t *testing.T) {
	sess := newTestSession("http://localhost:11434")

	err := sess.Update(func(s *Settings) { s.Temperature = 5 })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature must be between 0.1 and 2.0")
	assert.Equal(t, DefaultTemperature, sess.Settings().Temperature)

	require.NoError(t, sess.Update(func(s *Settings) { s.Temperature = 1.2 }))
	assert.Equal(t, 1.2, sess.Settings().Temperature)
}

func TestSession_SetEndpointAcceptsAnything(t *testing.T) {
	sess := newTestSession("")
	require.NoError(t, sess.SetEndpoint("  not-a-url "))
	assert.Equal(t, "not-a-url", sess.Settings().Endpoint)
}

func TestSession_Clear(t *testing.T) {
	srv := newFakeServer(t, replyWith(`{"response":"ok"}`))
	sess := newTestSession(srv.URL)
	require.NoError(t, sess.SetModel("other"))

	sess.Submit(context.Background(), "hi")
	sess.Clear()

	assert.Zero(t, sess.Transcript().Len())
	assert.Equal(t, "other", sess.Settings().Model)
}

func TestSession_LogsExchange(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	srv := newFakeServer(t, replyWith(`{"response":"ok","eval_count":3}`))
	sess := newTestSession(srv.URL, WithLogger(zap.New(core)))

	sess.Submit(context.Background(), "hi")

	entries := logs.FilterMessage("exchange complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, sess.ID(), fields["session_id"])
	assert.EqualValues(t, 3, fields["tokens"])
}

func TestSession_IDIsUnique(t *testing.T) {
	a := NewSession(DefaultSettings())
	b := NewSession(DefaultSettings())
	assert.NotEqual(t, a.ID(), b.ID())
}
