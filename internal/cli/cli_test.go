// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/commands"
	"github.com/LaansDole/colab-llm/internal/config"
	"github.com/LaansDole/colab-llm/internal/ollama"
	uichat "github.com/LaansDole/colab-llm/internal/ui/chat"
)

// =============================================================================
// HELPERS
// =============================================================================

type testApp struct {
	app    *App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestApp isolates HOME and the environment so no user config leaks in.
func newTestApp(t *testing.T, stdin string) *testApp {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"COLAB_LLM_ENDPOINT", "COLAB_LLM_MODEL", "COLAB_LLM_SYSTEM_PROMPT",
		"COLAB_LLM_LOG_LEVEL", "COLAB_LLM_EXPORT_DIR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	ta := &testApp{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	ta.app = NewApp(strings.NewReader(stdin), ta.stdout, ta.stderr)
	ta.app.isTTY = func() bool { return false }
	ta.app.stdinTTY = func() bool { return false }
	return ta
}

func (ta *testApp) run(args ...string) int {
	return ta.app.Run(args)
}

// fakeServer records generate requests and answers with a fixed reply.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	prompts  []string
	requests atomic.Int32
}

func newFakeServer(t *testing.T, status int, body string) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			fs.requests.Add(1)
			var req ollama.GenerateRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			fs.mu.Lock()
			fs.prompts = append(fs.prompts, req.Prompt)
			fs.mu.Unlock()
			w.WriteHeader(status)
			io.WriteString(w, body)
		case "/api/version":
			w.WriteHeader(status)
			io.WriteString(w, `{"version":"0.5.1"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) lastPrompt() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.prompts) == 0 {
		return ""
	}
	return fs.prompts[len(fs.prompts)-1]
}

// =============================================================================
// FLAGS
// =============================================================================

func TestApplyFlags_OnlyExplicitFlags(t *testing.T) {
	var opts Options
	p := flags.NewParser(&opts, flags.HelpFlag)
	_, err := p.ParseArgs([]string{"--temperature", "0.3", "-m", "tiny", "--system", ""})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.Endpoint = "http://from-file:11434"
	applyFlags(p, &opts, cfg)

	assert.Equal(t, 0.3, cfg.Generation.Temperature)
	assert.Equal(t, "tiny", cfg.Generation.Model)
	assert.Equal(t, "", cfg.Generation.SystemPrompt, "an explicit empty flag disables the system prompt")
	assert.Equal(t, "http://from-file:11434", cfg.Server.Endpoint)
	assert.Equal(t, config.Default().Generation.MaxTokens, cfg.Generation.MaxTokens)
	assert.Equal(t, config.Default().Generation.TopP, cfg.Generation.TopP)
}

func TestRun_Version(t *testing.T) {
	ta := newTestApp(t, "")
	assert.Equal(t, ExitSuccess, ta.run("--version"))
	assert.Contains(t, ta.stdout.String(), "colab-llm "+Version)
}

func TestRun_Help(t *testing.T) {
	ta := newTestApp(t, "")
	assert.Equal(t, ExitSuccess, ta.run("--help"))
	assert.Contains(t, ta.stdout.String(), "Usage:")
	assert.Contains(t, ta.stdout.String(), "ask")
}

func TestRun_UnknownFlag(t *testing.T) {
	ta := newTestApp(t, "")
	assert.Equal(t, ExitUsageError, ta.run("--bogus"))
	assert.Contains(t, ta.stderr.String(), "unknown flag")
}

func TestRun_OutOfRangeFlag(t *testing.T) {
	ta := newTestApp(t, "")
	assert.Equal(t, ExitUsageError, ta.run("--temperature", "5", "ask", "hi"))
	assert.Contains(t, ta.stderr.String(), "invalid options")
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_Success(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"response":"Hello **world**","eval_count":4}`)
	ta := newTestApp(t, "")

	code := ta.run("-e", srv.URL, "ask", "hi", "there")

	require.Equal(t, ExitSuccess, code, ta.stderr.String())
	assert.Equal(t, "Hello **world**\n", ta.stdout.String(), "piped output is never rendered")
	assert.Contains(t, ta.stderr.String(), "Generated 4 tokens in ")
	assert.True(t, strings.HasSuffix(srv.lastPrompt(), "User: hi there\n\nAssistant: "))
	assert.True(t, strings.HasPrefix(srv.lastPrompt(), chat.DefaultSystemPrompt+"\n\n"))
}

func TestAsk_ReadsStdin(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"response":"ok"}`)
	ta := newTestApp(t, "piped question")

	require.Equal(t, ExitSuccess, ta.run("-e", srv.URL, "--system", "", "ask"))
	assert.Equal(t, "User: piped question\n\nAssistant: ", srv.lastPrompt())
}

func TestAsk_JSON(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"response":"hello","eval_count":10}`)
	ta := newTestApp(t, "")

	require.Equal(t, ExitSuccess, ta.run("--json", "-e", srv.URL, "-m", "tiny", "ask", "hi"))

	var resp struct {
		Success bool      `json:"success"`
		Error   *string   `json:"error"`
		Command string    `json:"command"`
		Data    AskResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "ask", resp.Command)
	assert.Equal(t, "hello", resp.Data.Reply)
	assert.Equal(t, "tiny", resp.Data.Model)
	assert.Equal(t, 10, resp.Data.Tokens)
	assert.Equal(t, "success", resp.Data.Outcome)
}

func TestAsk_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		endpoint string
		wantCode int
		wantErr  string
	}{
		{
			name:     "invalid endpoint",
			endpoint: "ftp://example.com",
			wantCode: ExitUsageError,
			wantErr:  chat.MsgInvalidEndpoint,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			wantCode: ExitServerError,
			wantErr:  "API returned status code 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := tt.endpoint
			var srv *fakeServer
			if endpoint == "" {
				srv = newFakeServer(t, tt.status, `{"error":"boom"}`)
				endpoint = srv.URL
			}
			ta := newTestApp(t, "")

			assert.Equal(t, tt.wantCode, ta.run("-e", endpoint, "ask", "hi"))
			assert.Contains(t, ta.stderr.String(), tt.wantErr)
			assert.Empty(t, ta.stdout.String())
			assert.NotContains(t, ta.stderr.String(), "[ERROR]", "failures are reported once")
		})
	}
}

func TestAsk_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ta := newTestApp(t, "")
	assert.Equal(t, ExitNetworkError, ta.run("-e", url, "ask", "hi"))
	assert.Contains(t, ta.stderr.String(), chat.MsgConnection)
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatus_Reachable(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "")
	ta := newTestApp(t, "")

	require.Equal(t, ExitSuccess, ta.run("-e", srv.URL, "status"))
	assert.Contains(t, ta.stdout.String(), "API is reachable (Ollama version: 0.5.1)")
	assert.Contains(t, ta.stdout.String(), srv.URL)
}

func TestStatus_Unset(t *testing.T) {
	ta := newTestApp(t, "")

	assert.Equal(t, ExitConfigError, ta.run("status"))
	assert.Contains(t, ta.stdout.String(), "API URL not set")
	assert.Contains(t, ta.stdout.String(), "(not set)")
}

func TestStatus_DegradedJSON(t *testing.T) {
	srv := newFakeServer(t, http.StatusServiceUnavailable, "")
	ta := newTestApp(t, "")

	assert.Equal(t, ExitServerError, ta.run("--json", "-e", srv.URL, "status"))

	var resp struct {
		Success bool         `json:"success"`
		Error   *string      `json:"error"`
		Data    StatusResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "503")
	assert.Equal(t, "degraded", resp.Data.State)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Data.StatusCode)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_InitPathShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	ta := newTestApp(t, "")
	require.Equal(t, ExitSuccess, ta.run("-c", path, "config", "init"))
	assert.Contains(t, ta.stdout.String(), "Wrote "+path)
	assert.FileExists(t, path)

	ta = newTestApp(t, "")
	assert.Equal(t, ExitConfigError, ta.run("-c", path, "config", "init"))
	assert.Contains(t, ta.stderr.String(), "already exists")

	ta = newTestApp(t, "")
	assert.Equal(t, ExitSuccess, ta.run("-c", path, "config", "init", "--force"))

	ta = newTestApp(t, "")
	require.Equal(t, ExitSuccess, ta.run("-c", path, "config", "path"))
	assert.Equal(t, path+"\n", ta.stdout.String())

	ta = newTestApp(t, "")
	require.Equal(t, ExitSuccess, ta.run("-c", path, "-m", "flag-model", "config", "show"))
	assert.Contains(t, ta.stdout.String(), `model = "flag-model"`)
}

func TestConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[generation]\ntemperature = 9.0\n"), 0600))

	ta := newTestApp(t, "")
	assert.Equal(t, ExitConfigError, ta.run("-c", path, "config", "show"))
	assert.Contains(t, ta.stderr.String(), "temperature")
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_PipedInputUsesREPL(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"response":"first reply","eval_count":3}`)
	ta := newTestApp(t, "hello\n\n/model other\n/quit\nnever sent\n")

	require.Equal(t, ExitSuccess, ta.run("-e", srv.URL, "chat"), ta.stderr.String())

	out := ta.stdout.String()
	assert.Contains(t, out, "first reply")
	assert.Contains(t, out, "Generated 3 tokens in ")
	assert.Contains(t, out, "Model set to other")
	assert.Equal(t, int32(1), srv.requests.Load())
}

func newTestREPL(t *testing.T, endpoint string) (*repl, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	settings := chat.DefaultSettings()
	settings.Endpoint = endpoint

	var out, errOut bytes.Buffer
	r := &repl{
		session:      chat.NewSession(settings),
		registry:     commands.NewRegistry(),
		renderer:     newMarkdownRenderer(false, "dark", 80),
		out:          &out,
		errOut:       &errOut,
		logger:       zap.NewNop(),
		clipboard:    func(string) error { return nil },
		exportDir:    t.TempDir(),
		exportFormat: "json",
	}
	return r, &out, &errOut
}

func TestREPL_HandleLine(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"response":"pong","eval_count":1}`)
	r, out, errOut := newTestREPL(t, srv.URL)
	ctx := context.Background()

	assert.False(t, r.handleLine(ctx, "   "))
	assert.Empty(t, out.String())

	assert.False(t, r.handleLine(ctx, "ping"))
	assert.Contains(t, out.String(), "pong\n")
	assert.Contains(t, out.String(), "Generated 1 tokens in ")
	assert.Len(t, r.session.History(), 2)

	assert.False(t, r.handleLine(ctx, "/bogus"))
	assert.Contains(t, errOut.String(), "unknown command /bogus")

	assert.False(t, r.handleLine(ctx, "/save"))
	assert.Contains(t, out.String(), "Conversation saved to ")

	assert.True(t, r.handleLine(ctx, "/quit"))
}

func TestREPL_BareExitWordsAreMessages(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"response":"bye","eval_count":1}`)
	r, _, _ := newTestREPL(t, srv.URL)
	ctx := context.Background()

	assert.False(t, r.handleLine(ctx, "exit"))
	assert.False(t, r.handleLine(ctx, "QUIT"))
	assert.Equal(t, int32(2), srv.requests.Load())

	history := r.session.History()
	require.Len(t, history, 4)
	assert.Equal(t, "exit", history[0].Content)
	assert.Equal(t, "QUIT", history[2].Content)

	assert.True(t, r.handleLine(ctx, "/exit"))
	assert.True(t, r.handleLine(ctx, "/q"))
}

func TestREPL_FailureOnStderr(t *testing.T) {
	r, out, errOut := newTestREPL(t, "")

	assert.False(t, r.handleLine(context.Background(), "hi"))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), chat.MsgInvalidEndpoint)
	assert.Empty(t, r.session.History())
}

func TestREPL_CanceledExchange(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"response":"late"}`)
	r, _, errOut := newTestREPL(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, r.handleLine(ctx, "hi"))
	assert.Contains(t, errOut.String(), "[Cancelled]")
	assert.Empty(t, r.session.History())
}

func TestREPL_ApplyReload(t *testing.T) {
	r, out, _ := newTestREPL(t, "")

	settings := r.session.Settings()
	settings.Model = "reloaded"
	r.applyReload(uichat.ConfigReloadedMsg{Settings: settings, ExportFormat: "md"})
	r.applyReload(uichat.ConfigReloadedMsg{Err: errors.New("bad toml")})

	assert.Equal(t, "reloaded", r.session.Settings().Model)
	assert.Equal(t, "md", r.exportFormat)
	assert.Empty(t, out.String(), "notices wait for the next line")

	r.handleLine(context.Background(), "")
	assert.Contains(t, out.String(), "Config reloaded.")
	assert.Contains(t, out.String(), "Config reload failed: bad toml")
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	timeout := &ollama.ClientError{Type: ollama.ErrTypeTimeout, Message: "request timed out"}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", &ExitError{Code: ExitServerError}, ExitServerError},
		{"config", config.ValidateErrors{{Field: "x", Message: "bad"}}, ExitConfigError},
		{"timeout", timeout, ExitTimeoutError},
		{"wrapped timeout", fmt.Errorf("ask: %w", timeout), ExitTimeoutError},
		{"connection", &ollama.ClientError{Type: ollama.ErrTypeConnection}, ExitNetworkError},
		{"status", &ollama.ClientError{Type: ollama.ErrTypeStatus, StatusCode: 502}, ExitServerError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestStatusExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, statusExitCode(chat.Status{State: chat.StateReachable}))
	assert.Equal(t, ExitConfigError, statusExitCode(chat.Status{State: chat.StateInvalid}))
	assert.Equal(t, ExitTimeoutError, statusExitCode(chat.Status{State: chat.StateUnreachable, TimedOut: true}))
	assert.Equal(t, ExitNetworkError, statusExitCode(chat.Status{State: chat.StateUnreachable}))
}
