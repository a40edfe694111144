// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaansDole/colab-llm/internal/chat"
)

var envKeys = []string{
	"COLAB_LLM_ENDPOINT",
	"COLAB_LLM_MODEL",
	"COLAB_LLM_SYSTEM_PROMPT",
	"COLAB_LLM_LOG_LEVEL",
	"COLAB_LLM_EXPORT_DIR",
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Empty(t, cfg.Server.Endpoint)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, chat.DefaultModel, cfg.Generation.Model)
	assert.Equal(t, chat.DefaultSystemPrompt, cfg.Generation.SystemPrompt)
	assert.Equal(t, "conversations", cfg.Export.Dir)
	assert.Equal(t, "json", cfg.Export.Format)
	assert.NoError(t, cfg.Validate())
}

func TestDefault_MatchesChatSettings(t *testing.T) {
	assert.Equal(t, chat.DefaultSettings(), Default().ChatSettings())
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
endpoint = "https://abc.ngrok-free.app"

[generation]
temperature = 1.2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://abc.ngrok-free.app", cfg.Server.Endpoint)
	assert.Equal(t, 1.2, cfg.Generation.Temperature)
	assert.Equal(t, chat.DefaultModel, cfg.Generation.Model)
	assert.Equal(t, chat.DefaultSystemPrompt, cfg.Generation.SystemPrompt)
	assert.Equal(t, 2048, cfg.Generation.MaxTokens)
	assert.True(t, cfg.UI.RenderMarkdown)
}

func TestLoad_EmptySystemPromptIsKept(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[generation]\nsystem_prompt = \"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Generation.SystemPrompt)
}

func TestLoad_UnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[generation]\ntemprature = 0.5\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation.temprature")
}

func TestLoad_BadSyntax(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server\nendpoint=")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_OutOfRange(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[generation]\ntop_p = 1.5\nmax_tokens = 50\n")

	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"generation.top_p", "generation.max_tokens"}, fields)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("COLAB_LLM_ENDPOINT", "http://gpu-box:11434")
	t.Setenv("COLAB_LLM_MODEL", "llama3:8b")
	t.Setenv("COLAB_LLM_SYSTEM_PROMPT", "")
	t.Setenv("COLAB_LLM_LOG_LEVEL", "DEBUG")
	t.Setenv("COLAB_LLM_EXPORT_DIR", "/tmp/exports")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://gpu-box:11434", cfg.Server.Endpoint)
	assert.Equal(t, "llama3:8b", cfg.Generation.Model)
	assert.Empty(t, cfg.Generation.SystemPrompt, "a set but empty prompt disables it")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/exports", cfg.Export.Dir)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("COLAB_LLM_MODEL", "from-env")
	path := writeConfig(t, "[generation]\nmodel = \"from-file\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Generation.Model)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"temperature", func(c *Config) { c.Generation.Temperature = 3 }, "generation.temperature"},
		{"model", func(c *Config) { c.Generation.Model = "" }, "generation.model"},
		{"export format", func(c *Config) { c.Export.Format = "pdf" }, "export.format"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"probe timeout", func(c *Config) { c.Server.ProbeTimeoutSecs = 600 }, "server.probe_timeout_secs"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())

	errs := ValidateErrors{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}
	assert.Equal(t, "a: bad; b: worse", errs.Error())
}

// =============================================================================
// SAVE
// =============================================================================

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Server.Endpoint = "http://localhost:11434"
	cfg.Generation.SystemPrompt = "Multi\nline \"prompt\""
	cfg.UI.Plain = true
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEncode_HasHeader(t *testing.T) {
	data, err := Encode(Default())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# colab-llm configuration file"))
	assert.Contains(t, string(data), "[generation]")
}

func TestClone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Generation.Model = "changed"
	assert.Equal(t, chat.DefaultModel, cfg.Generation.Model)
}
