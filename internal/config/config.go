// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete colab-llm configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Generation GenerationConfig `toml:"generation"`
	Export     ExportConfig     `toml:"export"`
	Logging    LoggingConfig    `toml:"logging"`
	UI         UIConfig         `toml:"ui"`
}

// ServerConfig describes the inference server.
type ServerConfig struct {
	// Endpoint is the server root, e.g. https://xxxx.ngrok-free.app.
	// Left empty by default; it is checked when a message is sent.
	Endpoint string `toml:"endpoint"`

	RequestTimeoutSecs int `toml:"request_timeout_secs" validate:"gte=1,lte=3600"`
	ProbeTimeoutSecs   int `toml:"probe_timeout_secs" validate:"gte=1,lte=60"`

	// StatusIntervalSecs throttles background status probes in the TUI.
	StatusIntervalSecs int `toml:"status_interval_secs" validate:"gte=1,lte=3600"`
}

// GenerationConfig holds the model and sampling defaults.
type GenerationConfig struct {
	Model        string  `toml:"model" validate:"required"`
	SystemPrompt string  `toml:"system_prompt"`
	Temperature  float64 `toml:"temperature" validate:"gte=0.1,lte=2"`
	TopP         float64 `toml:"top_p" validate:"gte=0.1,lte=1"`
	MaxTokens    int     `toml:"max_tokens" validate:"gte=100,lte=4096"`
}

// ExportConfig controls /save.
type ExportConfig struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format" validate:"oneof=json md"`
}

// LoggingConfig controls the rotating log file.
type LoggingConfig struct {
	Level      string `toml:"level" validate:"oneof=debug info warn error"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" validate:"gte=1,lte=1024"`
	MaxBackups int    `toml:"max_backups" validate:"gte=0,lte=100"`
	MaxAgeDays int    `toml:"max_age_days" validate:"gte=0,lte=365"`
}

// UIConfig contains terminal front end preferences.
type UIConfig struct {
	// Plain selects the line REPL instead of the full-screen TUI.
	Plain bool `toml:"plain"`

	// RenderMarkdown renders replies with glamour.
	RenderMarkdown bool `toml:"render_markdown"`

	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" validate:"oneof=dark light auto"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	settings := chat.DefaultSettings()
	return &Config{
		Server: ServerConfig{
			Endpoint:           settings.Endpoint,
			RequestTimeoutSecs: 120,
			ProbeTimeoutSecs:   5,
			StatusIntervalSecs: 15,
		},
		Generation: GenerationConfig{
			Model:        settings.Model,
			SystemPrompt: settings.SystemPrompt,
			Temperature:  settings.Temperature,
			TopP:         settings.TopP,
			MaxTokens:    settings.MaxTokens,
		},
		Export: ExportConfig{
			Dir:    "conversations",
			Format: "json",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		UI: UIConfig{
			RenderMarkdown: true,
			Theme:          "auto",
		},
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	// Server
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = defaults.Server.RequestTimeoutSecs
	}
	if cfg.Server.ProbeTimeoutSecs == 0 {
		cfg.Server.ProbeTimeoutSecs = defaults.Server.ProbeTimeoutSecs
	}
	if cfg.Server.StatusIntervalSecs == 0 {
		cfg.Server.StatusIntervalSecs = defaults.Server.StatusIntervalSecs
	}

	// Generation
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = defaults.Generation.Model
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = defaults.Generation.Temperature
	}
	if cfg.Generation.TopP == 0 {
		cfg.Generation.TopP = defaults.Generation.TopP
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = defaults.Generation.MaxTokens
	}

	// Export
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = defaults.Export.Dir
	}
	if cfg.Export.Format == "" {
		cfg.Export.Format = defaults.Export.Format
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the colab-llm configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".colab-llm"), nil
}

// Path returns the path to the default TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogPath returns the default log file location.
func LogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", "colab-llm.log"), nil
}

// HistoryPath returns where the line editor keeps its input history.
func HistoryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config file at path (the default path when empty), applies
// environment overrides and defaults, and validates the result. A missing
// file is not an error: the defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg. Keys the file does not mention keep
// whatever cfg already held. Unknown keys are rejected.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path as TOML, creating the directory if needed. The
// file is written atomically with owner-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Encode renders cfg as commented TOML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# colab-llm configuration file\n")
	buf.WriteString("# Environment variables (COLAB_LLM_*) and flags override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their TOML key so errors match what users edit.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors as
// ValidateErrors.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make(ValidateErrors, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return errs
}

// fieldPath drops the root struct name: "Config.generation.top_p" -> "generation.top_p".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s (got %v)", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s (got %v)", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s] (got %q)", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - COLAB_LLM_ENDPOINT: overrides server.endpoint
//   - COLAB_LLM_MODEL: overrides generation.model
//   - COLAB_LLM_SYSTEM_PROMPT: overrides generation.system_prompt
//   - COLAB_LLM_LOG_LEVEL: overrides logging.level
//   - COLAB_LLM_EXPORT_DIR: overrides export.dir
func (c *Config) ApplyEnvOverrides() {
	if endpoint := os.Getenv("COLAB_LLM_ENDPOINT"); endpoint != "" {
		c.Server.Endpoint = endpoint
	}
	if model := os.Getenv("COLAB_LLM_MODEL"); model != "" {
		c.Generation.Model = model
	}
	if prompt, ok := os.LookupEnv("COLAB_LLM_SYSTEM_PROMPT"); ok {
		c.Generation.SystemPrompt = prompt
	}
	if level := os.Getenv("COLAB_LLM_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if dir := os.Getenv("COLAB_LLM_EXPORT_DIR"); dir != "" {
		c.Export.Dir = dir
	}
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// ChatSettings returns the session settings described by the config.
func (c *Config) ChatSettings() chat.Settings {
	return chat.Settings{
		Params: chat.Params{
			Endpoint:    c.Server.Endpoint,
			Model:       c.Generation.Model,
			Temperature: c.Generation.Temperature,
			TopP:        c.Generation.TopP,
			MaxTokens:   c.Generation.MaxTokens,
		},
		SystemPrompt: c.Generation.SystemPrompt,
	}
}

// RequestTimeout returns the generate timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// ProbeTimeout returns the status probe timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Server.ProbeTimeoutSecs) * time.Second
}

// StatusInterval returns the minimum time between background probes.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Server.StatusIntervalSecs) * time.Second
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as TOML for display.
func (c *Config) String() string {
	data, err := Encode(c)
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(data)
}
