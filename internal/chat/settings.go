// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// DEFAULTS AND RANGES
// =============================================================================

const (
	DefaultModel        = "maryasov/qwen2.5-coder-cline:7b-instruct-q8_0"
	DefaultSystemPrompt = "You are a helpful AI assistant."
	DefaultTemperature  = 0.7
	DefaultTopP         = 0.9
	DefaultMaxTokens    = 2048

	MinTemperature = 0.1
	MaxTemperature = 2.0
	MinTopP        = 0.1
	MaxTopP        = 1.0
	MinMaxTokens   = 100
	MaxMaxTokens   = 4096
)

var validate = validator.New()

// =============================================================================
// PARAMS
// =============================================================================

// Params are the per-request inputs of an exchange.
type Params struct {
	Endpoint    string
	Model       string  `validate:"required"`
	Temperature float64 `validate:"gte=0.1,lte=2"`
	TopP        float64 `validate:"gte=0.1,lte=1"`
	MaxTokens   int     `validate:"gte=100,lte=4096"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the session configuration. It lives for the process lifetime
// and is never persisted by the session itself.
type Settings struct {
	Params
	SystemPrompt string
}

// DefaultSettings returns the settings a new session starts with. The
// endpoint is left empty: the user has to supply one.
func DefaultSettings() Settings {
	return Settings{
		Params: Params{
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			TopP:        DefaultTopP,
			MaxTokens:   DefaultMaxTokens,
		},
		SystemPrompt: DefaultSystemPrompt,
	}
}

// Validate checks the sampling ranges and that a model is named. The
// endpoint is not checked here; an unusable endpoint is reported by the
// exchange itself so the user still gets guidance text.
func (s Settings) Validate() error {
	err := validate.Struct(s.Params)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, &SettingError{Field: settingName(fe.Field()), Reason: reasonFor(fe)})
	}
	return errors.Join(errs...)
}

// SettingError describes one out-of-range or missing setting.
type SettingError struct {
	Field  string
	Reason string
}

func (e *SettingError) Error() string {
	return e.Field + " " + e.Reason
}

// ValidEndpoint reports whether endpoint looks like an HTTP(S) URL. Only the
// scheme prefix is checked.
func ValidEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

// settingName maps a struct field to the name users type in /set.
func settingName(field string) string {
	switch field {
	case "Temperature":
		return "temperature"
	case "TopP":
		return "top_p"
	case "MaxTokens":
		return "max_tokens"
	case "Model":
		return "model"
	default:
		return strings.ToLower(field)
	}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "Temperature":
		return fmt.Sprintf("must be between %.1f and %.1f", MinTemperature, MaxTemperature)
	case "TopP":
		return fmt.Sprintf("must be between %.1f and %.1f", MinTopP, MaxTopP)
	case "MaxTokens":
		return fmt.Sprintf("must be between %d and %d", MinMaxTokens, MaxMaxTokens)
	}
	if fe.Tag() == "required" {
		return "is required"
	}
	return "is invalid (" + fe.Tag() + ")"
}
