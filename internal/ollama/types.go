// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import "time"

// Defaults applied when the server omits an optional field.
const (
	DefaultResponseText = "No response generated."
	DefaultVersion      = "unknown"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Options contains the sampling parameters sent with every generation.
type Options struct {
	Temperature float64 `json:"temperature"` // 0.1-2.0
	TopP        float64 `json:"top_p"`       // 0.1-1.0
	NumPredict  int     `json:"num_predict"` // Max tokens to generate
}

// GenerateRequest is the request body for /api/generate endpoint.
// Stream is always false: the client waits for the complete reply.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// NewGenerateRequest builds a non-streaming generate request.
func NewGenerateRequest(model, prompt string, opts Options) *GenerateRequest {
	return &GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: &opts,
	}
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is the response from /api/generate endpoint.
//
// Response and EvalCount are pointers so a missing field can be told apart
// from an empty one. Use Text and Tokens to read them with defaults applied.
type GenerateResponse struct {
	Model              string    `json:"model,omitempty"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
	Response           *string   `json:"response,omitempty"`
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason,omitempty"`
	TotalDuration      int64     `json:"total_duration,omitempty"` // nanoseconds
	LoadDuration       int64     `json:"load_duration,omitempty"`  // nanoseconds
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"`
	EvalCount          *int      `json:"eval_count,omitempty"`
	EvalDuration       int64     `json:"eval_duration,omitempty"`
}

// Text returns the generated text, or DefaultResponseText when the server
// sent none.
func (r *GenerateResponse) Text() string {
	if r == nil || r.Response == nil {
		return DefaultResponseText
	}
	return *r.Response
}

// Tokens returns the number of generated tokens, or 0 when unreported.
func (r *GenerateResponse) Tokens() int {
	if r == nil || r.EvalCount == nil {
		return 0
	}
	return *r.EvalCount
}

// ServerTokensPerSecond returns the generation speed measured by the server
// itself. It is 0 when the server did not report eval timing.
func (r *GenerateResponse) ServerTokensPerSecond() float64 {
	if r == nil || r.EvalDuration <= 0 {
		return 0
	}
	seconds := float64(r.EvalDuration) / float64(time.Second)
	return float64(r.Tokens()) / seconds
}

// VersionResponse is the response from /api/version endpoint.
type VersionResponse struct {
	Version *string `json:"version,omitempty"`
}

// VersionString returns the reported version or DefaultVersion.
func (r *VersionResponse) VersionString() string {
	if r == nil || r.Version == nil {
		return DefaultVersion
	}
	return *r.Version
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// APIError is the error body some servers send with a non-200 status.
type APIError struct {
	Error string `json:"error"`
}
