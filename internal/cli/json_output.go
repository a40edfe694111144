// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the response format of --json output.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is when the response was generated (RFC3339, UTC)
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponseStr creates an error JSON response that still carries
// data describing the failure.
func NewJSONErrorResponseStr(command string, errMsg string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Data:      data,
		Error:     &errMsg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write outputs the JSON response with indentation.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND PAYLOADS
// =============================================================================

// AskResult is the data of `ask --json`.
type AskResult struct {
	Model          string  `json:"model"`
	Reply          string  `json:"reply"`
	Metrics        string  `json:"metrics,omitempty"`
	Outcome        string  `json:"outcome"`
	Tokens         int     `json:"tokens"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	StatusCode     int     `json:"status_code,omitempty"`
}

// StatusResult is the data of `status --json`.
type StatusResult struct {
	Endpoint   string `json:"endpoint"`
	State      string `json:"state"`
	Message    string `json:"message"`
	Version    string `json:"version,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}
