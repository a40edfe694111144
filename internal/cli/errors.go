// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/LaansDole/colab-llm/internal/chat"
	"github.com/LaansDole/colab-llm/internal/config"
	"github.com/LaansDole/colab-llm/internal/ollama"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the server could not be reached
	ExitNetworkError = 5
	// ExitServerError indicates the server answered with a non-200 status
	ExitServerError = 6
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ExitError carries a specific exit code. Silent errors have already been
// reported to the user and are not printed again.
type ExitError struct {
	Code   int
	Err    error
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var cfgErr config.ValidateErrors
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}

	switch {
	case ollama.IsTimeout(err):
		return ExitTimeoutError
	case ollama.IsConnection(err):
		return ExitNetworkError
	case ollama.StatusCode(err) != 0:
		return ExitServerError
	}
	return ExitGeneralError
}

// outcomeExitCode maps an exchange outcome onto an exit code.
func outcomeExitCode(o chat.Outcome) int {
	switch o {
	case chat.OutcomeSuccess:
		return ExitSuccess
	case chat.OutcomeValidation:
		return ExitUsageError
	case chat.OutcomeServerError:
		return ExitServerError
	case chat.OutcomeTimeout:
		return ExitTimeoutError
	case chat.OutcomeConnection:
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// statusExitCode maps a probe state onto an exit code.
func statusExitCode(st chat.Status) int {
	switch st.State {
	case chat.StateReachable:
		return ExitSuccess
	case chat.StateUnset, chat.StateInvalid:
		return ExitConfigError
	case chat.StateDegraded:
		return ExitServerError
	case chat.StateUnreachable:
		if st.TimedOut {
			return ExitTimeoutError
		}
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
