// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"time"
)

// User-facing guidance and error texts.
const (
	MsgEmptyMessage    = "Please enter a message."
	MsgInvalidEndpoint = "Please enter a valid API URL starting with http:// or https://."
	MsgTimeout         = "⏱️ Request timed out. The model might be taking too long to respond."
	MsgConnection      = "🔌 Connection error. Please check if the API URL is correct and the service is running."
)

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome classifies how an exchange ended.
type Outcome int

const (
	OutcomeSuccess     Outcome = iota
	OutcomeValidation          // empty message or malformed endpoint, nothing sent
	OutcomeServerError         // non-200 status
	OutcomeTimeout
	OutcomeConnection
	OutcomeError // anything else, including cancellation
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidation:
		return "validation"
	case OutcomeServerError:
		return "server_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeConnection:
		return "connection"
	default:
		return "error"
	}
}

// =============================================================================
// REPLY
// =============================================================================

// Reply is what an exchange hands back to the shell.
//
// Text is always non-empty. Metrics is empty unless Outcome is
// OutcomeSuccess.
type Reply struct {
	Text       string
	Metrics    string
	Outcome    Outcome
	StatusCode int
	Tokens     int
	Elapsed    time.Duration
	Err        error
}

// OK returns true if the exchange succeeded and the transcript grew.
func (r Reply) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// FormatMetrics renders the throughput line shown under a reply. The rate
// is reported as 0 when elapsed is not positive.
func FormatMetrics(tokens int, elapsed time.Duration) string {
	seconds := elapsed.Seconds()
	rate := 0.0
	if seconds > 0 {
		rate = float64(tokens) / seconds
	}
	return fmt.Sprintf("Generated %d tokens in %.2fs (%.1f tokens/s)", tokens, seconds, rate)
}

func statusMessage(code int) string {
	return fmt.Sprintf("⚠️ Error: API returned status code %d", code)
}

func errorMessage(err error) string {
	return fmt.Sprintf("❌ Error: %v", err)
}

func validationReply(text string) Reply {
	return Reply{Text: text, Outcome: OutcomeValidation}
}
