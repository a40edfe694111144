// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// maxErrorBody bounds how much of a non-200 body is kept for diagnostics.
const maxErrorBody = 4 << 10

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int    // set for ErrTypeStatus
	Detail     string // error body returned by the server, if any
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeTimeout
	ErrTypeConnection
	ErrTypeStatus
	ErrTypeInvalidResponse
	ErrTypeCanceled
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeStatus:
		return "status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrConnection = &ClientError{Type: ErrTypeConnection, Message: "connection failed"}
	ErrNoBaseURL  = errors.New("ollama: base URL is not set")
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Default timeouts for the two endpoints the client talks to.
const (
	DefaultGenerateTimeout = 120 * time.Second
	DefaultProbeTimeout    = 5 * time.Second
)

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the server root, e.g. http://127.0.0.1:11434. Trailing
	// slashes are ignored. There is no default: the user supplies it.
	BaseURL string

	// GenerateTimeout bounds a whole /api/generate exchange (default: 120s)
	GenerateTimeout time.Duration

	// ProbeTimeout bounds a /api/version check (default: 5s)
	ProbeTimeout time.Duration

	// HTTPClient overrides the transport. Its own Timeout is left alone;
	// deadlines come from the per-call contexts.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		GenerateTimeout: DefaultGenerateTimeout,
		ProbeTimeout:    DefaultProbeTimeout,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use. It performs exactly one HTTP
// request per call and never retries.
//
// Example:
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: "http://127.0.0.1:11434"})
//	resp, err := client.Generate(ctx, ollama.NewGenerateRequest(model, prompt, opts))
//	if ollama.IsTimeout(err) {
//	    ...
//	}
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a client for baseURL with default timeouts.
func NewClient(baseURL string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.GenerateTimeout <= 0 {
		config.GenerateTimeout = DefaultGenerateTimeout
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultProbeTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// WithBaseURL returns a client that shares this client's transport and
// timeouts but targets a different server.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cfg := *c.config
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return &Client{config: &cfg, httpClient: c.httpClient}
}

// BaseURL returns the server root this client targets.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate sends a single non-streaming request to /api/generate and waits
// for the full reply, bounded by GenerateTimeout.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if c.config.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.GenerateTimeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if cerr := contextError(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &result, nil
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Version queries /api/version, bounded by ProbeTimeout. It has no side
// effects on the server.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	if c.config.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/version", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result VersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if cerr := contextError(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &result, nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// classifyTransportError maps a failed round trip onto the client's error
// taxonomy. Timeouts win over everything else, then refused or unresolvable
// connections and failed TLS handshakes. Whatever remains is ErrTypeUnknown.
func classifyTransportError(ctx context.Context, err error) error {
	if cerr := contextError(ctx); cerr != nil {
		cerr.Cause = err
		return cerr
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return &ClientError{Type: ErrTypeConnection, Message: ErrConnection.Message, Cause: err}
	}

	if isTLSError(err) {
		return &ClientError{Type: ErrTypeConnection, Message: "TLS handshake failed", Cause: err}
	}

	return &ClientError{Type: ErrTypeUnknown, Message: "request failed", Cause: err}
}

// isTLSError reports whether err comes from certificate verification or from
// a peer that does not speak TLS.
func isTLSError(err error) bool {
	if errors.Is(err, http.ErrSchemeMismatch) {
		return true
	}
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		recordErr    tls.RecordHeaderError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &recordErr)
}

// contextError reports why ctx ended, or nil if it is still live.
func contextError(ctx context.Context) *ClientError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: ctx.Err()}
	case errors.Is(ctx.Err(), context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: ctx.Err()}
	}
	return nil
}

func statusError(resp *http.Response) *ClientError {
	cerr := &ClientError{
		Type:       ErrTypeStatus,
		Message:    fmt.Sprintf("API returned status code %d", resp.StatusCode),
		StatusCode: resp.StatusCode,
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr APIError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
		cerr.Detail = apiErr.Error
	} else {
		cerr.Detail = strings.TrimSpace(string(raw))
	}
	return cerr
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// ErrorTypeOf returns the ErrorType carried by err, or ErrTypeUnknown.
func ErrorTypeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return ErrorTypeOf(err) == ErrTypeTimeout
}

// IsConnection checks if an error indicates the server could not be reached.
func IsConnection(err error) bool {
	return ErrorTypeOf(err) == ErrTypeConnection
}

// IsCanceled checks if the caller canceled the request.
func IsCanceled(err error) bool {
	return ErrorTypeOf(err) == ErrTypeCanceled
}

// StatusCode returns the HTTP status carried by a status error, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrTypeStatus {
		return clientErr.StatusCode
	}
	return 0
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxErrorBody))
	r.Close()
}
