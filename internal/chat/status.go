// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/LaansDole/colab-llm/internal/ollama"
)

// =============================================================================
// STATUS
// =============================================================================

// State is the health of the configured endpoint.
type State int

const (
	StateUnset       State = iota // no endpoint configured
	StateInvalid                  // endpoint fails URL validation
	StateReachable                // 200 from /api/version
	StateDegraded                 // any other status code
	StateUnreachable              // timeout or connection failure
	StateError                    // anything else
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateInvalid:
		return "invalid"
	case StateReachable:
		return "reachable"
	case StateDegraded:
		return "degraded"
	case StateUnreachable:
		return "unreachable"
	default:
		return "error"
	}
}

// Status is the result of one probe.
type Status struct {
	State      State
	Endpoint   string
	Version    string // set when reachable
	StatusCode int    // set when degraded
	TimedOut   bool   // distinguishes the two unreachable causes
	Err        error
	CheckedAt  time.Time
}

// Message renders the status the way the sidebar shows it.
func (s Status) Message() string {
	switch s.State {
	case StateUnset:
		return "⚠️ API URL not set"
	case StateInvalid:
		return "❌ Invalid API URL format"
	case StateReachable:
		return fmt.Sprintf("✅ API is reachable (Ollama version: %s)", s.Version)
	case StateDegraded:
		return fmt.Sprintf("⚠️ API returned status code %d", s.StatusCode)
	case StateUnreachable:
		if s.TimedOut {
			return "❌ API request timed out"
		}
		return "❌ API connection failed"
	default:
		return fmt.Sprintf("❌ API check failed: %v", s.Err)
	}
}

// OK returns true if the server answered with 200.
func (s Status) OK() bool {
	return s.State == StateReachable
}

// =============================================================================
// PROBER
// =============================================================================

// Prober checks /api/version. It never touches a transcript.
//
// Probe always performs a request. Poll is for render loops: it reuses the
// last status for the same endpoint until the limiter allows another probe.
type Prober struct {
	client  *ollama.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time

	// concurrent probes of one endpoint share a request
	group singleflight.Group

	mu   sync.Mutex
	last *Status
}

// NewProber creates a prober that polls at most once per interval. A nil
// client uses default timeouts; interval <= 0 disables throttling.
func NewProber(client *ollama.Client, interval time.Duration) *Prober {
	if client == nil {
		client = ollama.NewClientWithConfig(nil)
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Prober{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
}

// SetLogger attaches a logger.
func (p *Prober) SetLogger(l *zap.Logger) {
	if l != nil {
		p.logger = l
	}
}

// Probe checks endpoint now. Callers probing the same endpoint while a
// request is in flight get its result.
func (p *Prober) Probe(ctx context.Context, endpoint string) Status {
	v, _, _ := p.group.Do(endpoint, func() (any, error) {
		st := p.probe(ctx, endpoint)

		p.mu.Lock()
		p.last = &st
		p.mu.Unlock()

		return st, nil
	})
	return v.(Status)
}

// Poll returns the cached status for endpoint unless the throttle allows a
// fresh probe. A different endpoint is always probed immediately.
func (p *Prober) Poll(ctx context.Context, endpoint string) Status {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()

	allowed := p.limiter.Allow()
	if last != nil && last.Endpoint == endpoint && !allowed {
		return *last
	}
	return p.Probe(ctx, endpoint)
}

// Last returns the most recent status, if any.
func (p *Prober) Last() (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Status{}, false
	}
	return *p.last, true
}

func (p *Prober) probe(ctx context.Context, endpoint string) Status {
	st := Status{Endpoint: endpoint, CheckedAt: p.now()}

	if endpoint == "" {
		st.State = StateUnset
		return st
	}
	if !ValidEndpoint(endpoint) {
		st.State = StateInvalid
		return st
	}

	resp, err := p.client.WithBaseURL(endpoint).Version(ctx)
	switch {
	case err == nil:
		st.State = StateReachable
		st.Version = resp.VersionString()
	case ollama.StatusCode(err) != 0:
		st.State = StateDegraded
		st.StatusCode = ollama.StatusCode(err)
	case ollama.IsTimeout(err):
		st.State = StateUnreachable
		st.TimedOut = true
	case ollama.IsConnection(err):
		st.State = StateUnreachable
	default:
		st.State = StateError
	}
	st.Err = err

	p.logger.Debug("status probe",
		zap.String("endpoint", endpoint),
		zap.Stringer("state", st.State),
		zap.String("version", st.Version),
		zap.Error(err),
	)
	return st
}
