// Copyright 2026 The devlogs Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package devlogs

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// Defaults for circuit breaker tuning. The failure threshold must stay above
// one so a single transient error cannot flap the breaker open.
const (
	DefaultFailureThreshold   = 3
	DefaultOpenTimeout        = 60 * time.Second
	DefaultDiagnosticInterval = 10 * time.Second
)

// CircuitBreaker pauses indexing attempts after repeated backend failures so
// a down index cannot cascade into the host application.
//
// The state machine is Closed -> Open -> Closed with no half-open probing:
// after the open timeout elapses the breaker simply closes again on the next
// check. It is an advisory gate; no method ever returns an error or panics.
// A single instance is shared by everything that dispatches to one backend,
// and all methods are safe for concurrent use.
type CircuitBreaker struct {
	mu             sync.Mutex
	open           bool
	openedAt       time.Time
	failures       int
	lastDiagnostic time.Time

	threshold    int
	timeout      time.Duration
	diagInterval time.Duration
	diag         *slog.Logger
	now          func() time.Time
}

// BreakerOption configures a [CircuitBreaker].
type BreakerOption func(*CircuitBreaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
// Values below two are clamped to two.
func WithFailureThreshold(n int) BreakerOption {
	return func(cb *CircuitBreaker) {
		if n < 2 {
			n = 2
		}
		cb.threshold = n
	}
}

// WithOpenTimeout sets how long the breaker stays open before delivery
// attempts resume.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) {
		if d > 0 {
			cb.timeout = d
		}
	}
}

// WithDiagnosticInterval sets the minimum spacing between emitted failure
// diagnostics.
func WithDiagnosticInterval(d time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) {
		if d > 0 {
			cb.diagInterval = d
		}
	}
}

// WithBreakerDiagnostics directs breaker diagnostics to logger. The logger
// must not route back through a devlogs handler; pass nil to silence
// diagnostics entirely.
func WithBreakerDiagnostics(logger *slog.Logger) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.diag = logger
	}
}

// withClock substitutes the time source. Test hook.
func withClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// NewCircuitBreaker returns a closed breaker with the supplied options
// applied over the defaults.
func NewCircuitBreaker(opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		threshold:    DefaultFailureThreshold,
		timeout:      DefaultOpenTimeout,
		diagInterval: DefaultDiagnosticInterval,
		diag:         slog.New(slog.NewTextHandler(os.Stderr, nil)),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cb)
		}
	}
	return cb
}

// IsOpen reports whether dispatch attempts should currently be suppressed.
// Checking may itself close the breaker once the open timeout has elapsed,
// so it takes the same lock as the mutators.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeCloseLocked(cb.now())
	return cb.open
}

// RecordFailure notes a failed delivery. After the configured number of
// consecutive failures the breaker opens. At most one diagnostic is emitted
// per diagnostic interval regardless of how many failures arrive, so a dead
// backend cannot provoke a log storm of its own.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.maybeCloseLocked(now)

	cb.failures++
	if !cb.open && cb.failures >= cb.threshold {
		cb.open = true
		cb.openedAt = now
		if cb.shouldEmitLocked(now) {
			cb.diag.Warn("devlogs: pausing indexing after repeated failures",
				slog.Int("consecutive_failures", cb.failures),
				slog.Duration("pause", cb.timeout),
				slog.Any("error", err),
			)
		}
		return
	}

	if cb.shouldEmitLocked(now) {
		cb.diag.Warn("devlogs: failed to index log document",
			slog.Int("consecutive_failures", cb.failures),
			slog.Any("error", err),
		)
	}
}

// RecordSuccess notes a successful delivery, closing the breaker from any
// state and resetting the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasOpen := cb.open
	cb.open = false
	cb.openedAt = time.Time{}
	cb.failures = 0
	if wasOpen && cb.diag != nil {
		cb.diag.Info("devlogs: connection restored, resuming indexing")
	}
}

// maybeCloseLocked performs the lazy Open -> Closed transition once the open
// timeout has elapsed. Callers must hold mu.
func (cb *CircuitBreaker) maybeCloseLocked(now time.Time) {
	if !cb.open {
		return
	}
	if now.Sub(cb.openedAt) >= cb.timeout {
		cb.open = false
		cb.openedAt = time.Time{}
		cb.failures = 0
	}
}

// shouldEmitLocked applies the diagnostic throttle. Callers must hold mu.
func (cb *CircuitBreaker) shouldEmitLocked(now time.Time) bool {
	if cb.diag == nil {
		return false
	}
	if !cb.lastDiagnostic.IsZero() && now.Sub(cb.lastDiagnostic) < cb.diagInterval {
		return false
	}
	cb.lastDiagnostic = now
	return true
}

// snapshot returns the current state under lock. Test hook.
func (cb *CircuitBreaker) snapshot() (open bool, failures int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open, cb.failures
}
