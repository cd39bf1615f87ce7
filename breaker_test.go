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
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(
		WithFailureThreshold(3),
		WithBreakerDiagnostics(nil),
	)
	errBackend := errors.New("connection refused")

	cb.RecordFailure(errBackend)
	cb.RecordFailure(errBackend)
	if cb.IsOpen() {
		t.Fatal("breaker opened below the failure threshold")
	}

	cb.RecordFailure(errBackend)
	if !cb.IsOpen() {
		t.Fatal("breaker still closed after threshold consecutive failures")
	}
}

func TestBreakerSuccessClosesAndResets(t *testing.T) {
	cb := NewCircuitBreaker(
		WithFailureThreshold(2),
		WithBreakerDiagnostics(nil),
	)
	errBackend := errors.New("boom")

	cb.RecordFailure(errBackend)
	cb.RecordFailure(errBackend)
	if !cb.IsOpen() {
		t.Fatal("breaker should be open")
	}

	cb.RecordSuccess()
	if cb.IsOpen() {
		t.Error("breaker still open after a recorded success")
	}
	if _, failures := cb.snapshot(); failures != 0 {
		t.Errorf("consecutive failures = %d after success, want 0", failures)
	}

	// A single new failure must not reopen the breaker.
	cb.RecordFailure(errBackend)
	if cb.IsOpen() {
		t.Error("breaker reopened on a single failure after reset")
	}
}

func TestBreakerLazyTimeoutClose(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(
		WithFailureThreshold(2),
		WithOpenTimeout(60*time.Second),
		WithBreakerDiagnostics(nil),
		withClock(clock.Now),
	)
	errBackend := errors.New("boom")

	cb.RecordFailure(errBackend)
	cb.RecordFailure(errBackend)
	if !cb.IsOpen() {
		t.Fatal("breaker should be open")
	}

	clock.Advance(59 * time.Second)
	if !cb.IsOpen() {
		t.Error("breaker closed before the open timeout elapsed")
	}

	clock.Advance(1 * time.Second)
	if cb.IsOpen() {
		t.Error("breaker still open after the timeout elapsed")
	}
	if _, failures := cb.snapshot(); failures != 0 {
		t.Errorf("consecutive failures = %d after lazy close, want 0", failures)
	}
}

func countDiagnostics(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "failed to index") +
		strings.Count(buf.String(), "pausing indexing")
}

func TestBreakerDiagnosticThrottle(t *testing.T) {
	t.Run("AtMostOnePerWindow", func(t *testing.T) {
		clock := newFakeClock()
		var buf bytes.Buffer
		diag := slog.New(slog.NewTextHandler(&buf, nil))
		cb := NewCircuitBreaker(
			WithFailureThreshold(3),
			WithDiagnosticInterval(10*time.Second),
			WithBreakerDiagnostics(diag),
			withClock(clock.Now),
		)
		errBackend := errors.New("boom")

		// Three immediate failures cross the threshold inside one window.
		// The open transition at failure three is throttled like any other
		// diagnostic.
		for range 3 {
			cb.RecordFailure(errBackend)
		}
		if !cb.IsOpen() {
			t.Fatal("breaker should be open")
		}
		if got := countDiagnostics(&buf); got != 1 {
			t.Errorf("emitted %d diagnostics within one window, want 1", got)
		}

		clock.Advance(10 * time.Second)
		cb.RecordFailure(errBackend)
		if got := countDiagnostics(&buf); got != 2 {
			t.Errorf("emitted %d diagnostics across two windows, want 2", got)
		}
	})

	t.Run("TransitionMessageInFreshWindow", func(t *testing.T) {
		clock := newFakeClock()
		var buf bytes.Buffer
		diag := slog.New(slog.NewTextHandler(&buf, nil))
		cb := NewCircuitBreaker(
			WithFailureThreshold(2),
			WithDiagnosticInterval(10*time.Second),
			WithBreakerDiagnostics(diag),
			withClock(clock.Now),
		)
		errBackend := errors.New("boom")

		cb.RecordFailure(errBackend)
		clock.Advance(10 * time.Second)
		cb.RecordFailure(errBackend)

		if got := strings.Count(buf.String(), "pausing indexing"); got != 1 {
			t.Errorf("open transition emitted %d announcements, want 1", got)
		}
		if got := countDiagnostics(&buf); got != 2 {
			t.Errorf("emitted %d diagnostics across two windows, want 2", got)
		}
	})
}

func TestBreakerNeverPanicsConcurrently(t *testing.T) {
	cb := NewCircuitBreaker(WithBreakerDiagnostics(nil))
	errBackend := errors.New("boom")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				switch i % 3 {
				case 0:
					cb.RecordFailure(errBackend)
				case 1:
					cb.RecordSuccess()
				default:
					cb.IsOpen()
				}
			}
		}()
	}
	wg.Wait()
}
