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
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the dispatch queue capacity used when none is
// configured.
const DefaultQueueSize = 1024

// ErrFlushTimeout indicates Close returned before the queue was fully
// drained.
var ErrFlushTimeout = errors.New("devlogs: flush timeout")

// Indexer delivers one document to the search backend. Implementations must
// be safe for concurrent use; the error returned is consumed by the circuit
// breaker, never surfaced to the logging caller.
type Indexer interface {
	Index(ctx context.Context, doc any) error
}

// DropMode controls dispatcher behaviour when the queue is full.
type DropMode int

const (
	// DropModeDropNewest drops the incoming document when the queue is
	// full. This is the default: a logging call never blocks on a slow
	// backend.
	DropModeDropNewest DropMode = iota
	// DropModeDropOldest evicts the oldest queued document to make room.
	DropModeDropOldest
	// DropModeBlock blocks the caller until queue space is available.
	DropModeBlock
)

// Dispatcher moves formatted documents to the backend through a bounded
// queue and a small worker pool, keeping delivery off the logging call path.
// Each worker reports its outcome to the shared circuit breaker; when the
// breaker is open, Dispatch drops documents without touching the queue.
type Dispatcher struct {
	indexer  Indexer
	breaker  *CircuitBreaker
	metrics  *Metrics
	dropMode DropMode
	onDrop   func(*LogDocument)

	queue        chan *LogDocument
	wg           sync.WaitGroup
	closed       atomic.Bool
	closeOnce    sync.Once
	closeErr     error
	flushTimeout time.Duration
}

// DispatcherOption configures a [Dispatcher].
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	queueSize    int
	workerCount  int
	dropMode     DropMode
	metrics      *Metrics
	onDrop       func(*LogDocument)
	flushTimeout time.Duration
}

// WithQueueSize sets the pending-document queue capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if n > 0 {
			cfg.queueSize = n
		}
	}
}

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(n int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if n > 0 {
			cfg.workerCount = n
		}
	}
}

// WithDropMode sets the queue overflow strategy.
func WithDropMode(mode DropMode) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		cfg.dropMode = mode
	}
}

// WithDispatchMetrics attaches outcome counters to the dispatcher.
func WithDispatchMetrics(m *Metrics) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		cfg.metrics = m
	}
}

// WithOnDrop registers a callback observing dropped documents.
func WithOnDrop(fn func(*LogDocument)) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		cfg.onDrop = fn
	}
}

// WithFlushTimeout limits how long Close waits for the queue to drain.
// Zero means wait indefinitely.
func WithFlushTimeout(d time.Duration) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		cfg.flushTimeout = d
	}
}

// NewDispatcher starts the worker pool and returns a ready dispatcher.
// A nil breaker gets a default one, so dispatchers are always gated.
func NewDispatcher(indexer Indexer, breaker *CircuitBreaker, opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{
		queueSize:   DefaultQueueSize,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if breaker == nil {
		breaker = NewCircuitBreaker()
	}

	d := &Dispatcher{
		indexer:      indexer,
		breaker:      breaker,
		metrics:      cfg.metrics,
		dropMode:     cfg.dropMode,
		onDrop:       cfg.onDrop,
		queue:        make(chan *LogDocument, cfg.queueSize),
		flushTimeout: cfg.flushTimeout,
	}

	d.wg.Add(cfg.workerCount)
	for range cfg.workerCount {
		go d.worker()
	}
	return d
}

// Dispatch hands a document to the worker pool. It returns immediately: when
// the breaker is open or the dispatcher is closed the document is silently
// dropped, and under the default drop mode a full queue drops it as well.
// Dispatch never returns an error and never panics.
func (d *Dispatcher) Dispatch(doc *LogDocument) {
	if doc == nil {
		return
	}
	if d.closed.Load() {
		d.drop(doc, dropReasonClosed)
		return
	}
	if d.breaker.IsOpen() {
		d.drop(doc, dropReasonBreakerOpen)
		return
	}

	d.metrics.incDispatched()
	d.enqueue(doc)
}

// Breaker returns the circuit breaker gating this dispatcher.
func (d *Dispatcher) Breaker() *CircuitBreaker {
	return d.breaker
}

// Close stops accepting documents and waits for queued ones to be delivered,
// up to the configured flush timeout. It is idempotent; documents dispatched
// after Close are dropped.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		if d.closed.CompareAndSwap(false, true) {
			close(d.queue)
		}

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		if d.flushTimeout > 0 {
			select {
			case <-done:
			case <-time.After(d.flushTimeout):
				d.closeErr = ErrFlushTimeout
			}
		} else {
			<-done
		}
	})
	return d.closeErr
}

// enqueue routes a document into the queue respecting the drop mode. A send
// on the closed queue is recovered and counted as a drop rather than allowed
// to escape into the logging call.
func (d *Dispatcher) enqueue(doc *LogDocument) {
	defer func() {
		if recover() != nil {
			d.drop(doc, dropReasonClosed)
		}
	}()

	switch d.dropMode {
	case DropModeDropOldest:
		select {
		case d.queue <- doc:
		default:
			var evicted *LogDocument
			select {
			case evicted = <-d.queue:
			default:
			}
			if evicted != nil {
				d.drop(evicted, dropReasonQueueFull)
			}
			select {
			case d.queue <- doc:
			default:
				d.drop(doc, dropReasonQueueFull)
			}
		}
	case DropModeBlock:
		d.queue <- doc
	default:
		select {
		case d.queue <- doc:
		default:
			d.drop(doc, dropReasonQueueFull)
		}
	}
}

// worker delivers queued documents and feeds outcomes into the breaker.
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for doc := range d.queue {
		d.deliver(doc)
	}
}

// deliver sends one document, absorbing indexer panics as failures.
func (d *Dispatcher) deliver(doc *LogDocument) {
	defer func() {
		if r := recover(); r != nil {
			d.breaker.RecordFailure(errors.New("devlogs: indexer panicked"))
			d.metrics.incFailed()
		}
	}()

	if err := d.indexer.Index(context.Background(), doc); err != nil {
		d.breaker.RecordFailure(err)
		d.metrics.incFailed()
		return
	}
	d.breaker.RecordSuccess()
	d.metrics.incIndexed()
}

// drop records a dropped document in metrics and the optional callback.
func (d *Dispatcher) drop(doc *LogDocument, reason string) {
	d.metrics.incDropped(reason)
	if d.onDrop != nil {
		d.onDrop(doc)
	}
}
