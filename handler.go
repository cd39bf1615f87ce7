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
	"log/slog"
	"strings"
	"sync"

	"github.com/devlogs-io/devlogs-go/internal/opensearch"
)

// ErrIndexNameMissing indicates that handler construction was attempted
// without an index name.
var ErrIndexNameMissing = errors.New("devlogs: index name is required")

// Handler is a [slog.Handler] that ships records to the devlogs index.
//
// Handle formats the record synchronously (so source location and operation
// context reflect the emit site) and enqueues the resulting document on the
// dispatcher; delivery happens on worker goroutines and its outcome feeds
// the circuit breaker. Handle never returns a delivery error: logging is
// strictly non-fatal to the host application.
type Handler struct {
	dispatcher *Dispatcher
	level      slog.Leveler
	loggerName string
	attrs      []slog.Attr
	groups     []string

	closeOnce *sync.Once
	closeErr  *error
}

// HandlerOption configures a [Handler].
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	level          slog.Leveler
	loggerName     string
	indexer        Indexer
	breaker        *CircuitBreaker
	metrics        *Metrics
	diag           *slog.Logger
	diagSet        bool
	dispatcherOpts []DispatcherOption
}

// WithLevel sets the minimum record level the handler accepts.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(o *handlerOptions) {
		o.level = level
	}
}

// WithLoggerName sets the logger_name recorded on every document.
func WithLoggerName(name string) HandlerOption {
	return func(o *handlerOptions) {
		o.loggerName = name
	}
}

// WithIndexer substitutes the backend client. Used by tests and by callers
// with a nonstandard transport.
func WithIndexer(indexer Indexer) HandlerOption {
	return func(o *handlerOptions) {
		o.indexer = indexer
	}
}

// WithCircuitBreaker shares an externally constructed breaker, for processes
// running several handlers against one backend.
func WithCircuitBreaker(cb *CircuitBreaker) HandlerOption {
	return func(o *handlerOptions) {
		o.breaker = cb
	}
}

// WithMetrics attaches dispatch outcome counters.
func WithMetrics(m *Metrics) HandlerOption {
	return func(o *handlerOptions) {
		o.metrics = m
	}
}

// WithDiagnosticLogger directs the library's own diagnostics (breaker state
// changes, throttled failure reports) to logger. It must not route back
// through a devlogs handler.
func WithDiagnosticLogger(logger *slog.Logger) HandlerOption {
	return func(o *handlerOptions) {
		o.diag = logger
		o.diagSet = true
	}
}

// WithDispatcherOptions forwards options to the dispatcher the handler
// constructs, overriding the Config-derived queue and worker settings.
func WithDispatcherOptions(opts ...DispatcherOption) HandlerOption {
	return func(o *handlerOptions) {
		o.dispatcherOpts = append(o.dispatcherOpts, opts...)
	}
}

// NewHandler creates a devlogs handler from cfg. A nil cfg uses
// [DefaultConfig]. Construction validates the backend coordinates (config
// errors are the one class surfaced synchronously); everything at logging
// time is absorbed.
func NewHandler(cfg *Config, opts ...HandlerOption) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	o := handlerOptions{
		level:      slog.LevelDebug,
		loggerName: "devlogs",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.indexer == nil && strings.TrimSpace(cfg.Index) == "" {
		return nil, ErrIndexNameMissing
	}

	if cfg.Area != "" {
		SetDefaultArea(cfg.Area)
	}

	breaker := o.breaker
	if breaker == nil {
		breakerOpts := []BreakerOption{
			WithFailureThreshold(cfg.BreakerThreshold),
			WithOpenTimeout(cfg.BreakerTimeout),
			WithDiagnosticInterval(cfg.ErrorPrintInterval),
		}
		if o.diagSet {
			breakerOpts = append(breakerOpts, WithBreakerDiagnostics(o.diag))
		}
		breaker = NewCircuitBreaker(breakerOpts...)
	}

	indexer := o.indexer
	if indexer == nil {
		indexer = opensearch.New(opensearch.Config{
			BaseURL:   cfg.BaseURL(),
			Username:  cfg.User,
			Password:  cfg.Password,
			Index:     cfg.Index,
			Timeout:   cfg.Timeout,
			UserAgent: UserAgent,
		})
	}

	dispatcherOpts := []DispatcherOption{
		WithQueueSize(cfg.QueueSize),
		WithWorkerCount(cfg.WorkerCount),
		WithFlushTimeout(cfg.FlushTimeout),
		WithDispatchMetrics(o.metrics),
	}
	dispatcherOpts = append(dispatcherOpts, o.dispatcherOpts...)

	var closeErr error
	return &Handler{
		dispatcher: NewDispatcher(indexer, breaker, dispatcherOpts...),
		level:      o.level,
		loggerName: o.loggerName,
		closeOnce:  &sync.Once{},
		closeErr:   &closeErr,
	}, nil
}

// Enabled reports whether the handler accepts records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats the record and hands it to the dispatcher. It returns nil
// even when the document is dropped: breaker-open and queue-full conditions
// are operational states, not caller errors. The dispatcher owns the breaker
// gate so every drop is counted with its reason.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	doc := FormatLogDocument(ctx, r, h.loggerName, h.attrs, h.groups)
	h.dispatcher.Dispatch(doc)
	return nil
}

// WithAttrs returns a handler whose documents carry the additional
// attributes as features. The attributes are qualified with the handler's
// open groups at call time, matching slog semantics.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	clone.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(clone.attrs, h.attrs)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup returns a handler that prefixes subsequent attribute keys with
// name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = make([]string, len(h.groups)+1)
	copy(clone.groups, h.groups)
	clone.groups[len(h.groups)] = name
	return &clone
}

// Close drains the dispatcher, waiting up to the configured flush timeout
// for in-flight documents. Idempotent; handlers derived via WithAttrs or
// WithGroup share the dispatcher, so closing any of them closes all.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() {
		*h.closeErr = h.dispatcher.Close()
	})
	return *h.closeErr
}
