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

package devlogshttp

import (
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type config struct {
	header         string
	area           string
	echoHeader     bool
	enableOTel     bool
	tracerProvider trace.TracerProvider
	propagators    propagation.TextMapPropagator
}

// Option configures the middleware.
type Option func(*config)

// WithOperationHeader changes the header consulted for (and echoed with) the
// operation id. Default: X-Operation-Id.
func WithOperationHeader(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.header = name
		}
	}
}

// WithArea sets the area recorded on scopes the middleware opens.
func WithArea(area string) Option {
	return func(cfg *config) {
		cfg.area = area
	}
}

// WithEchoHeader controls whether the resolved operation id is written back
// on the response. Enabled by default so clients can correlate generated
// ids.
func WithEchoHeader(echo bool) Option {
	return func(cfg *config) {
		cfg.echoHeader = echo
	}
}

// WithOTel wraps the middleware in otelhttp instrumentation so requests also
// carry a span context, which the formatter records as trace features.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithTracerProvider sets the tracer provider used when otel instrumentation
// is enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithPropagators sets the propagators used when otel instrumentation is
// enabled.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
	}
}

// applyOptions resolves options over defaults.
func applyOptions(opts []Option) *config {
	cfg := &config{
		header:     DefaultOperationHeader,
		echoHeader: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}
