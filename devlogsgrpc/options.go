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

package devlogsgrpc

import (
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type config struct {
	metadataKey    string
	area           string
	enableOTel     bool
	tracerProvider trace.TracerProvider
	propagators    propagation.TextMapPropagator
}

// Option configures the interceptors.
type Option func(*config)

// WithMetadataKey changes the metadata key consulted for (and injected with)
// the operation id. Default: x-operation-id.
func WithMetadataKey(key string) Option {
	return func(cfg *config) {
		if key != "" {
			cfg.metadataKey = key
		}
	}
}

// WithArea sets the area recorded on scopes the interceptors open. When
// unset, the RPC's service name is used.
func WithArea(area string) Option {
	return func(cfg *config) {
		cfg.area = area
	}
}

// WithOTel installs otelgrpc stats handlers alongside the interceptors so
// RPCs also carry a span context.
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
		metadataKey: DefaultMetadataKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}
