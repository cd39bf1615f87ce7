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

// Package devlogshttp seeds devlogs operation context at the edge of HTTP
// servers. Every request gets an operation scope for its lifetime, taken
// from the incoming operation-id header or freshly generated, so records
// logged anywhere in the handler chain correlate to the request.
package devlogshttp

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	devlogs "github.com/devlogs-io/devlogs-go"
)

const instrumentationName = "github.com/devlogs-io/devlogs-go/devlogshttp"

// DefaultOperationHeader is the request header consulted for a
// caller-supplied operation id.
const DefaultOperationHeader = "X-Operation-Id"

// Middleware returns an http.Handler middleware that opens an operation
// scope per request. The scope ends with the request on every exit path,
// including panics, because it lives on the request context.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}

		seeded := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operationID := strings.TrimSpace(r.Header.Get(cfg.header))
			if operationID == "" {
				operationID = uuid.NewString()
			}

			ctx := devlogs.WithOperation(r.Context(), operationID, cfg.area)
			if cfg.echoHeader {
				w.Header().Set(cfg.header, devlogs.OperationID(ctx))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})

		if !cfg.enableOTel {
			return seeded
		}
		return otelhttp.NewHandler(seeded, instrumentationName, otelOptions(cfg)...)
	}
}

// otelOptions builds otelhttp options from configuration.
func otelOptions(cfg *config) []otelhttp.Option {
	var opts []otelhttp.Option
	if cfg.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagators != nil {
		opts = append(opts, otelhttp.WithPropagators(cfg.propagators))
	}
	return opts
}
