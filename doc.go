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

// Package devlogs provides a [log/slog] handler that ships structured log
// records to an OpenSearch index without blocking the caller.
//
// Each record is enriched with the ambient operation context (an operation id
// and a logical area carried on [context.Context]), converted into a stable
// wire document, and handed to a bounded worker pool for asynchronous
// indexing. A circuit breaker pauses delivery attempts while the backend is
// unavailable so that a failing index can never stall or crash the host
// application.
//
// Basic usage:
//
//	cfg, err := devlogs.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	handler, err := devlogs.NewHandler(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer handler.Close()
//
//	slog.SetDefault(slog.New(handler))
//	slog.Info("Application started")
//
// With operation context:
//
//	ctx := devlogs.WithOperation(context.Background(), "req-123", "api")
//	slog.InfoContext(ctx, "Request received", "path", "/users")
//
// The devlogshttp and devlogsgrpc subpackages seed operation context at the
// edge of HTTP servers and gRPC services respectively.
package devlogs
