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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	devlogs "github.com/devlogs-io/devlogs-go"
)

func TestMiddlewareUsesIncomingHeader(t *testing.T) {
	var gotID, gotArea string
	handler := Middleware(WithArea("api"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = devlogs.OperationID(r.Context())
		gotArea = devlogs.Area(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set(DefaultOperationHeader, "abc-123-def-456")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotID != "abc-123-def-456" {
		t.Errorf("operation id = %q, want abc-123-def-456", gotID)
	}
	if gotArea != "api" {
		t.Errorf("area = %q, want api", gotArea)
	}
	if echoed := rec.Header().Get(DefaultOperationHeader); echoed != "abc-123-def-456" {
		t.Errorf("echoed header = %q, want abc-123-def-456", echoed)
	}
}

func TestMiddlewareGeneratesID(t *testing.T) {
	var gotID string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = devlogs.OperationID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(gotID); err != nil {
		t.Errorf("generated operation id %q is not a UUID: %v", gotID, err)
	}
	if echoed := rec.Header().Get(DefaultOperationHeader); echoed != gotID {
		t.Errorf("echoed header = %q, want the generated id %q", echoed, gotID)
	}
}

func TestMiddlewareCustomHeader(t *testing.T) {
	var gotID string
	handler := Middleware(WithOperationHeader("X-Request-Id"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = devlogs.OperationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-7")
	req.Header.Set(DefaultOperationHeader, "ignored")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotID != "req-7" {
		t.Errorf("operation id = %q, want req-7 from the custom header", gotID)
	}
	if echoed := rec.Header().Get("X-Request-Id"); echoed != "req-7" {
		t.Errorf("echoed custom header = %q, want req-7", echoed)
	}
}

func TestMiddlewareEchoDisabled(t *testing.T) {
	handler := Middleware(WithEchoHeader(false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if echoed := rec.Header().Get(DefaultOperationHeader); echoed != "" {
		t.Errorf("header echoed despite being disabled: %q", echoed)
	}
}

func TestMiddlewareNilNext(t *testing.T) {
	handler := Middleware()(nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("nil next handler answered %d, want 404", rec.Code)
	}
}

func TestMiddlewareScopeEndsWithRequest(t *testing.T) {
	var inner string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = devlogs.OperationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if inner == "" {
		t.Fatal("no scope inside the request")
	}
	// The original request context never carried the scope.
	if got := devlogs.OperationID(req.Context()); got != "" {
		t.Errorf("scope leaked onto the original request context: %q", got)
	}
}
