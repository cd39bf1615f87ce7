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
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OperationScope is one nested unit of logical work. Log records emitted
// while a scope is active carry its operation id and area so the viewer can
// correlate them.
//
// Scopes are immutable once created. Pushing a scope derives a child
// [context.Context]; the previous scope becomes active again as soon as the
// caller returns to the parent context, on every exit path. Because contexts
// are values, a goroutine spawned with the current context holds a frozen
// snapshot of the scope chain and cannot observe or corrupt scope changes
// made later by its parent.
type OperationScope struct {
	// OperationID identifies the unit of work. Scopes pushed with
	// [WithOperation] always carry one; area-only scopes from [WithArea]
	// may leave it empty.
	OperationID string
	// Area names the logical subsystem the work belongs to. May be empty,
	// in which case the process-wide default area applies at format time.
	Area string
	// StartedAt records when the scope was opened. Informational only.
	StartedAt time.Time

	parent *OperationScope
}

// Parent returns the scope that was active when this one was opened, or nil
// for a top-level scope.
func (s *OperationScope) Parent() *OperationScope {
	if s == nil {
		return nil
	}
	return s.parent
}

type scopeContextKey struct{}

var (
	defaultAreaMu sync.RWMutex
	defaultArea   = "app"
)

// WithOperation returns a child context with a new operation scope pushed on
// top of any existing one. An empty or blank operationID is replaced with a
// freshly generated UUID rather than rejected, so context seeding at request
// edges can never fail. An empty area inherits the enclosing scope's area.
func WithOperation(ctx context.Context, operationID, area string) context.Context {
	parent := CurrentOperation(ctx)

	operationID = strings.TrimSpace(operationID)
	if operationID == "" {
		operationID = uuid.NewString()
	}
	area = strings.TrimSpace(area)
	if area == "" && parent != nil {
		area = parent.Area
	}

	scope := &OperationScope{
		OperationID: operationID,
		Area:        area,
		StartedAt:   time.Now(),
		parent:      parent,
	}
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// WithOperationID is shorthand for [WithOperation] with an inherited area.
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return WithOperation(ctx, operationID, "")
}

// WithArea returns a child context whose active scope carries the given area.
// The operation id of the enclosing scope is preserved; outside any scope the
// resulting scope has no operation id and only overrides the area.
func WithArea(ctx context.Context, area string) context.Context {
	parent := CurrentOperation(ctx)
	scope := &OperationScope{
		Area:      strings.TrimSpace(area),
		StartedAt: time.Now(),
		parent:    parent,
	}
	if parent != nil {
		scope.OperationID = parent.OperationID
	}
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// CurrentOperation returns the innermost active scope, or nil when ctx
// carries none.
func CurrentOperation(ctx context.Context) *OperationScope {
	if ctx == nil {
		return nil
	}
	scope, _ := ctx.Value(scopeContextKey{}).(*OperationScope)
	return scope
}

// OperationID returns the active scope's operation id, or "" when no scope
// is active.
func OperationID(ctx context.Context) string {
	if scope := CurrentOperation(ctx); scope != nil {
		return scope.OperationID
	}
	return ""
}

// Area returns the active scope's area, falling back to the process-wide
// default area.
func Area(ctx context.Context) string {
	if scope := CurrentOperation(ctx); scope != nil && scope.Area != "" {
		return scope.Area
	}
	return DefaultArea()
}

// SetDefaultArea sets the area recorded on documents logged outside any
// operation scope. The initial default is "app".
func SetDefaultArea(area string) {
	defaultAreaMu.Lock()
	defer defaultAreaMu.Unlock()
	defaultArea = strings.TrimSpace(area)
}

// DefaultArea returns the current process-wide default area.
func DefaultArea() string {
	defaultAreaMu.RLock()
	defer defaultAreaMu.RUnlock()
	return defaultArea
}
