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
	"testing"

	"github.com/google/uuid"
)

func TestWithOperationNesting(t *testing.T) {
	root := context.Background()
	if CurrentOperation(root) != nil {
		t.Fatal("background context should carry no scope")
	}

	outer := WithOperation(root, "op-outer", "api")
	inner := WithOperation(outer, "op-inner", "worker")

	if got := CurrentOperation(inner); got.OperationID != "op-inner" || got.Area != "worker" {
		t.Errorf("inner scope = (%q, %q), want (op-inner, worker)", got.OperationID, got.Area)
	}
	if got := CurrentOperation(inner).Parent(); got.OperationID != "op-outer" {
		t.Errorf("inner parent = %q, want op-outer", got.OperationID)
	}

	// Unwinding back to the outer context restores the outer scope, and the
	// root context remains scope-free regardless of what was pushed above it.
	if got := CurrentOperation(outer); got.OperationID != "op-outer" || got.Area != "api" {
		t.Errorf("outer scope after unwind = (%q, %q), want (op-outer, api)", got.OperationID, got.Area)
	}
	if CurrentOperation(root) != nil {
		t.Error("root context gained a scope")
	}
}

func TestWithOperationGeneratesID(t *testing.T) {
	for _, blank := range []string{"", "   ", "\t"} {
		ctx := WithOperation(context.Background(), blank, "api")
		id := OperationID(ctx)
		if id == "" {
			t.Fatalf("blank operation id %q was not replaced", blank)
		}
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("generated id %q is not a UUID: %v", id, err)
		}
	}
}

func TestWithOperationInheritsArea(t *testing.T) {
	outer := WithOperation(context.Background(), "op-1", "api")
	inner := WithOperation(outer, "op-2", "")
	if got := CurrentOperation(inner).Area; got != "api" {
		t.Errorf("inherited area = %q, want api", got)
	}
}

func TestChildSnapshotIsFrozen(t *testing.T) {
	parent := WithOperation(context.Background(), "X", "A")

	observed := make(chan string)
	go func(ctx context.Context) {
		// The child holds whatever the parent had at spawn time.
		observed <- OperationID(ctx)
	}(parent)

	// The parent moving on to a new scope must not affect the child.
	_ = WithOperation(parent, "Y", "B")

	if got := <-observed; got != "X" {
		t.Errorf("child observed operation id %q, want X", got)
	}
}

func TestWithArea(t *testing.T) {
	t.Run("InsideScope", func(t *testing.T) {
		ctx := WithOperation(context.Background(), "op-1", "api")
		ctx = WithArea(ctx, "billing")
		scope := CurrentOperation(ctx)
		if scope.OperationID != "op-1" || scope.Area != "billing" {
			t.Errorf("scope = (%q, %q), want (op-1, billing)", scope.OperationID, scope.Area)
		}
	})

	t.Run("OutsideScope", func(t *testing.T) {
		ctx := WithArea(context.Background(), "billing")
		scope := CurrentOperation(ctx)
		if scope.OperationID != "" {
			t.Errorf("operation id = %q, want empty", scope.OperationID)
		}
		if got := Area(ctx); got != "billing" {
			t.Errorf("Area = %q, want billing", got)
		}
	})
}

func TestDefaultArea(t *testing.T) {
	prev := DefaultArea()
	defer SetDefaultArea(prev)

	SetDefaultArea("batch")
	if got := Area(context.Background()); got != "batch" {
		t.Errorf("Area outside any scope = %q, want batch", got)
	}

	ctx := WithOperation(context.Background(), "op-1", "api")
	if got := Area(ctx); got != "api" {
		t.Errorf("Area inside scope = %q, want api", got)
	}
}
