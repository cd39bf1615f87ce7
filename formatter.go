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
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// timestampLayout renders UTC timestamps with millisecond precision, the
// format the index mapping expects.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ExceptionDetail is the structured exception block attached to documents
// formatted from records that carry an error.
type ExceptionDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// LogDocument is the wire-format unit sent to the index. Field names and
// types are the compatibility contract with the index mapping and the
// viewer; do not rename them.
//
// Pathname, LineNo, FuncName and OperationID serialize as null when the
// information is unavailable rather than being fabricated. Exception is
// omitted entirely when the record carries no error. Features is always
// present, possibly empty, and extractor-produced keys live only inside it,
// so they can never shadow a fixed field.
type LogDocument struct {
	DocType     string           `json:"doc_type"`
	Timestamp   string           `json:"timestamp"`
	Level       string           `json:"level"`
	LevelNo     int              `json:"levelno"`
	LoggerName  string           `json:"logger_name"`
	Message     string           `json:"message"`
	Pathname    *string          `json:"pathname"`
	LineNo      *int             `json:"lineno"`
	FuncName    *string          `json:"funcName"`
	Area        string           `json:"area"`
	OperationID *string          `json:"operation_id"`
	Thread      int              `json:"thread"`
	Process     int              `json:"process"`
	Exception   *ExceptionDetail `json:"exception,omitempty"`
	Features    map[string]any   `json:"features"`
}

// FormatLogDocument composes a slog record, the ambient operation context,
// and extracted features into a LogDocument.
//
// baseAttrs are handler-level attributes (from WithAttrs), already qualified
// with their group prefixes; groups qualifies the record's own attributes.
// The first error-valued attribute becomes the structured exception block
// and is withheld from features. Formatting never fails: any internal panic
// degrades to a minimal valid document carrying at least the message.
func FormatLogDocument(ctx context.Context, r slog.Record, loggerName string, baseAttrs []slog.Attr, groups []string) (doc *LogDocument) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = minimalDocument(r, loggerName)
		}
	}()

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	doc = &LogDocument{
		DocType:    "log_entry",
		Timestamp:  ts.UTC().Format(timestampLayout),
		Level:      NormalizeLevel(r.Level),
		LevelNo:    LevelNumber(r.Level),
		LoggerName: loggerName,
		Message:    r.Message,
		Area:       Area(ctx),
		Thread:     goroutineID(),
		Process:    os.Getpid(),
		Features:   map[string]any{},
	}

	if scope := CurrentOperation(ctx); scope != nil && scope.OperationID != "" {
		id := scope.OperationID
		doc.OperationID = &id
	}

	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		if frame.File != "" {
			doc.Pathname = &frame.File
		}
		if frame.Line > 0 {
			doc.LineNo = &frame.Line
		}
		if frame.Function != "" {
			doc.FuncName = &frame.Function
		}
	}

	prefix := ""
	if len(groups) > 0 {
		prefix = strings.Join(groups, ".") + "."
	}

	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(baseAttrs))
	attrs = append(attrs, baseAttrs...)
	r.Attrs(func(a slog.Attr) bool {
		if prefix != "" {
			a.Key = prefix + a.Key
		}
		attrs = append(attrs, a)
		return true
	})

	attrs, exc := splitException(attrs)
	doc.Exception = exc

	if features := ExtractFeatures(attrs); features != nil {
		doc.Features = features
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		doc.Features["trace_id"] = sc.TraceID().String()
		doc.Features["span_id"] = sc.SpanID().String()
	}

	return doc
}

// minimalDocument is the degraded form used when full formatting fails.
func minimalDocument(r slog.Record, loggerName string) *LogDocument {
	return &LogDocument{
		DocType:    "log_entry",
		Timestamp:  time.Now().UTC().Format(timestampLayout),
		Level:      NormalizeLevel(r.Level),
		LevelNo:    LevelNumber(r.Level),
		LoggerName: loggerName,
		Message:    r.Message,
		Area:       DefaultArea(),
		Thread:     goroutineID(),
		Process:    os.Getpid(),
		Features:   map[string]any{},
	}
}

// splitException removes the first error-valued attribute and returns it as
// a structured exception block. The error is represented structurally, so it
// does not additionally appear in features.
func splitException(attrs []slog.Attr) ([]slog.Attr, *ExceptionDetail) {
	for i, a := range attrs {
		if a.Value.Kind() != slog.KindAny {
			continue
		}
		err, ok := a.Value.Any().(error)
		if !ok || err == nil {
			continue
		}
		rest := make([]slog.Attr, 0, len(attrs)-1)
		rest = append(rest, attrs[:i]...)
		rest = append(rest, attrs[i+1:]...)
		return rest, &ExceptionDetail{
			Type:    fmt.Sprintf("%T", err),
			Message: err.Error(),
			Stack:   captureStack(),
		}
	}
	return attrs, nil
}

// captureStack renders the formatting goroutine's stack. Best effort: the
// document formatter runs synchronously in the logging call, so the stack
// reflects the emit site.
func captureStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		b.WriteString("  ")
		b.WriteString(frame.Function)
		b.WriteString("\n    ")
		b.WriteString(frame.File)
		b.WriteString(":")
		b.WriteString(strconv.Itoa(frame.Line))
		b.WriteString("\n")
		if !more {
			break
		}
	}
	return b.String()
}

// goroutineID parses the current goroutine id from runtime.Stack output.
func goroutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := string(buf[:n])
	if rest, ok := strings.CutPrefix(s, "goroutine "); ok {
		if idx := strings.IndexByte(rest, ' '); idx > 0 {
			if id, err := strconv.Atoi(rest[:idx]); err == nil {
				return id
			}
		}
	}
	return 0
}
