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
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"
)

// maxFeatureDepth bounds recursion into nested containers; anything deeper
// is stringified wholesale.
const maxFeatureDepth = 8

// ExtractFeatures flattens record attributes into the document's features
// mapping. Keys are used as-is after trimming; blank keys are dropped.
// Values are normalized to primitive-safe forms (see [NormalizeFeatureValue])
// so the search index never sees an unmappable type. Extraction never fails:
// a value whose resolution panics is recorded as an error marker string.
func ExtractFeatures(attrs []slog.Attr) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	features := make(map[string]any, len(attrs))
	for _, a := range attrs {
		key := strings.TrimSpace(a.Key)
		if key == "" {
			continue
		}
		features[key] = NormalizeFeatureValue(a.Value)
	}
	if len(features) == 0 {
		return nil
	}
	return features
}

// NormalizeFeatureValue converts a slog value into its primitive-safe
// representation following a fixed table:
//
//   - string, int64, uint64, float64, bool pass through unchanged
//   - time.Duration -> its String() form
//   - time.Time -> RFC 3339
//   - groups -> nested map[string]any, normalized recursively
//   - nil -> nil
//   - error -> its Error() text
//   - fmt.Stringer -> its String() text
//   - maps with string keys and slices/arrays -> normalized recursively
//   - everything else -> fmt.Sprintf("%+v", v)
func NormalizeFeatureValue(v slog.Value) any {
	v = safeResolve(v)

	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindGroup:
		attrs := v.Group()
		m := make(map[string]any, len(attrs))
		for _, a := range attrs {
			key := strings.TrimSpace(a.Key)
			if key == "" {
				continue
			}
			m[key] = NormalizeFeatureValue(a.Value)
		}
		return m
	default:
		return normalizeAny(v.Any(), 0)
	}
}

// safeResolve resolves LogValuer indirections, converting a panic into an
// error-marker string value so one misbehaving value cannot lose the record.
func safeResolve(v slog.Value) (resolved slog.Value) {
	defer func() {
		if r := recover(); r != nil {
			resolved = slog.StringValue(fmt.Sprintf("!ERROR(resolving value: %v)", r))
		}
	}()
	return v.Resolve()
}

// normalizeAny applies the normalization table to a bare Go value.
func normalizeAny(val any, depth int) any {
	switch x := val.(type) {
	case nil:
		return nil
	case string:
		return x
	case bool:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case float32:
		return float64(x)
	case float64:
		return x
	case time.Duration:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339)
	case error:
		return x.Error()
	case fmt.Stringer:
		return safeStringer(x)
	}

	if depth >= maxFeatureDepth {
		return fmt.Sprintf("%+v", val)
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Sprintf("%+v", val)
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := strings.TrimSpace(iter.Key().String())
			if key == "" {
				continue
			}
			m[key] = normalizeAny(iter.Value().Interface(), depth+1)
		}
		return m
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = normalizeAny(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalizeAny(rv.Elem().Interface(), depth+1)
	default:
		return fmt.Sprintf("%+v", val)
	}
}

// safeStringer calls String() guarding against panics from user types.
func safeStringer(s fmt.Stringer) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("!ERROR(stringifying value: %v)", r)
		}
	}()
	return s.String()
}
