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

import "log/slog"

// Numeric severity ranks recorded in the document's levelno field. The ranks
// match the values the devlogs index and viewer already understand, so they
// are part of the wire contract.
const (
	LevelNoDebug    = 10
	LevelNoInfo     = 20
	LevelNoWarning  = 30
	LevelNoError    = 40
	LevelNoCritical = 50
)

// LevelCritical is the slog level at which records are normalized to the
// "critical" severity. It sits above [slog.LevelError] with the same spacing
// slog uses between its standard levels.
const LevelCritical = slog.LevelError + 4

// NormalizeLevel converts a slog level to the lowercase severity name used in
// the document's level field. Levels between two named severities map to the
// lower one, matching slog's own banding.
func NormalizeLevel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warning"
	case level < LevelCritical:
		return "error"
	default:
		return "critical"
	}
}

// LevelNumber returns the numeric severity rank for a slog level.
func LevelNumber(level slog.Level) int {
	switch {
	case level < slog.LevelInfo:
		return LevelNoDebug
	case level < slog.LevelWarn:
		return LevelNoInfo
	case level < slog.LevelError:
		return LevelNoWarning
	case level < LevelCritical:
		return LevelNoError
	default:
		return LevelNoCritical
	}
}
