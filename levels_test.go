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
	"log/slog"
	"testing"
)

func TestNormalizeLevel(t *testing.T) {
	testCases := []struct {
		name       string
		level      slog.Level
		wantName   string
		wantNumber int
	}{
		{"Debug", slog.LevelDebug, "debug", LevelNoDebug},
		{"BelowDebug", slog.LevelDebug - 4, "debug", LevelNoDebug},
		{"JustBelowInfo", slog.LevelInfo - 1, "debug", LevelNoDebug},
		{"Info", slog.LevelInfo, "info", LevelNoInfo},
		{"BetweenInfoAndWarn", slog.LevelInfo + 2, "info", LevelNoInfo},
		{"Warn", slog.LevelWarn, "warning", LevelNoWarning},
		{"BetweenWarnAndError", slog.LevelWarn + 2, "warning", LevelNoWarning},
		{"Error", slog.LevelError, "error", LevelNoError},
		{"JustBelowCritical", LevelCritical - 1, "error", LevelNoError},
		{"Critical", LevelCritical, "critical", LevelNoCritical},
		{"AboveCritical", LevelCritical + 8, "critical", LevelNoCritical},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeLevel(tc.level); got != tc.wantName {
				t.Errorf("NormalizeLevel(%v) = %q, want %q", tc.level, got, tc.wantName)
			}
			if got := LevelNumber(tc.level); got != tc.wantNumber {
				t.Errorf("LevelNumber(%v) = %d, want %d", tc.level, got, tc.wantNumber)
			}
		})
	}
}
