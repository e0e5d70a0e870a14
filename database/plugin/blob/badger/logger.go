// Copyright 2026 Blink Labs Software
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

package badger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// BadgerLogger adapts a structured slog.Logger to the badger.Logger
// interface. Every record is tagged with the database component so
// blob chatter can be filtered by handler.
type BadgerLogger struct {
	logger *slog.Logger
}

// NewBadgerLogger wraps the given logger. A nil logger discards all output.
func NewBadgerLogger(logger *slog.Logger) *BadgerLogger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &BadgerLogger{logger: logger}
}

func (l *BadgerLogger) logf(level slog.Level, format string, args ...any) {
	// badger log lines carry a trailing newline, which we strip
	l.logger.Log(
		context.Background(),
		level,
		strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"),
		"component", "database",
	)
}

func (l *BadgerLogger) Infof(format string, args ...any) {
	l.logf(slog.LevelInfo, format, args...)
}

func (l *BadgerLogger) Warningf(format string, args ...any) {
	l.logf(slog.LevelWarn, format, args...)
}

func (l *BadgerLogger) Debugf(format string, args ...any) {
	l.logf(slog.LevelDebug, format, args...)
}

func (l *BadgerLogger) Errorf(format string, args ...any) {
	l.logf(slog.LevelError, format, args...)
}
