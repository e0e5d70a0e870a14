// Copyright 2025 Blink Labs Software
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

package gcs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// GcsLogger adapts a structured slog.Logger to the printf-style calls
// used throughout the blob store. Every record is tagged with the
// database component so blob chatter can be filtered by handler.
type GcsLogger struct {
	logger *slog.Logger
}

// NewGcsLogger wraps the given logger. A nil logger discards all output.
func NewGcsLogger(logger *slog.Logger) *GcsLogger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &GcsLogger{logger: logger}
}

func (l *GcsLogger) logf(level slog.Level, format string, args ...any) {
	l.logger.Log(
		context.Background(),
		level,
		fmt.Sprintf(format, args...),
		"component", "database",
	)
}

func (l *GcsLogger) Infof(format string, args ...any) {
	l.logf(slog.LevelInfo, format, args...)
}

func (l *GcsLogger) Warningf(format string, args ...any) {
	l.logf(slog.LevelWarn, format, args...)
}

func (l *GcsLogger) Debugf(format string, args ...any) {
	l.logf(slog.LevelDebug, format, args...)
}

func (l *GcsLogger) Errorf(format string, args ...any) {
	l.logf(slog.LevelError, format, args...)
}
