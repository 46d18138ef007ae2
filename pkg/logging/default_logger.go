// Copyright 2025 The Sigstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

var _ Logger = (*DefaultLogger)(nil)

// LoggerOptions configures a DefaultLogger.
type LoggerOptions struct {
	// Level sets the minimum level written.
	Level LogLevel
	// Format selects text or JSON output. JSON records carry a timestamp.
	Format LogFormat
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultLoggerOptions returns info-level text output on stderr.
func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		Level:  LevelInfo,
		Format: FormatText,
		Output: os.Stderr,
	}
}

// DefaultLogger is a Logger backed by a charmbracelet/log logger.
type DefaultLogger struct {
	level LogLevel
	l     *charmlog.Logger
}

// NewLogger creates a text logger at debug level when verbose, info
// otherwise.
func NewLogger(verbose bool) *DefaultLogger {
	opts := DefaultLoggerOptions()
	if verbose {
		opts.Level = LevelDebug
	}
	return NewLoggerWithOptions(opts)
}

// NewLoggerWithOptions creates a logger from opts.
func NewLoggerWithOptions(opts LoggerOptions) *DefaultLogger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	formatter := charmlog.TextFormatter
	if opts.Format == FormatJSON {
		formatter = charmlog.JSONFormatter
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		Level:           toCharmLevel(opts.Level),
		ReportTimestamp: opts.Format == FormatJSON,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
	return &DefaultLogger{level: opts.Level, l: l}
}

// Discard returns a logger that writes nothing.
func Discard() Logger {
	return NewLoggerWithOptions(LoggerOptions{Level: LevelSilent, Output: io.Discard})
}

func toCharmLevel(level LogLevel) charmlog.Level {
	switch level {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelInfo:
		return charmlog.InfoLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.Level(math.MaxInt32)
	}
}

// WithField returns a child logger carrying one field.
func (l *DefaultLogger) WithField(key string, value interface{}) Logger {
	return &DefaultLogger{level: l.level, l: l.l.With(key, value)}
}

// SetLevel changes the minimum level. Child loggers created earlier keep
// their own level.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level = level
	l.l.SetLevel(toCharmLevel(level))
}

// GetLevel returns the minimum level.
func (l *DefaultLogger) GetLevel() LogLevel {
	return l.level
}

// Debug logs at debug level.
func (l *DefaultLogger) Debug(format string, args ...interface{}) {
	l.l.Debug(fmt.Sprintf(format, args...))
}

// Info logs at info level.
func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.l.Info(fmt.Sprintf(format, args...))
}

// Warn logs at warn level.
func (l *DefaultLogger) Warn(format string, args ...interface{}) {
	l.l.Warn(fmt.Sprintf(format, args...))
}

// Error logs at error level.
func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.l.Error(fmt.Sprintf(format, args...))
}

// IsLevelEnabled reports whether messages at level are written.
func (l *DefaultLogger) IsLevelEnabled(level LogLevel) bool {
	return level != LevelSilent && level >= l.level
}
