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

// Package logging provides the leveled Logger used by the signing and
// verification pipelines. The default implementation writes through
// charmbracelet/log.
package logging

import (
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// LogLevel is the minimum severity a Logger writes.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelSilent writes nothing.
	LevelSilent
)

var levelNames = map[LogLevel]string{
	LevelDebug:  "debug",
	LevelInfo:   "info",
	LevelWarn:   "warn",
	LevelError:  "error",
	LevelSilent: "silent",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLogLevel maps a --log-level value to a LogLevel. "silent", "none"
// and "off" disable output; unrecognized values select LevelInfo.
func ParseLogLevel(s string) LogLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "silent", "none", "off":
		return LevelSilent
	case "warning":
		s = "warn"
	}
	lvl, err := charmlog.ParseLevel(s)
	if err != nil {
		return LevelInfo
	}
	switch lvl {
	case charmlog.DebugLevel:
		return LevelDebug
	case charmlog.WarnLevel:
		return LevelWarn
	case charmlog.ErrorLevel, charmlog.FatalLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

// LogFormat selects the record encoding.
type LogFormat int

const (
	FormatText LogFormat = iota
	FormatJSON
)

func (f LogFormat) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseLogFormat maps a --log-format value; anything but "json" is text.
func ParseLogFormat(s string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Field keys attached to pipeline log records.
const (
	FieldRun     = "run"
	FieldModule  = "module"
	FieldBackend = "backend"
	FieldArchive = "archive"
)

// Logger is the printf-style leveled logger handed to every pipeline stage.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})

	// GetLevel returns the minimum level written.
	GetLevel() LogLevel

	// WithField returns a child logger that adds key=value to each record.
	WithField(key string, value interface{}) Logger
}

// ForRun returns a child of l that tags records with the signing run id and
// module name.
func ForRun(l Logger, runID, module string) Logger {
	return EnsureLogger(l).WithField(FieldRun, runID).WithField(FieldModule, module)
}

// Default returns an info-level text logger on stderr.
func Default() Logger {
	return NewLogger(false)
}

// EnsureLogger returns l, or Default when l is nil.
func EnsureLogger(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}
