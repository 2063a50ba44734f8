// Copyright 2016-2024, Pulumi Corporation.
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

// Package logging declares the small logger abstraction the engine accepts
// from its host, plus a default adapter. A library cannot own global,
// flag-based logger configuration the way a CLI binary can, so the engine
// never logs directly to a package-global logger; every engine component
// that logs takes a Logger.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Fields carries structured key/value context alongside a log line (apply
// phase, plugin key, transaction id).
type Fields map[string]any

// Logger is the engine's injected logging contract. It is small enough for
// a host to satisfy with almost anything, and never fatal inside library
// code.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

// NewLogrus returns a Logger backed by the given *logrus.Logger, the
// engine's default adapter.
func NewLogrus(l *logrus.Logger) Logger {
	return &logrusLogger{l: l}
}

// NewLogrusDefault returns a Logger backed by logrus's default logger.
func NewLogrusDefault() Logger {
	return NewLogrus(logrus.StandardLogger())
}

type logrusLogger struct {
	l *logrus.Logger
}

func (a *logrusLogger) Debug(msg string, fields Fields) { a.entry(fields).Debug(msg) }
func (a *logrusLogger) Info(msg string, fields Fields)  { a.entry(fields).Info(msg) }
func (a *logrusLogger) Warn(msg string, fields Fields)  { a.entry(fields).Warn(msg) }
func (a *logrusLogger) Error(msg string, fields Fields) { a.entry(fields).Error(msg) }

func (a *logrusLogger) entry(fields Fields) *logrus.Entry {
	f := make(logrus.Fields, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return a.l.WithFields(f)
}

// Nop is a Logger that discards everything, the default when a host
// supplies no Logger.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string, Fields) {}
func (nopLogger) Info(string, Fields)  {}
func (nopLogger) Warn(string, Fields)  {}
func (nopLogger) Error(string, Fields) {}
