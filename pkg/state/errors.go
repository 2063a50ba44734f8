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

// Package state implements Configuration, State, and the three-phase apply
// pipeline that drives registered plugins against a committed transaction
// (spec.md §4.6).
package state

import (
	"fmt"

	"github.com/moduforge/moduforge-go/pkg/plugin"
	"github.com/pkg/errors"
)

// ErrorKind discriminates StateError variants (spec.md §7).
type ErrorKind int

const (
	// InvalidConfiguration reports a Configuration that cannot build a State
	// (e.g. an initial doc built against a different schema).
	InvalidConfiguration ErrorKind = iota
	// Stale reports tr.BeforeDoc not matching the State's current doc.
	Stale
	// Filtered reports a Phase 1 veto.
	Filtered
	// Field reports a StateField.Init or StateField.Apply failure, or an
	// error returned by a plugin's AppendTransaction.
	Field
	// AppendFiltered reports a Phase 3 append transaction vetoed by a filter.
	AppendFiltered
	// BadAppend reports a Phase 3 append transaction whose BeforeDoc does not
	// match the current intermediate state's doc, or that fails to commit.
	BadAppend
	// AppendLoopDiverged reports the Phase 3 fixed point exceeding
	// Configuration.AppendIterationLimit.
	AppendLoopDiverged
	// Internal reports an engine invariant violation (e.g. a persistent map
	// claiming to hold a key it does not). It is also the kind reported when
	// a plugin's FilterTransaction returns an error. Hosts typically
	// translate this to a process abort.
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidConfiguration:
		return "InvalidConfiguration"
	case Stale:
		return "Stale"
	case Filtered:
		return "Filtered"
	case Field:
		return "Field"
	case AppendFiltered:
		return "AppendFiltered"
	case BadAppend:
		return "BadAppend"
	case AppendLoopDiverged:
		return "AppendLoopDiverged"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is returned by State.Create and State.Apply (spec.md §7
// StateError). PluginKey is set only for kinds naming an offending plugin.
type Error struct {
	Kind      ErrorKind
	PluginKey plugin.Key
	cause     error
}

func (e *Error) Error() string {
	if e.PluginKey != "" {
		return fmt.Sprintf("state: %s (plugin %q): %s", e.Kind, e.PluginKey, e.cause)
	}
	return fmt.Sprintf("state: %s: %s", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func newStateError(kind ErrorKind, pluginKey plugin.Key, detail string) *Error {
	return &Error{Kind: kind, PluginKey: pluginKey, cause: errors.New(detail)}
}

func wrapStateError(kind ErrorKind, pluginKey plugin.Key, cause error) *Error {
	return &Error{Kind: kind, PluginKey: pluginKey, cause: errors.WithStack(cause)}
}
