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

// Package transform implements the eight primitive Step variants and the
// Transaction that sequences them (spec.md §3/§4.3).
package transform

import (
	"errors"
	"fmt"

	"github.com/moduforge/moduforge-go/pkg/doc"
)

// errNodeHasNoParent reports an invert computed against a pre-state where
// id has no recorded parent (it is the root, or was never present).
func errNodeHasNoParent(id doc.NodeID) error {
	return fmt.Errorf("transform: node %q has no parent in the pre-apply document", id)
}

// StepErrorKind discriminates the StepError variants from spec.md §4.3.
type StepErrorKind int

const (
	// NodeNotFound names a NodeId absent from the document.
	NodeNotFound StepErrorKind = iota
	// InvalidPosition is an insertion/move index beyond the target's child count.
	InvalidPosition
	// SchemaViolationKind is a structural edit rejected by the schema's content model.
	SchemaViolationKind
	// TypeMismatch is an operation applied to a node of the wrong shape (e.g.
	// setting text on a non-text-bearing node).
	TypeMismatch
	// WouldCreateCycleKind rejects a move whose new parent is a descendant of the moved node.
	WouldCreateCycleKind
)

func (k StepErrorKind) String() string {
	switch k {
	case NodeNotFound:
		return "NodeNotFound"
	case InvalidPosition:
		return "InvalidPosition"
	case SchemaViolationKind:
		return "SchemaViolation"
	case TypeMismatch:
		return "TypeMismatch"
	case WouldCreateCycleKind:
		return "WouldCreateCycle"
	default:
		return "Unknown"
	}
}

// StepError reports that a Step's Apply failed; the document is left
// unchanged (spec.md §4.3: "a step that fails leaves the document
// unchanged; apply is atomic per step").
type StepError struct {
	Kind   StepErrorKind
	TypeID string
	cause  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("transform: step %q failed: %s: %s", e.TypeID, e.Kind, e.cause)
}

func (e *StepError) Unwrap() error { return e.cause }

func newStepError(kind StepErrorKind, typeID string, cause error) *StepError {
	return &StepError{Kind: kind, TypeID: typeID, cause: cause}
}

// classifyDocError maps a doc.DocumentError into the StepError taxonomy.
// It is declared here and used by every step's Apply so a single place
// owns the doc-error -> step-error mapping.
func classifyDocError(typeID string, err error) *StepError {
	kind := SchemaViolationKind
	var docErr *doc.DocumentError
	if errors.As(err, &docErr) {
		switch docErr.Kind {
		case doc.NodeNotFound:
			kind = NodeNotFound
		case doc.InvalidPosition:
			kind = InvalidPosition
		case doc.WouldCreateCycle:
			kind = WouldCreateCycleKind
		case doc.CannotRemoveRoot, doc.DuplicateNodeID, doc.SchemaViolation:
			kind = SchemaViolationKind
		}
	}
	return newStepError(kind, typeID, err)
}

// TransactionErrorKind discriminates TransactionError variants (spec.md §7).
type TransactionErrorKind int

const (
	// Poisoned reports a commit attempted on a transaction that already failed a step.
	Poisoned TransactionErrorKind = iota
	// Empty reports a commit attempted with zero steps.
	Empty
	// MetadataConflict is reserved for a future stricter merge policy; unused
	// under the adopted last-write-wins policy (spec.md §9 open question #3).
	MetadataConflict
	// ComposeMismatch rejects Compose(a, b) when a.AfterDoc is not b.BeforeDoc.
	ComposeMismatch
)

func (k TransactionErrorKind) String() string {
	switch k {
	case Poisoned:
		return "Poisoned"
	case Empty:
		return "Empty"
	case MetadataConflict:
		return "MetadataConflict"
	case ComposeMismatch:
		return "ComposeMismatch"
	default:
		return "Unknown"
	}
}

// TransactionError is returned by Transaction.Commit, by Transaction.Step
// once the transaction is poisoned, and by Compose.
type TransactionError struct {
	Kind   TransactionErrorKind
	Detail string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transform: transaction commit failed: %s: %s", e.Kind, e.Detail)
}

func newTransactionError(kind TransactionErrorKind, detail string) *TransactionError {
	return &TransactionError{Kind: kind, Detail: detail}
}
