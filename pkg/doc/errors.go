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

// Package doc implements the persistent, structurally-shared document tree:
// NodeId -> Node mapping plus root_id, and the with_* family of operations
// that each preserve reachability, schema conformance, and structural
// sharing (spec.md §3/§4.2).
package doc

import "fmt"

// ErrorKind discriminates the DocumentError variants from spec.md §7.
type ErrorKind int

const (
	// NodeNotFound names a NodeId absent from the pool.
	NodeNotFound ErrorKind = iota
	// InvalidPosition is an insertion index beyond the target's child count.
	InvalidPosition
	// CannotRemoveRoot rejects with_removed(root_id).
	CannotRemoveRoot
	// WouldCreateCycle rejects a move whose new parent is a descendant of
	// the node being moved.
	WouldCreateCycle
	// SchemaViolation is a structural edit that would leave a node's
	// children failing schema.validate_children.
	SchemaViolation
	// DuplicateNodeID is an inserted subtree reusing an id already present
	// in the pool.
	DuplicateNodeID
)

func (k ErrorKind) String() string {
	switch k {
	case NodeNotFound:
		return "NodeNotFound"
	case InvalidPosition:
		return "InvalidPosition"
	case CannotRemoveRoot:
		return "CannotRemoveRoot"
	case WouldCreateCycle:
		return "WouldCreateCycle"
	case SchemaViolation:
		return "SchemaViolation"
	case DuplicateNodeID:
		return "DuplicateNodeID"
	default:
		return "Unknown"
	}
}

// DocumentError reports a structural operation that violated a tree,
// reachability, or schema-conformance invariant (spec.md §7). It wraps the
// offending NodeId and, where applicable, an underlying cause.
type DocumentError struct {
	Kind   ErrorKind
	NodeID NodeID
	Detail string
	cause  error
}

func (e *DocumentError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("doc: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("doc: %s on %q: %s", e.Kind, e.NodeID, e.Detail)
}

// Unwrap exposes the underlying cause, if any, so errors.Is/As chain
// through to a wrapped schema.ValidationError.
func (e *DocumentError) Unwrap() error { return e.cause }

func newDocError(kind ErrorKind, id NodeID, detail string) *DocumentError {
	return &DocumentError{Kind: kind, NodeID: id, Detail: detail}
}

func wrapDocError(kind ErrorKind, id NodeID, cause error) *DocumentError {
	return &DocumentError{Kind: kind, NodeID: id, Detail: cause.Error(), cause: cause}
}
