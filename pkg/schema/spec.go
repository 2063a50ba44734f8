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

package schema

// AttributeSpec declares an attribute's default value and an optional
// validator predicate (spec.md §3). Reading an attribute that is absent
// from a node's Attrs (Attrs.Get) reports it as not present; the default
// is not supplied on read. Defaults are filled in by Schema.ValidateAttrs,
// and NodeType.DefaultAttrs holds them for a type whose every attribute
// has one.
type AttributeSpec struct {
	// Default is the value used when the attribute is not supplied. A nil
	// Default with HasDefault false marks the attribute required.
	Default    Value
	HasDefault bool
	// Validator, if set, must accept the default and every value supplied
	// for this attribute.
	Validator func(Value) error
}

// Required reports whether a node or mark of this type must supply the
// attribute explicitly.
func (a *AttributeSpec) Required() bool {
	return a == nil || !a.HasDefault
}

// materialize returns a fresh copy of the attribute's default value.
func (a *AttributeSpec) materialize() Value {
	if a == nil || !a.HasDefault {
		return nil
	}
	return cloneValue(a.Default)
}

// NodeTypeSpec describes one node type as passed to Compile.
type NodeTypeSpec struct {
	// Content is the content expression over child type names and groups,
	// e.g. "paragraph+" or "(list_item|block)*". Empty means no content.
	Content string
	// Group is a space-separated list of group names this type belongs to.
	Group string
	// Attrs declares the node type's attribute specs.
	Attrs map[string]*AttributeSpec
	// MarksAllowed is nil to allow all mark types, a pointer to "" to
	// disallow marks entirely, or a pointer to a space-separated list of
	// mark names/groups.
	MarksAllowed *string
	// Inline marks an inline (text-bearing-capable) node type.
	Inline bool
	// Atom marks a node type that, though not necessarily a leaf, should be
	// treated as a single opaque unit.
	Atom bool
	// Text marks the type that carries literal text content. At most one
	// type in a schema may set this.
	Text bool
}

// MarkTypeSpec describes one mark type as passed to Compile.
type MarkTypeSpec struct {
	Attrs map[string]*AttributeSpec
	// Excludes is a space-separated list of mark names/groups this mark
	// cannot coexist with ("_" for all, "" for none). Nil defaults to
	// excluding only the mark's own type.
	Excludes *string
	// Additive marks let more than one instance (by distinct attrs) of the
	// same mark_type coexist at one location; spec.md §3 default is one per
	// mark_type unless declared additive.
	Additive bool
	Group    string
}

// SchemaSpec is the uncompiled description of node and mark types passed to
// Compile. Node and Mark iteration order is preserved so later group
// resolution and documentation generation are deterministic.
type SchemaSpec struct {
	Nodes   []NamedNodeSpec
	Marks   []NamedMarkSpec
	TopNode string // defaults to "doc"
}

// NamedNodeSpec pairs a node type name with its spec; Go maps don't preserve
// order, so node declarations are carried as a slice the way
// cozy-prosemirror-go's NodeSpec.Key field works around the same problem.
type NamedNodeSpec struct {
	Name string
	Spec NodeTypeSpec
}

// NamedMarkSpec pairs a mark type name with its spec.
type NamedMarkSpec struct {
	Name string
	Spec MarkTypeSpec
}
