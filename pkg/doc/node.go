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

package doc

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/moduforge/moduforge-go/pkg/schema"
	"github.com/segmentio/encoding/json"
)

// NodeID is an opaque, stable identifier. Equality is identity; a NodeID is
// never reused within one Document's lifetime (spec.md §3).
type NodeID string

// NewNodeID returns a fresh, effectively-unique NodeID, suitable for steps
// that construct new subtrees (e.g. AddNode) rather than replaying recorded
// ids from persistence.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// Mark is a typed annotation attached to a node: (mark_type, attrs).
// Equality and exclusion are governed by the owning MarkType (spec.md §3).
type Mark struct {
	Type  string
	Attrs schema.Attrs
}

// NewMark constructs a Mark with the given type and attributes.
func NewMark(markType string, attrs schema.Attrs) Mark {
	return Mark{Type: markType, Attrs: attrs}
}

// canonicalKey returns a dedupe key distinguishing this mark instance from
// others of the same type: for additive mark types two instances coexist
// only if their attrs differ, so the key folds in a canonical encoding of
// Attrs.
func (m Mark) canonicalKey() string {
	b, err := json.Marshal(m.Attrs)
	if err != nil {
		return m.Type
	}
	return m.Type + "\x00" + string(b)
}

func (m Mark) equalAttrs(other Mark) bool {
	a, err1 := json.Marshal(m.Attrs)
	b, err2 := json.Marshal(other.Attrs)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Node is a typed tree element: attrs and marks it exclusively owns, and an
// ordered sequence of child ids owned by the Document as a whole (spec.md
// §3). Text is populated only on nodes whose type declares inline or text.
type Node struct {
	ID       NodeID
	Type     string
	Attrs    schema.Attrs
	Marks    []Mark
	Children []NodeID
	Text     string
}

// NewNode constructs a leaf or branch Node. Children and Text are mutually
// exclusive in practice (text-bearing types are leaves) but the struct does
// not itself enforce that; schema validation does.
func NewNode(id NodeID, typeName string, attrs schema.Attrs, children []NodeID, text string) Node {
	kids := make([]NodeID, len(children))
	copy(kids, children)
	return Node{ID: id, Type: typeName, Attrs: attrs, Children: kids, Text: text}
}

// hasMarkType reports whether any mark of markType is already present.
func (n Node) hasMarkType(markType string) bool {
	for _, m := range n.Marks {
		if m.Type == markType {
			return true
		}
	}
	return false
}

// withMarkAdded returns a copy of n with mark added, honoring the owning
// mark type's additive and excludes policy (spec.md §3): a non-additive
// mark type allows at most one instance; an additive type allows several
// distinguished by attrs; adding a mark removes any mark whose type is
// named in mark's exclusion set, and vice versa.
func (n Node) withMarkAdded(mt *schema.MarkType, mark Mark) Node {
	kept := make([]Mark, 0, len(n.Marks)+1)
	for _, existing := range n.Marks {
		if existing.Type == mark.Type {
			if mt.Spec.Additive {
				if existing.equalAttrs(mark) {
					continue // replaced below by the new instance
				}
				kept = append(kept, existing)
				continue
			}
			continue // non-additive: drop the prior instance of this type
		}
		if mt.Excludes != nil && mt.Excludes.Contains(existing.Type) {
			continue // mutual exclusion: the new mark displaces it
		}
		kept = append(kept, existing)
	}
	kept = append(kept, mark)
	out := n
	out.Marks = kept
	return out
}

// withMarkRemoved returns a copy of n with every mark of markType removed.
func (n Node) withMarkRemoved(markType string) Node {
	kept := make([]Mark, 0, len(n.Marks))
	for _, m := range n.Marks {
		if m.Type != markType {
			kept = append(kept, m)
		}
	}
	out := n
	out.Marks = kept
	return out
}

// withAttr returns a copy of n with attrs[key] = value.
func (n Node) withAttr(key string, value schema.Value) Node {
	out := n
	out.Attrs = n.Attrs.Set(key, value)
	return out
}

// withChildren returns a copy of n with its children replaced wholesale.
func (n Node) withChildren(children []NodeID) Node {
	kids := make([]NodeID, len(children))
	copy(kids, children)
	out := n
	out.Children = kids
	return out
}
