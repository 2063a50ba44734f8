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

package transform

import "github.com/moduforge/moduforge-go/pkg/doc"

// Step is a pure description of a document mutation: applying it to a
// NodePool yields a new NodePool or a typed error (spec.md §3/§4.3).
type Step interface {
	// TypeID is the step variant's stable identifier for the
	// StepFactoryRegistry's serialization contract (spec.md §6).
	TypeID() string
	// Apply produces the resulting pool, or a *StepError.
	Apply(pool *doc.NodePool) (*doc.NodePool, error)
	// Invert computes this step's inverse against the pre-apply pool, so
	// that inverse.Apply(post) restores pre exactly.
	Invert(pre *doc.NodePool) (Step, error)
	// Map rebases any NodeIDs this step carries through mapping, returning
	// itself unchanged if none of its ids are mapped.
	Map(mapping *Mapping) Step
}

// Merger is implemented by steps that support compaction with a
// like-kind, adjacent step (spec.md §4.3: "two contiguous SetAttribute on
// the same (id,key) collapse to the later"). Steps without a useful merge
// need not implement it.
type Merger interface {
	Merge(other Step) (Step, bool)
}

// Mapping rebases NodeIDs when ids change during merge or replay — e.g. a
// NodeID minted locally that a collaboration peer resolves to a different
// id after reconciliation. An absent entry means "unchanged".
type Mapping struct {
	ids map[doc.NodeID]doc.NodeID
}

// NewMapping builds a Mapping from an explicit old-id -> new-id table.
func NewMapping(ids map[doc.NodeID]doc.NodeID) *Mapping {
	m := &Mapping{ids: make(map[doc.NodeID]doc.NodeID, len(ids))}
	for k, v := range ids {
		m.ids[k] = v
	}
	return m
}

// Resolve returns the mapped id for id, or id itself if unmapped.
func (m *Mapping) Resolve(id doc.NodeID) doc.NodeID {
	if m == nil {
		return id
	}
	if mapped, ok := m.ids[id]; ok {
		return mapped
	}
	return id
}

func (m *Mapping) resolveSubtree(subtree map[doc.NodeID]doc.Node) map[doc.NodeID]doc.Node {
	if m == nil || len(m.ids) == 0 {
		return subtree
	}
	out := make(map[doc.NodeID]doc.Node, len(subtree))
	for id, n := range subtree {
		newID := m.Resolve(id)
		newChildren := make([]doc.NodeID, len(n.Children))
		for i, c := range n.Children {
			newChildren[i] = m.Resolve(c)
		}
		out[newID] = doc.Node{ID: newID, Type: n.Type, Attrs: n.Attrs, Marks: n.Marks, Children: newChildren, Text: n.Text}
	}
	return out
}
