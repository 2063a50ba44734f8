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

// AddMark attaches Mark to ID, subject to the node type's allowed-marks
// policy and the mark type's additive/excludes policy (spec.md §3).
type AddMark struct {
	ID   doc.NodeID
	Mark doc.Mark
}

func (s AddMark) TypeID() string { return "add_mark" }

func (s AddMark) Apply(pool *doc.NodePool) (*doc.NodePool, error) {
	out, err := pool.WithMark(s.ID, s.Mark)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return out, nil
}

// Invert restores whichever mark of this type existed before the add, if
// any, else removes it. A non-additive mark type has at most one prior
// instance so this is exact; for an additive mark type with more than one
// coexisting prior instance, only the first is restored.
func (s AddMark) Invert(pre *doc.NodePool) (Step, error) {
	n, ok := pre.Get(s.ID)
	if !ok {
		return nil, newStepError(NodeNotFound, s.TypeID(), errNodeHasNoParent(s.ID))
	}
	for _, m := range n.Marks {
		if m.Type == s.Mark.Type {
			return AddMark{ID: s.ID, Mark: m}, nil
		}
	}
	return RemoveMark{ID: s.ID, MarkType: s.Mark.Type}, nil
}

func (s AddMark) Map(mapping *Mapping) Step {
	return AddMark{ID: mapping.Resolve(s.ID), Mark: s.Mark}
}

// RemoveMark detaches every mark of MarkType from ID (spec.md §3).
type RemoveMark struct {
	ID       doc.NodeID
	MarkType string
}

func (s RemoveMark) TypeID() string { return "remove_mark" }

func (s RemoveMark) Apply(pool *doc.NodePool) (*doc.NodePool, error) {
	out, err := pool.WithMarkRemoved(s.ID, s.MarkType)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return out, nil
}

// Invert restores the first pre-apply mark of this type, if any.
func (s RemoveMark) Invert(pre *doc.NodePool) (Step, error) {
	n, ok := pre.Get(s.ID)
	if !ok {
		return nil, newStepError(NodeNotFound, s.TypeID(), errNodeHasNoParent(s.ID))
	}
	for _, m := range n.Marks {
		if m.Type == s.MarkType {
			return AddMark{ID: s.ID, Mark: m}, nil
		}
	}
	return RemoveMark{ID: s.ID, MarkType: s.MarkType}, nil
}

func (s RemoveMark) Map(mapping *Mapping) Step {
	return RemoveMark{ID: mapping.Resolve(s.ID), MarkType: s.MarkType}
}
