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

// AddNode inserts Subtree's nodes under Parent at Pos (spec.md §3).
type AddNode struct {
	Parent      doc.NodeID
	Pos         int
	Subtree     map[doc.NodeID]doc.Node
	SubtreeRoot doc.NodeID
}

func (s AddNode) TypeID() string { return "add_node" }

func (s AddNode) Apply(pool *doc.NodePool) (*doc.NodePool, error) {
	out, err := pool.WithInserted(s.Parent, s.Pos, s.Subtree, s.SubtreeRoot)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return out, nil
}

// Invert returns a RemoveNode targeting the newly-inserted subtree root.
func (s AddNode) Invert(pre *doc.NodePool) (Step, error) {
	return RemoveNode{ID: s.SubtreeRoot}, nil
}

func (s AddNode) Map(mapping *Mapping) Step {
	return AddNode{
		Parent:      mapping.Resolve(s.Parent),
		Pos:         s.Pos,
		Subtree:     mapping.resolveSubtree(s.Subtree),
		SubtreeRoot: mapping.Resolve(s.SubtreeRoot),
	}
}

// RemoveNode detaches and garbage-collects the subtree rooted at ID (spec.md §3).
type RemoveNode struct {
	ID doc.NodeID
}

func (s RemoveNode) TypeID() string { return "remove_node" }

func (s RemoveNode) Apply(pool *doc.NodePool) (*doc.NodePool, error) {
	out, err := pool.WithRemoved(s.ID)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return out, nil
}

// Invert snapshots the subtree, its parent, and its position from pre so
// the inverse AddNode restores it exactly.
func (s RemoveNode) Invert(pre *doc.NodePool) (Step, error) {
	parentID, ok := pre.ParentID(s.ID)
	if !ok {
		return nil, newStepError(NodeNotFound, s.TypeID(), errNodeHasNoParent(s.ID))
	}
	pos, _ := pre.PositionOf(s.ID)
	subtree, err := pre.Subtree(s.ID)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return AddNode{Parent: parentID, Pos: pos, Subtree: subtree, SubtreeRoot: s.ID}, nil
}

func (s RemoveNode) Map(mapping *Mapping) Step {
	return RemoveNode{ID: mapping.Resolve(s.ID)}
}

// ReplaceNode swaps the subtree rooted at ID for Subtree, at the same
// position among ID's former siblings (spec.md §3).
type ReplaceNode struct {
	ID          doc.NodeID
	Subtree     map[doc.NodeID]doc.Node
	SubtreeRoot doc.NodeID
}

func (s ReplaceNode) TypeID() string { return "replace_node" }

func (s ReplaceNode) Apply(pool *doc.NodePool) (*doc.NodePool, error) {
	out, err := pool.WithReplaced(s.ID, s.Subtree, s.SubtreeRoot)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return out, nil
}

// Invert snapshots the old subtree from pre so the inverse ReplaceNode
// restores it in place of the new one.
func (s ReplaceNode) Invert(pre *doc.NodePool) (Step, error) {
	oldSubtree, err := pre.Subtree(s.ID)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return ReplaceNode{ID: s.SubtreeRoot, Subtree: oldSubtree, SubtreeRoot: s.ID}, nil
}

func (s ReplaceNode) Map(mapping *Mapping) Step {
	return ReplaceNode{
		ID:          mapping.Resolve(s.ID),
		Subtree:     mapping.resolveSubtree(s.Subtree),
		SubtreeRoot: mapping.Resolve(s.SubtreeRoot),
	}
}

// MoveNode relocates ID under NewParent at Pos (spec.md §3).
type MoveNode struct {
	ID        doc.NodeID
	NewParent doc.NodeID
	Pos       int
}

func (s MoveNode) TypeID() string { return "move_node" }

func (s MoveNode) Apply(pool *doc.NodePool) (*doc.NodePool, error) {
	out, err := pool.WithMoved(s.ID, s.NewParent, s.Pos)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return out, nil
}

// Invert snapshots ID's old parent and position from pre.
func (s MoveNode) Invert(pre *doc.NodePool) (Step, error) {
	oldParent, ok := pre.ParentID(s.ID)
	if !ok {
		return nil, newStepError(NodeNotFound, s.TypeID(), errNodeHasNoParent(s.ID))
	}
	oldPos, _ := pre.PositionOf(s.ID)
	return MoveNode{ID: s.ID, NewParent: oldParent, Pos: oldPos}, nil
}

func (s MoveNode) Map(mapping *Mapping) Step {
	return MoveNode{ID: mapping.Resolve(s.ID), NewParent: mapping.Resolve(s.NewParent), Pos: s.Pos}
}
