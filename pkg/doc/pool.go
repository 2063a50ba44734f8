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
	iradix "github.com/hashicorp/go-immutable-radix/v2"
	"github.com/moduforge/moduforge-go/pkg/schema"
)

// NodePool is the persistent, structurally-shared NodeId -> Node mapping
// plus root_id (spec.md §3/§4.2). NodePool has no equality method; the
// engine compares documents by *NodePool pointer identity, which is O(1)
// but does not treat two distinct NodePool values over the same radix tree
// as equal. Every with_* operation returns a new NodePool sharing every
// subtree it did not touch, backed by
// github.com/hashicorp/go-immutable-radix/v2 (the same structural-sharing
// strategy the teacher's container graph state uses).
type NodePool struct {
	schema *schema.Schema
	rootID NodeID
	nodes  *iradix.Tree[Node]
	// parent maps a child id to its parent id; the root has no entry. It is
	// maintained alongside nodes so with_removed/with_moved can locate a
	// node's parent without a full-tree scan.
	parent *iradix.Tree[NodeID]
}

func key(id NodeID) []byte { return []byte(id) }

// Schema returns the schema this pool's nodes were validated against.
func (p *NodePool) Schema() *schema.Schema { return p.schema }

// RootID returns the pool's root node id.
func (p *NodePool) RootID() NodeID { return p.rootID }

// Len returns the number of nodes in the pool.
func (p *NodePool) Len() int { return p.nodes.Len() }

// Get returns the node stored at id, if present.
func (p *NodePool) Get(id NodeID) (Node, bool) {
	return p.nodes.Get(key(id))
}

// ChildIDs returns the ordered child ids of id, if id is present.
func (p *NodePool) ChildIDs(id NodeID) ([]NodeID, bool) {
	n, ok := p.nodes.Get(key(id))
	if !ok {
		return nil, false
	}
	out := make([]NodeID, len(n.Children))
	copy(out, n.Children)
	return out, true
}

// EmptyDoc builds a single-node NodePool whose root is schema's top node
// type with its default attrs, no children, and a fresh NodeID.
func EmptyDoc(sch *schema.Schema) (*NodePool, error) {
	nt, ok := sch.NodeTypes[sch.TopNode]
	if !ok {
		return nil, newDocError(SchemaViolation, "", "schema has no top node type "+sch.TopNode)
	}
	root := NewNode(NewNodeID(), sch.TopNode, nt.DefaultAttrs, nil, "")
	return NewNodePool(sch, map[NodeID]Node{root.ID: root}, root.ID)
}

// NewNodePool builds a NodePool from a flat node set and a designated root,
// validating invariants 1-3 of spec.md §3: the root is present, every
// reachable node's children match its type's content model, and there are
// no orphans, cycles, or shared children. Any node in nodes not reachable
// from rootID is silently dropped, per the with_* orphan policy.
func NewNodePool(sch *schema.Schema, nodes map[NodeID]Node, rootID NodeID) (*NodePool, error) {
	if _, ok := nodes[rootID]; !ok {
		return nil, newDocError(NodeNotFound, rootID, "root id not present in node set")
	}

	visited := map[NodeID]bool{}
	parentOf := map[NodeID]NodeID{}
	order := []NodeID{rootID}
	visited[rootID] = true
	for i := 0; i < len(order); i++ {
		cur := order[i]
		n, ok := nodes[cur]
		if !ok {
			return nil, newDocError(NodeNotFound, cur, "referenced child missing from node set")
		}
		if err := validateChildrenAgainstSet(sch, nodes, n); err != nil {
			return nil, err
		}
		for _, c := range n.Children {
			if visited[c] {
				return nil, newDocError(WouldCreateCycle, c, "node has more than one parent or participates in a cycle")
			}
			visited[c] = true
			parentOf[c] = cur
			order = append(order, c)
		}
	}

	nodeTxn := iradix.New[Node]().Txn()
	parentTxn := iradix.New[NodeID]().Txn()
	for _, id := range order {
		nodeTxn.Insert(key(id), nodes[id])
		if pid, ok := parentOf[id]; ok {
			parentTxn.Insert(key(id), pid)
		}
	}
	return &NodePool{
		schema: sch,
		rootID: rootID,
		nodes:  nodeTxn.Commit(),
		parent: parentTxn.Commit(),
	}, nil
}

// validateChildrenAgainstSet checks n's children match n's type's content
// model, resolving child types from a flat (not-yet-committed) node set.
func validateChildrenAgainstSet(sch *schema.Schema, nodes map[NodeID]Node, n Node) error {
	names, err := childTypeNamesFromSet(nodes, n.Children)
	if err != nil {
		return err
	}
	if err := sch.ValidateChildren(n.Type, names); err != nil {
		return wrapDocError(SchemaViolation, n.ID, err)
	}
	return nil
}

// childTypeNames resolves each child id to its node type, in order.
func (p *NodePool) childTypeNames(children []NodeID) ([]string, error) {
	out := make([]string, len(children))
	for i, id := range children {
		n, ok := p.nodes.Get(key(id))
		if !ok {
			return nil, newDocError(NodeNotFound, id, "child id not present in pool")
		}
		out[i] = n.Type
	}
	return out, nil
}

func childTypeNamesFromSet(nodes map[NodeID]Node, children []NodeID) ([]string, error) {
	out := make([]string, len(children))
	for i, id := range children {
		n, ok := nodes[id]
		if !ok {
			return nil, newDocError(NodeNotFound, id, "child id not present in node set")
		}
		out[i] = n.Type
	}
	return out, nil
}

// clone returns a shallow copy of the pool's two trees (cheap: the radix
// trees themselves are immutable, so this only copies the struct).
func (p *NodePool) clone() *NodePool {
	return &NodePool{schema: p.schema, rootID: p.rootID, nodes: p.nodes, parent: p.parent}
}

func insertWithPos(children []NodeID, pos int, id NodeID) []NodeID {
	out := make([]NodeID, 0, len(children)+1)
	out = append(out, children[:pos]...)
	out = append(out, id)
	out = append(out, children[pos:]...)
	return out
}

func removeID(children []NodeID, id NodeID) []NodeID {
	out := make([]NodeID, 0, len(children))
	for _, c := range children {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// WithInserted returns a new NodePool with subtree's nodes added and
// parentID's children updated at pos (spec.md §4.2). Fails InvalidPosition
// if pos exceeds the parent's current child count.
func (p *NodePool) WithInserted(parentID NodeID, pos int, subtree map[NodeID]Node, subtreeRootID NodeID) (*NodePool, error) {
	parentNode, ok := p.Get(parentID)
	if !ok {
		return nil, newDocError(NodeNotFound, parentID, "insert target not present")
	}
	if pos < 0 || pos > len(parentNode.Children) {
		return nil, newDocError(InvalidPosition, parentID, "position exceeds child count")
	}
	if _, dup := subtree[subtreeRootID]; !dup {
		return nil, newDocError(NodeNotFound, subtreeRootID, "subtree root not present in subtree set")
	}
	for id := range subtree {
		if _, exists := p.Get(id); exists {
			return nil, newDocError(DuplicateNodeID, id, "subtree id already present in pool")
		}
	}

	newChildren := insertWithPos(parentNode.Children, pos, subtreeRootID)
	newParentTypes, err := mixedChildTypeNames(p, subtree, newChildren)
	if err != nil {
		return nil, err
	}
	if err := p.schema.ValidateChildren(parentNode.Type, newParentTypes); err != nil {
		return nil, wrapDocError(SchemaViolation, parentID, err)
	}

	subtreeParents, err := computeSubtreeParents(subtree, subtreeRootID, parentID)
	if err != nil {
		return nil, err
	}
	for id, n := range subtree {
		names, err := childTypeNamesFromSet(subtree, n.Children)
		if err != nil {
			return nil, err
		}
		if err := p.schema.ValidateChildren(n.Type, names); err != nil {
			return nil, wrapDocError(SchemaViolation, id, err)
		}
	}

	out := p.clone()
	nodeTxn := p.nodes.Txn()
	parentTxn := p.parent.Txn()
	nodeTxn.Insert(key(parentID), parentNode.withChildren(newChildren))
	for id, n := range subtree {
		nodeTxn.Insert(key(id), n)
	}
	for id, pid := range subtreeParents {
		parentTxn.Insert(key(id), pid)
	}
	out.nodes = nodeTxn.Commit()
	out.parent = parentTxn.Commit()
	return out, nil
}

func mixedChildTypeNames(p *NodePool, subtree map[NodeID]Node, children []NodeID) ([]string, error) {
	out := make([]string, len(children))
	for i, id := range children {
		if n, ok := subtree[id]; ok {
			out[i] = n.Type
			continue
		}
		n, ok := p.Get(id)
		if !ok {
			return nil, newDocError(NodeNotFound, id, "child id not present")
		}
		out[i] = n.Type
	}
	return out, nil
}

func computeSubtreeParents(subtree map[NodeID]Node, subtreeRootID, externalParent NodeID) (map[NodeID]NodeID, error) {
	out := map[NodeID]NodeID{subtreeRootID: externalParent}
	for id, n := range subtree {
		for _, c := range n.Children {
			if _, ok := subtree[c]; !ok {
				return nil, newDocError(NodeNotFound, c, "subtree child not present in subtree set")
			}
			out[c] = id
		}
	}
	return out, nil
}

// descendants returns id and every node transitively reachable from it via
// Children, by walking the live pool (not a detached subtree).
func (p *NodePool) descendants(id NodeID) ([]NodeID, error) {
	if _, ok := p.Get(id); !ok {
		return nil, newDocError(NodeNotFound, id, "not present")
	}
	out := []NodeID{id}
	for i := 0; i < len(out); i++ {
		cur, _ := p.Get(out[i])
		out = append(out, cur.Children...)
	}
	return out, nil
}

// ParentID returns id's parent, or ok=false if id is the root or absent.
func (p *NodePool) ParentID(id NodeID) (NodeID, bool) {
	return p.parent.Get(key(id))
}

// PositionOf returns id's index among its parent's children.
func (p *NodePool) PositionOf(id NodeID) (int, bool) {
	parentID, ok := p.ParentID(id)
	if !ok {
		return 0, false
	}
	parent, _ := p.Get(parentID)
	for i, c := range parent.Children {
		if c == id {
			return i, true
		}
	}
	return 0, false
}

// Subtree returns id and every node transitively reachable from it,
// snapshotting their current values — used by Step.Invert to capture a
// detached subtree before it is removed or replaced.
func (p *NodePool) Subtree(id NodeID) (map[NodeID]Node, error) {
	ids, err := p.descendants(id)
	if err != nil {
		return nil, err
	}
	out := make(map[NodeID]Node, len(ids))
	for _, d := range ids {
		out[d], _ = p.Get(d)
	}
	return out, nil
}

// WithRemoved returns a new NodePool with the subtree rooted at id
// detached from its parent and garbage-collected (spec.md §4.2). Fails
// CannotRemoveRoot if id is the pool's root.
func (p *NodePool) WithRemoved(id NodeID) (*NodePool, error) {
	if id == p.rootID {
		return nil, newDocError(CannotRemoveRoot, id, "cannot remove the document root")
	}
	parentID, ok := p.parent.Get(key(id))
	if !ok {
		return nil, newDocError(NodeNotFound, id, "not present")
	}
	parentNode, _ := p.Get(parentID)
	newChildren := removeID(parentNode.Children, id)
	names, err := p.childTypeNames(newChildren)
	if err != nil {
		return nil, err
	}
	if err := p.schema.ValidateChildren(parentNode.Type, names); err != nil {
		return nil, wrapDocError(SchemaViolation, parentID, err)
	}

	toDelete, err := p.descendants(id)
	if err != nil {
		return nil, err
	}

	out := p.clone()
	nodeTxn := p.nodes.Txn()
	parentTxn := p.parent.Txn()
	nodeTxn.Insert(key(parentID), parentNode.withChildren(newChildren))
	for _, d := range toDelete {
		nodeTxn.Delete(key(d))
		parentTxn.Delete(key(d))
	}
	out.nodes = nodeTxn.Commit()
	out.parent = parentTxn.Commit()
	return out, nil
}

// WithReplaced returns a new NodePool with the subtree rooted at id swapped
// for subtree, at the same position among its former siblings (spec.md
// §4.2). Replacing the document root is permitted and simply swaps the
// whole tree.
func (p *NodePool) WithReplaced(id NodeID, subtree map[NodeID]Node, subtreeRootID NodeID) (*NodePool, error) {
	if _, ok := subtree[subtreeRootID]; !ok {
		return nil, newDocError(NodeNotFound, subtreeRootID, "subtree root not present in subtree set")
	}
	for nid := range subtree {
		if nid == id {
			continue
		}
		if _, exists := p.Get(nid); exists {
			return nil, newDocError(DuplicateNodeID, nid, "subtree id already present in pool")
		}
	}
	for nid, n := range subtree {
		names, err := childTypeNamesFromSet(subtree, n.Children)
		if err != nil {
			return nil, err
		}
		if err := p.schema.ValidateChildren(n.Type, names); err != nil {
			return nil, wrapDocError(SchemaViolation, nid, err)
		}
	}

	if id == p.rootID {
		toDelete, err := p.descendants(id)
		if err != nil {
			return nil, err
		}
		subtreeParents, err := computeSubtreeParents(subtree, subtreeRootID, "")
		if err != nil {
			return nil, err
		}
		delete(subtreeParents, subtreeRootID)
		_ = toDelete // old subtree's ids are simply absent from the new trees

		out := p.clone()
		nodeTxn := iradix.New[Node]().Txn()
		parentTxn := iradix.New[NodeID]().Txn()
		for nid, n := range subtree {
			nodeTxn.Insert(key(nid), n)
		}
		for nid, pid := range subtreeParents {
			parentTxn.Insert(key(nid), pid)
		}
		out.rootID = subtreeRootID
		out.nodes = nodeTxn.Commit()
		out.parent = parentTxn.Commit()
		return out, nil
	}

	parentID, ok := p.parent.Get(key(id))
	if !ok {
		return nil, newDocError(NodeNotFound, id, "not present")
	}
	parentNode, _ := p.Get(parentID)
	newChildren := make([]NodeID, len(parentNode.Children))
	for i, c := range parentNode.Children {
		if c == id {
			newChildren[i] = subtreeRootID
		} else {
			newChildren[i] = c
		}
	}
	names, err := mixedChildTypeNames(p, subtree, newChildren)
	if err != nil {
		return nil, err
	}
	if err := p.schema.ValidateChildren(parentNode.Type, names); err != nil {
		return nil, wrapDocError(SchemaViolation, parentID, err)
	}

	toDelete, err := p.descendants(id)
	if err != nil {
		return nil, err
	}
	subtreeParents, err := computeSubtreeParents(subtree, subtreeRootID, parentID)
	if err != nil {
		return nil, err
	}

	out := p.clone()
	nodeTxn := p.nodes.Txn()
	parentTxn := p.parent.Txn()
	for _, d := range toDelete {
		nodeTxn.Delete(key(d))
		parentTxn.Delete(key(d))
	}
	nodeTxn.Insert(key(parentID), parentNode.withChildren(newChildren))
	for nid, n := range subtree {
		nodeTxn.Insert(key(nid), n)
	}
	for nid, pid := range subtreeParents {
		parentTxn.Insert(key(nid), pid)
	}
	out.nodes = nodeTxn.Commit()
	out.parent = parentTxn.Commit()
	return out, nil
}

// isAncestor reports whether candidate is id or an ancestor of id.
func (p *NodePool) isAncestor(candidate, id NodeID) bool {
	cur := id
	for {
		if cur == candidate {
			return true
		}
		pid, ok := p.parent.Get(key(cur))
		if !ok {
			return false
		}
		cur = pid
	}
}

// WithMoved returns a new NodePool with id relocated under newParentID at
// pos (spec.md §4.2). Fails WouldCreateCycle if newParentID is id itself or
// a descendant of id.
func (p *NodePool) WithMoved(id, newParentID NodeID, pos int) (*NodePool, error) {
	if id == p.rootID {
		return nil, newDocError(CannotRemoveRoot, id, "cannot move the document root")
	}
	if _, ok := p.Get(id); !ok {
		return nil, newDocError(NodeNotFound, id, "not present")
	}
	newParent, ok := p.Get(newParentID)
	if !ok {
		return nil, newDocError(NodeNotFound, newParentID, "new parent not present")
	}
	if p.isAncestor(id, newParentID) {
		return nil, newDocError(WouldCreateCycle, id, "new parent is id or a descendant of id")
	}
	oldParentID, _ := p.parent.Get(key(id))
	oldParent, _ := p.Get(oldParentID)

	sameParent := oldParentID == newParentID
	var finalOldChildren, finalNewChildren []NodeID
	if sameParent {
		without := removeID(oldParent.Children, id)
		clampPos := pos
		if clampPos < 0 || clampPos > len(without) {
			return nil, newDocError(InvalidPosition, newParentID, "position exceeds child count")
		}
		finalNewChildren = insertWithPos(without, clampPos, id)
		finalOldChildren = finalNewChildren
	} else {
		if pos < 0 || pos > len(newParent.Children) {
			return nil, newDocError(InvalidPosition, newParentID, "position exceeds child count")
		}
		finalOldChildren = removeID(oldParent.Children, id)
		finalNewChildren = insertWithPos(newParent.Children, pos, id)
	}

	oldNames, err := p.childTypeNames(finalOldChildren)
	if err != nil {
		return nil, err
	}
	if err := p.schema.ValidateChildren(oldParent.Type, oldNames); err != nil {
		return nil, wrapDocError(SchemaViolation, oldParentID, err)
	}
	if !sameParent {
		newNames, err := p.childTypeNames(finalNewChildren)
		if err != nil {
			return nil, err
		}
		if err := p.schema.ValidateChildren(newParent.Type, newNames); err != nil {
			return nil, wrapDocError(SchemaViolation, newParentID, err)
		}
	}

	out := p.clone()
	nodeTxn := p.nodes.Txn()
	parentTxn := p.parent.Txn()
	if sameParent {
		nodeTxn.Insert(key(oldParentID), oldParent.withChildren(finalOldChildren))
	} else {
		nodeTxn.Insert(key(oldParentID), oldParent.withChildren(finalOldChildren))
		nodeTxn.Insert(key(newParentID), newParent.withChildren(finalNewChildren))
		parentTxn.Insert(key(id), newParentID)
	}
	out.nodes = nodeTxn.Commit()
	out.parent = parentTxn.Commit()
	return out, nil
}

// WithAttr returns a new NodePool with id's attrs[key] set to value,
// validated against the node type's AttributeSpec validator if one exists.
func (p *NodePool) WithAttr(id NodeID, attrKey string, value schema.Value) (*NodePool, error) {
	n, ok := p.Get(id)
	if !ok {
		return nil, newDocError(NodeNotFound, id, "not present")
	}
	nt, ok := p.schema.NodeTypes[n.Type]
	if !ok {
		return nil, newDocError(SchemaViolation, id, "node's type no longer exists in schema")
	}
	if spec, ok := nt.Attrs[attrKey]; ok && spec.Validator != nil {
		if err := spec.Validator(value); err != nil {
			return nil, wrapDocError(SchemaViolation, id, err)
		}
	}
	out := p.clone()
	nodeTxn := p.nodes.Txn()
	nodeTxn.Insert(key(id), n.withAttr(attrKey, value))
	out.nodes = nodeTxn.Commit()
	return out, nil
}

// WithAttrRemoved returns a new NodePool with attrKey deleted from id's attrs.
func (p *NodePool) WithAttrRemoved(id NodeID, attrKey string) (*NodePool, error) {
	n, ok := p.Get(id)
	if !ok {
		return nil, newDocError(NodeNotFound, id, "not present")
	}
	out := p.clone()
	nodeTxn := p.nodes.Txn()
	nodeTxn.Insert(key(id), Node{ID: n.ID, Type: n.Type, Attrs: n.Attrs.Delete(attrKey), Marks: n.Marks, Children: n.Children, Text: n.Text})
	out.nodes = nodeTxn.Commit()
	return out, nil
}

// WithMark returns a new NodePool with mark attached to id, honoring the
// node type's allowed-marks policy and the mark type's additive/excludes
// policy (spec.md §3).
func (p *NodePool) WithMark(id NodeID, mark Mark) (*NodePool, error) {
	n, ok := p.Get(id)
	if !ok {
		return nil, newDocError(NodeNotFound, id, "not present")
	}
	nt, ok := p.schema.NodeTypes[n.Type]
	if !ok {
		return nil, newDocError(SchemaViolation, id, "node's type no longer exists in schema")
	}
	if !nt.AllowsMarkType(mark.Type) {
		return nil, newDocError(SchemaViolation, id, "mark type "+mark.Type+" is not allowed on "+n.Type)
	}
	mt, ok := p.schema.MarkTypes[mark.Type]
	if !ok {
		return nil, newDocError(SchemaViolation, id, "unknown mark type "+mark.Type)
	}
	out := p.clone()
	nodeTxn := p.nodes.Txn()
	nodeTxn.Insert(key(id), n.withMarkAdded(mt, mark))
	out.nodes = nodeTxn.Commit()
	return out, nil
}

// WithMarkRemoved returns a new NodePool with every mark of markType
// removed from id.
func (p *NodePool) WithMarkRemoved(id NodeID, markType string) (*NodePool, error) {
	n, ok := p.Get(id)
	if !ok {
		return nil, newDocError(NodeNotFound, id, "not present")
	}
	out := p.clone()
	nodeTxn := p.nodes.Txn()
	nodeTxn.Insert(key(id), n.withMarkRemoved(markType))
	out.nodes = nodeTxn.Commit()
	return out, nil
}
