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

import (
	"github.com/moduforge/moduforge-go/pkg/doc"
	"github.com/moduforge/moduforge-go/pkg/schema"
)

// SetAttribute sets ID's attrs[Key] = Value (spec.md §3).
type SetAttribute struct {
	ID    doc.NodeID
	Key   string
	Value schema.Value
}

func (s SetAttribute) TypeID() string { return "set_attribute" }

func (s SetAttribute) Apply(pool *doc.NodePool) (*doc.NodePool, error) {
	out, err := pool.WithAttr(s.ID, s.Key, s.Value)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return out, nil
}

// Invert restores the pre-apply value, or removes the attribute entirely
// if it was not explicitly set before.
func (s SetAttribute) Invert(pre *doc.NodePool) (Step, error) {
	n, ok := pre.Get(s.ID)
	if !ok {
		return nil, newStepError(NodeNotFound, s.TypeID(), errNodeHasNoParent(s.ID))
	}
	if old, present := n.Attrs.Get(s.Key); present {
		return SetAttribute{ID: s.ID, Key: s.Key, Value: old}, nil
	}
	return RemoveAttribute{ID: s.ID, Key: s.Key}, nil
}

func (s SetAttribute) Map(mapping *Mapping) Step {
	return SetAttribute{ID: mapping.Resolve(s.ID), Key: s.Key, Value: s.Value}
}

// Merge collapses two SetAttribute steps on the same (id, key) to the
// later value (spec.md §4.3).
func (s SetAttribute) Merge(other Step) (Step, bool) {
	o, ok := other.(SetAttribute)
	if !ok || o.ID != s.ID || o.Key != s.Key {
		return nil, false
	}
	return o, true
}

// RemoveAttribute deletes Key from ID's attrs (spec.md §3).
type RemoveAttribute struct {
	ID  doc.NodeID
	Key string
}

func (s RemoveAttribute) TypeID() string { return "remove_attribute" }

func (s RemoveAttribute) Apply(pool *doc.NodePool) (*doc.NodePool, error) {
	out, err := pool.WithAttrRemoved(s.ID, s.Key)
	if err != nil {
		return nil, classifyDocError(s.TypeID(), err)
	}
	return out, nil
}

// Invert restores the pre-apply value if one was present; otherwise the
// inverse is itself a no-op RemoveAttribute.
func (s RemoveAttribute) Invert(pre *doc.NodePool) (Step, error) {
	n, ok := pre.Get(s.ID)
	if !ok {
		return nil, newStepError(NodeNotFound, s.TypeID(), errNodeHasNoParent(s.ID))
	}
	if old, present := n.Attrs.Get(s.Key); present {
		return SetAttribute{ID: s.ID, Key: s.Key, Value: old}, nil
	}
	return RemoveAttribute{ID: s.ID, Key: s.Key}, nil
}

func (s RemoveAttribute) Map(mapping *Mapping) Step {
	return RemoveAttribute{ID: mapping.Resolve(s.ID), Key: s.Key}
}
