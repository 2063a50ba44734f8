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
	"reflect"
	"testing"

	"github.com/moduforge/moduforge-go/pkg/doc"
	"github.com/moduforge/moduforge-go/pkg/schema"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func nestedSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.Compile(schema.SchemaSpec{
		TopNode: "root",
		Nodes: []schema.NamedNodeSpec{
			{Name: "root", Spec: schema.NodeTypeSpec{Content: "branch*"}},
			{Name: "branch", Spec: schema.NodeTypeSpec{Content: "branch*"}},
		},
	})
	require.NoError(t, err)
	return sch
}

// chainDoc builds root -> branch -> branch -> ... -> branch, depth levels
// deep, returning every id from root to leaf in order.
func chainDoc(t *testing.T, sch *schema.Schema, depth int) (*doc.NodePool, []doc.NodeID) {
	t.Helper()
	pool, err := doc.EmptyDoc(sch)
	require.NoError(t, err)
	ids := []doc.NodeID{pool.RootID()}
	parent := pool.RootID()
	for i := 0; i < depth; i++ {
		childID := doc.NewNodeID()
		subtree := map[doc.NodeID]doc.Node{childID: doc.NewNode(childID, "branch", schema.NewAttrs(), nil, "")}
		pool, err = pool.WithInserted(parent, 0, subtree, childID)
		require.NoError(t, err)
		ids = append(ids, childID)
		parent = childID
	}
	return pool, ids
}

// TestPropertyInvertRoundTrip covers spec.md §8 property 2 for SetAttribute
// steps: for a SetAttribute s on a random node of a chain doc d, with
// s.Apply(d) = d', s.Invert(d) applied to d' reproduces the touched
// attribute's presence and value exactly.
func TestPropertyInvertRoundTrip(t *testing.T) {
	t.Parallel()
	sch := nestedSchema(t)
	rapid.Check(t, func(t *rapid.T) {
		pool, ids := chainDoc(t, sch, 4)
		targetID := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "target")]
		key := rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "key")
		value := rapid.Int().Draw(t, "value")

		before, _ := pool.Get(targetID)
		beforeVal, beforePresent := before.Attrs.Get(key)

		step := SetAttribute{ID: targetID, Key: key, Value: value}
		next, err := step.Apply(pool)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		inv, err := step.Invert(pool)
		if err != nil {
			t.Fatalf("invert failed: %v", err)
		}
		restored, err := inv.Apply(next)
		if err != nil {
			t.Fatalf("invert-apply failed: %v", err)
		}

		after, _ := restored.Get(targetID)
		afterVal, afterPresent := after.Attrs.Get(key)
		if beforePresent != afterPresent {
			t.Fatalf("presence mismatch: before=%v after=%v", beforePresent, afterPresent)
		}
		if beforePresent && !reflect.DeepEqual(beforeVal, afterVal) {
			t.Fatalf("value mismatch: before=%v after=%v", beforeVal, afterVal)
		}
	})
}

// TestPropertyTransactionInvertRoundTrip covers spec.md §8 property 3 for
// transactions of one to five SetAttribute steps on a single node:
// Reverse(tr.InverseSteps, tr.AfterDoc) reproduces every attribute
// tr.BeforeDoc held on that node.
func TestPropertyTransactionInvertRoundTrip(t *testing.T) {
	t.Parallel()
	sch := nestedSchema(t)
	rapid.Check(t, func(t *rapid.T) {
		pool, ids := chainDoc(t, sch, 4)
		targetID := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "target")]

		n := rapid.IntRange(1, 5).Draw(t, "n_steps")
		tr := New(1, pool)
		for i := 0; i < n; i++ {
			key := rapid.StringMatching(`[a-z]{1,4}`).Draw(t, "key")
			value := rapid.Int().Draw(t, "value")
			if err := tr.Step(SetAttribute{ID: targetID, Key: key, Value: value}); err != nil {
				t.Fatalf("step %d failed: %v", i, err)
			}
		}
		committed, err := tr.Commit()
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		restored, err := Reverse(committed.InverseSteps, committed.AfterDoc)
		if err != nil {
			t.Fatalf("reverse failed: %v", err)
		}

		wantNode, _ := committed.BeforeDoc.Get(targetID)
		gotNode, _ := restored.Get(targetID)
		if !wantNode.Attrs.Equal(gotNode.Attrs) {
			t.Fatalf("attrs mismatch after reverse: want %v got %v", wantNode.Attrs, gotNode.Attrs)
		}
	})
}

// TestPropertyStructuralSharing covers spec.md §8 property 5: a SetAttribute
// on a deep node touches exactly that node's entry; every other node in the
// pool compares byte-identical before and after, regardless of the chain's
// depth.
func TestPropertyStructuralSharing(t *testing.T) {
	t.Parallel()
	sch := nestedSchema(t)
	rapid.Check(t, func(t *rapid.T) {
		depth := rapid.IntRange(1, 12).Draw(t, "depth")
		pool, ids := chainDoc(t, sch, depth)
		leafID := ids[len(ids)-1]

		before := map[doc.NodeID]doc.Node{}
		for _, id := range ids {
			n, _ := pool.Get(id)
			before[id] = n
		}

		next, err := pool.WithAttr(leafID, "touched", true)
		if err != nil {
			t.Fatalf("with_attr failed: %v", err)
		}

		changed := 0
		for _, id := range ids {
			n, _ := next.Get(id)
			if !reflect.DeepEqual(before[id], n) {
				changed++
			}
		}
		if changed != 1 {
			t.Fatalf("expected exactly 1 changed node entry regardless of chain depth %d, got %d", depth, changed)
		}
	})
}
