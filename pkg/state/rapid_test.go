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

package state

import (
	"context"
	"reflect"
	"testing"

	"github.com/moduforge/moduforge-go/pkg/doc"
	"github.com/moduforge/moduforge-go/pkg/plugin"
	"github.com/moduforge/moduforge-go/pkg/schema"
	"github.com/moduforge/moduforge-go/pkg/transform"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func branchSchema(t require.TestingT) *schema.Schema {
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

// validateConformanceAndReachability asserts spec.md §8 properties 6 and 7:
// every node's children satisfy its type's content model, and every node is
// reachable from root_id.
func validateConformanceAndReachability(t *rapid.T, d *doc.NodePool) {
	sch := d.Schema()
	visited := map[doc.NodeID]bool{}
	var walk func(id doc.NodeID)
	walk = func(id doc.NodeID) {
		if visited[id] {
			return
		}
		visited[id] = true
		n, ok := d.Get(id)
		if !ok {
			t.Fatalf("node %s listed as a child but missing from pool", id)
		}
		nt, ok := sch.NodeTypes[n.Type]
		if !ok {
			t.Fatalf("node %s has unknown type %q", id, n.Type)
		}
		childTypes := make([]string, len(n.Children))
		for i, cid := range n.Children {
			cn, ok := d.Get(cid)
			if !ok {
				t.Fatalf("child %s of %s missing from pool", cid, id)
			}
			childTypes[i] = cn.Type
		}
		if nt.ContentMatch != nil {
			m := nt.ContentMatch.MatchSequence(childTypes)
			if m == nil || !m.ValidEnd {
				t.Fatalf("node %s (type %s) children %v do not satisfy its content model", id, n.Type, childTypes)
			}
		}
		for _, cid := range n.Children {
			walk(cid)
		}
	}
	walk(d.RootID())
	if len(visited) != d.Len() {
		t.Fatalf("reachability violated: %d nodes reachable from root, %d nodes in pool", len(visited), d.Len())
	}
}

// TestPropertyApplyDeterminism covers spec.md §8 property 1: reapplying the
// same committed transaction to the same starting state twice (s0 is never
// mutated by apply) yields equal versions and equal field values both times.
func TestPropertyApplyDeterminism(t *testing.T) {
	t.Parallel()
	sch := branchSchema(t)
	rapid.Check(t, func(t *rapid.T) {
		config := NewBuilder(sch).WithPlugin(counterPlugin{key: "counter", priority: 0}).Build()
		s0, err := Create(config)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		value := rapid.Int().Draw(t, "value")
		tr := transform.New(1, s0.Doc())
		if err := tr.Step(transform.SetAttribute{ID: s0.Doc().RootID(), Key: "x", Value: value}); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		committed, err := tr.Commit()
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		out1, err := s0.Apply(context.Background(), committed)
		if err != nil {
			t.Fatalf("first apply failed: %v", err)
		}
		out2, err := s0.Apply(context.Background(), committed)
		if err != nil {
			t.Fatalf("second apply failed: %v", err)
		}

		if out1.State.Version() != out2.State.Version() {
			t.Fatalf("version mismatch across repeated applies: %d vs %d", out1.State.Version(), out2.State.Version())
		}
		c1, _ := out1.State.Field("counter")
		c2, _ := out2.State.Field("counter")
		if !reflect.DeepEqual(c1, c2) {
			t.Fatalf("counter field mismatch across repeated applies: %v vs %v", c1, c2)
		}
		n1, _ := out1.State.Doc().Get(s0.Doc().RootID())
		n2, _ := out2.State.Doc().Get(s0.Doc().RootID())
		if !n1.Attrs.Equal(n2.Attrs) {
			t.Fatalf("root attrs mismatch across repeated applies: %v vs %v", n1.Attrs, n2.Attrs)
		}
	})
}

// TestPropertyVersionMonotonicityAndConformance covers spec.md §8 properties
// 4, 6 and 7 together: after a successful apply that inserts a random batch
// of branch nodes, the version advances by exactly the accepted-transaction
// count, and the resulting doc is schema-conformant and fully reachable.
func TestPropertyVersionMonotonicityAndConformance(t *testing.T) {
	t.Parallel()
	sch := branchSchema(t)
	rapid.Check(t, func(t *rapid.T) {
		s0, err := Create(Configuration{Schema: sch})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		n := rapid.IntRange(1, 6).Draw(t, "n_nodes")
		rootID := s0.Doc().RootID()
		tr := transform.New(1, s0.Doc())
		for i := 0; i < n; i++ {
			id := doc.NewNodeID()
			subtree := map[doc.NodeID]doc.Node{id: doc.NewNode(id, "branch", schema.NewAttrs(), nil, "")}
			if err := tr.Step(transform.AddNode{Parent: rootID, Pos: 0, Subtree: subtree, SubtreeRoot: id}); err != nil {
				t.Fatalf("step %d failed: %v", i, err)
			}
		}
		committed, err := tr.Commit()
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		out, err := s0.Apply(context.Background(), committed)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if out.State.Version() != s0.Version()+uint64(len(out.Transactions)) {
			t.Fatalf("version monotonicity violated: got %d, want %d", out.State.Version(), s0.Version()+uint64(len(out.Transactions)))
		}
		validateConformanceAndReachability(t, out.State.Doc())
	})
}

// vetoingPlugin vetoes any transaction that sets attribute vetoKey on root.
type vetoingPlugin struct {
	key      plugin.Key
	priority int32
	vetoKey  string
}

func (p vetoingPlugin) Key() plugin.Key               { return p.key }
func (p vetoingPlugin) Priority() int32               { return p.priority }
func (p vetoingPlugin) StateField() plugin.StateField { return nil }
func (p vetoingPlugin) FilterTransaction(_ context.Context, tr *transform.CommittedTransaction, _ plugin.State) (bool, error) {
	for _, s := range tr.Steps {
		if sa, ok := s.(transform.SetAttribute); ok && sa.Key == p.vetoKey {
			return false, nil
		}
	}
	return true, nil
}
func (p vetoingPlugin) AppendTransaction(context.Context, plugin.State, plugin.State, []*transform.CommittedTransaction, int) (*transform.Transaction, error) {
	return nil, nil
}

// TestPropertyPluginPriorityNamesHighestVetoer covers spec.md §8 property 8:
// when two plugins both veto, the reported Filtered error names the one
// with the higher Priority, regardless of registration order or the actual
// priority values drawn (as long as they differ).
func TestPropertyPluginPriorityNamesHighestVetoer(t *testing.T) {
	t.Parallel()
	sch := branchSchema(t)
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.Int32Range(-1000, 1000).Draw(t, "lo")
		hi := rapid.Int32Range(lo+1, lo+1000).Draw(t, "hi")
		registerHighFirst := rapid.Bool().Draw(t, "register_high_first")

		builder := NewBuilder(sch)
		high := vetoingPlugin{key: "high", priority: hi, vetoKey: "locked_high"}
		low := vetoingPlugin{key: "low", priority: lo, vetoKey: "locked_low"}
		if registerHighFirst {
			builder = builder.WithPlugin(high).WithPlugin(low)
		} else {
			builder = builder.WithPlugin(low).WithPlugin(high)
		}
		s0, err := Create(builder.Build())
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		tr := transform.New(1, s0.Doc())
		if err := tr.Step(transform.SetAttribute{ID: s0.Doc().RootID(), Key: "locked_high", Value: true}); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		if err := tr.Step(transform.SetAttribute{ID: s0.Doc().RootID(), Key: "locked_low", Value: true}); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		committed, err := tr.Commit()
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		_, err = s0.Apply(context.Background(), committed)
		if err == nil {
			t.Fatalf("expected Filtered error, got none")
		}
		var stateErr *Error
		if !require.New(t).ErrorAs(err, &stateErr) {
			return
		}
		if stateErr.Kind != Filtered || stateErr.PluginKey != "high" {
			t.Fatalf("expected Filtered naming the higher-priority plugin, got kind=%v plugin=%v", stateErr.Kind, stateErr.PluginKey)
		}
	})
}

// silentPlugin never vetoes and never appends.
type silentPlugin struct{ key plugin.Key }

func (p silentPlugin) Key() plugin.Key               { return p.key }
func (p silentPlugin) Priority() int32               { return 0 }
func (p silentPlugin) StateField() plugin.StateField { return nil }
func (p silentPlugin) FilterTransaction(context.Context, *transform.CommittedTransaction, plugin.State) (bool, error) {
	return true, nil
}
func (p silentPlugin) AppendTransaction(context.Context, plugin.State, plugin.State, []*transform.CommittedTransaction, int) (*transform.Transaction, error) {
	return nil, nil
}

// TestPropertyAppendFixedPointSinglePassWhenNoneAppend covers spec.md §8
// property 9: with any number of plugins whose append_transaction always
// returns None, apply accepts exactly the one user transaction.
func TestPropertyAppendFixedPointSinglePassWhenNoneAppend(t *testing.T) {
	t.Parallel()
	sch := branchSchema(t)
	rapid.Check(t, func(t *rapid.T) {
		nPlugins := rapid.IntRange(0, 5).Draw(t, "n_plugins")
		builder := NewBuilder(sch)
		for i := 0; i < nPlugins; i++ {
			builder = builder.WithPlugin(silentPlugin{key: plugin.Key(rapid.StringMatching(`p[a-z]{1,4}`).Draw(t, "key"))})
		}
		s0, err := Create(builder.Build())
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		tr := transform.New(1, s0.Doc())
		if err := tr.Step(transform.SetAttribute{ID: s0.Doc().RootID(), Key: "x", Value: 1}); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		committed, err := tr.Commit()
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		out, err := s0.Apply(context.Background(), committed)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if len(out.Transactions) != 1 {
			t.Fatalf("expected exactly 1 accepted transaction with %d no-op plugins, got %d", nPlugins, len(out.Transactions))
		}
	})
}

// TestPropertyStaleRejectionAfterFirstApply covers spec.md §8 property 10:
// once a transaction's before_doc has been superseded by another apply, a
// second apply of that same transaction on the new state is rejected as
// Stale and leaves the new state unchanged.
func TestPropertyStaleRejectionAfterFirstApply(t *testing.T) {
	t.Parallel()
	sch := branchSchema(t)
	rapid.Check(t, func(t *rapid.T) {
		s0, err := Create(Configuration{Schema: sch})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		rootID := s0.Doc().RootID()

		tr1 := transform.New(1, s0.Doc())
		if err := tr1.Step(transform.SetAttribute{ID: rootID, Key: "a", Value: 1}); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		committed1, err := tr1.Commit()
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		v := rapid.Int().Draw(t, "v")
		tr2 := transform.New(2, s0.Doc())
		if err := tr2.Step(transform.SetAttribute{ID: rootID, Key: "b", Value: v}); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		committed2, err := tr2.Commit()
		if err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		out1, err := s0.Apply(context.Background(), committed1)
		if err != nil {
			t.Fatalf("first apply failed: %v", err)
		}
		s1 := out1.State
		versionBefore := s1.Version()

		_, err = s1.Apply(context.Background(), committed2)
		if err == nil {
			t.Fatalf("expected Stale error applying a transaction built against a superseded doc")
		}
		var stateErr *Error
		if !require.New(t).ErrorAs(err, &stateErr) {
			return
		}
		if stateErr.Kind != Stale {
			t.Fatalf("expected Stale, got %v", stateErr.Kind)
		}
		if s1.Version() != versionBefore {
			t.Fatalf("s1 was mutated by a failed apply: version changed from %d to %d", versionBefore, s1.Version())
		}
	})
}
