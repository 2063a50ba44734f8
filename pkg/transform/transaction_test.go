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
	"testing"

	"github.com/moduforge/moduforge-go/pkg/doc"
	"github.com/moduforge/moduforge-go/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.Compile(schema.SchemaSpec{
		TopNode: "root",
		Nodes: []schema.NamedNodeSpec{
			{Name: "root", Spec: schema.NodeTypeSpec{Content: "para*"}},
			{Name: "para", Spec: schema.NodeTypeSpec{Content: "text*"}},
			{Name: "text", Spec: schema.NodeTypeSpec{Inline: true, Text: true}},
		},
	})
	require.NoError(t, err)
	return sch
}

// TestScenarioA mirrors spec.md §8 Scenario A: add-then-remove round-trips.
func TestScenarioA_AddThenRemoveRoundTrips(t *testing.T) {
	t.Parallel()
	sch := docSchema(t)
	pool, err := doc.EmptyDoc(sch)
	require.NoError(t, err)
	rootID := pool.RootID()

	textID := doc.NewNodeID()
	paraID := doc.NewNodeID()
	subtree := map[doc.NodeID]doc.Node{
		paraID: doc.NewNode(paraID, "para", schema.NewAttrs(), []doc.NodeID{textID}, ""),
		textID: doc.NewNode(textID, "text", schema.NewAttrs(), nil, "hello"),
	}

	tr1 := New(1, pool)
	require.NoError(t, tr1.Step(AddNode{Parent: rootID, Pos: 0, Subtree: subtree, SubtreeRoot: paraID}))
	committed1, err := tr1.Commit()
	require.NoError(t, err)
	assert.Len(t, committed1.Steps, 1)
	assert.Len(t, committed1.InverseSteps, 1)

	kids, ok := committed1.AfterDoc.ChildIDs(rootID)
	require.True(t, ok)
	assert.Equal(t, []doc.NodeID{paraID}, kids)

	// Transaction T2 built from T1's inverse.
	tr2 := New(2, committed1.AfterDoc)
	require.NoError(t, tr2.Step(committed1.InverseSteps[0]))
	committed2, err := tr2.Commit()
	require.NoError(t, err)

	kids, ok = committed2.AfterDoc.ChildIDs(rootID)
	require.True(t, ok)
	assert.Empty(t, kids)
	assert.Equal(t, 1, committed2.AfterDoc.Len())
}

// TestScenarioD mirrors spec.md §8 Scenario D: cycle prevention on move.
func TestScenarioD_MoveCyclePrevention(t *testing.T) {
	t.Parallel()
	sch, err := schema.Compile(schema.SchemaSpec{
		TopNode: "root",
		Nodes: []schema.NamedNodeSpec{
			{Name: "root", Spec: schema.NodeTypeSpec{Content: "container*"}},
			{Name: "container", Spec: schema.NodeTypeSpec{Content: "container*"}},
		},
	})
	require.NoError(t, err)
	pool, err := doc.EmptyDoc(sch)
	require.NoError(t, err)

	bID, cID := doc.NewNodeID(), doc.NewNodeID()
	subtree := map[doc.NodeID]doc.Node{
		bID: doc.NewNode(bID, "container", schema.NewAttrs(), []doc.NodeID{cID}, ""),
		cID: doc.NewNode(cID, "container", schema.NewAttrs(), nil, ""),
	}
	pool, err = pool.WithInserted(pool.RootID(), 0, subtree, bID)
	require.NoError(t, err)

	tr := New(1, pool)
	err = tr.Step(MoveNode{ID: bID, NewParent: cID, Pos: 0})
	require.Error(t, err)
	assert.True(t, tr.Poisoned())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, WouldCreateCycleKind, stepErr.Kind)

	_, err = tr.Commit()
	require.Error(t, err)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, Poisoned, txErr.Kind)
}

func TestCommitEmptyTransactionFails(t *testing.T) {
	t.Parallel()
	sch := docSchema(t)
	pool, err := doc.EmptyDoc(sch)
	require.NoError(t, err)

	tr := New(1, pool)
	_, err = tr.Commit()
	require.Error(t, err)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, Empty, txErr.Kind)
}

func TestSetAttributeInvertRoundTrip(t *testing.T) {
	t.Parallel()
	sch, err := schema.Compile(schema.SchemaSpec{
		TopNode: "root",
		Nodes: []schema.NamedNodeSpec{
			{Name: "root", Spec: schema.NodeTypeSpec{Content: ""}},
		},
	})
	require.NoError(t, err)
	pool, err := doc.EmptyDoc(sch)
	require.NoError(t, err)
	rootID := pool.RootID()

	step := SetAttribute{ID: rootID, Key: "locked", Value: true}
	next, err := step.Apply(pool)
	require.NoError(t, err)

	inv, err := step.Invert(pool)
	require.NoError(t, err)
	restored, err := inv.Apply(next)
	require.NoError(t, err)

	root, _ := restored.Get(rootID)
	_, present := root.Attrs.Get("locked")
	assert.False(t, present)
}

func TestSetAttributeMerge(t *testing.T) {
	t.Parallel()
	id := doc.NewNodeID()
	first := SetAttribute{ID: id, Key: "x", Value: 1}
	second := SetAttribute{ID: id, Key: "x", Value: 2}

	merged, ok := first.Merge(second)
	require.True(t, ok)
	assert.Equal(t, second, merged)
}

func TestStepFactoryRegistryUnknownTypeID(t *testing.T) {
	t.Parallel()
	r := NewStepFactoryRegistry()
	_, err := r.Deserialize("nonexistent", nil)
	require.Error(t, err)
}

func TestStepFactoryRegistryRoundTrip(t *testing.T) {
	t.Parallel()
	r := NewStepFactoryRegistry()
	id := doc.NewNodeID()
	r.Register("remove_node", func(data []byte) (Step, error) {
		return RemoveNode{ID: id}, nil
	})
	s, err := r.Deserialize("remove_node", nil)
	require.NoError(t, err)
	assert.Equal(t, RemoveNode{ID: id}, s)
}
