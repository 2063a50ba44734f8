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

// Transaction is an append-only, in-progress record of steps applied
// against a snapshotted starting document (spec.md §4.3). Once a step has
// been added, earlier steps are never rewritten; a failing step poisons
// the transaction.
type Transaction struct {
	id           uint64
	beforeDoc    *doc.NodePool
	workingDoc   *doc.NodePool
	steps        []Step
	inverseSteps []Step
	metadata     schema.Attrs
	poisoned     bool
	poisonErr    error
}

// New snapshots the current doc and records id as the transaction's id
// (spec.md §4.3 step 1). The caller chooses id; neither this package nor
// pkg/state assigns ids or checks them for monotonicity.
func New(id uint64, current *doc.NodePool) *Transaction {
	return &Transaction{id: id, beforeDoc: current, workingDoc: current, metadata: schema.NewAttrs()}
}

// ID returns the transaction's assigned id.
func (tr *Transaction) ID() uint64 { return tr.id }

// Poisoned reports whether a prior step failed.
func (tr *Transaction) Poisoned() bool { return tr.poisoned }

// BeforeDoc returns the document this transaction was started against, used
// by State.Apply to validate a plugin-returned append transaction before
// committing it (spec.md §4.6 Phase 3).
func (tr *Transaction) BeforeDoc() *doc.NodePool { return tr.beforeDoc }

// Step applies s to the working document and records its inverse. On
// failure the transaction is poisoned: no further steps are accepted, but
// s and every step recorded before it remain in Steps for diagnostics
// (spec.md §4.3 step 2).
func (tr *Transaction) Step(s Step) error {
	if tr.poisoned {
		return newTransactionError(Poisoned, "transaction already poisoned by an earlier step failure")
	}
	inv, invErr := s.Invert(tr.workingDoc)
	if invErr != nil {
		tr.poisoned = true
		tr.poisonErr = invErr
		tr.steps = append(tr.steps, s)
		return invErr
	}
	next, err := s.Apply(tr.workingDoc)
	if err != nil {
		tr.poisoned = true
		tr.poisonErr = err
		tr.steps = append(tr.steps, s)
		return err
	}
	tr.workingDoc = next
	tr.steps = append(tr.steps, s)
	tr.inverseSteps = append(tr.inverseSteps, inv)
	return nil
}

// WithMetadata attaches an opaque key/value to the transaction. Merges
// within a single transaction are last-write-wins (spec.md §9 open
// question #3).
func (tr *Transaction) WithMetadata(key string, value schema.Value) *Transaction {
	tr.metadata = tr.metadata.Set(key, value)
	return tr
}

// Metadata returns the transaction's metadata as built so far.
func (tr *Transaction) Metadata() schema.Attrs { return tr.metadata }

// CommittedTransaction is a transaction that passed Commit and is ready
// for dispatch to State.Apply (spec.md §4.3 step 4).
type CommittedTransaction struct {
	ID           uint64
	Steps        []Step
	InverseSteps []Step
	BeforeDoc    *doc.NodePool
	AfterDoc     *doc.NodePool
	Metadata     schema.Attrs
}

// Commit finalizes the transaction. A poisoned or empty transaction
// cannot be committed.
func (tr *Transaction) Commit() (*CommittedTransaction, error) {
	if tr.poisoned {
		return nil, newTransactionError(Poisoned, tr.poisonErr.Error())
	}
	if len(tr.steps) == 0 {
		return nil, newTransactionError(Empty, "transaction has no steps")
	}
	return &CommittedTransaction{
		ID:           tr.id,
		Steps:        append([]Step(nil), tr.steps...),
		InverseSteps: append([]Step(nil), tr.inverseSteps...),
		BeforeDoc:    tr.beforeDoc,
		AfterDoc:     tr.workingDoc,
		Metadata:     tr.metadata,
	}, nil
}

// Compose concatenates a and b, valid only if a.AfterDoc is reference-equal
// to b.BeforeDoc (spec.md §4.3 composition rule). Metadata merges
// last-write-wins, with b's entries applied after a's.
func Compose(a, b *CommittedTransaction) (*CommittedTransaction, error) {
	if a.AfterDoc != b.BeforeDoc {
		return nil, newTransactionError(ComposeMismatch, "cannot compose transactions whose before/after docs do not match by reference")
	}
	merged := a.Metadata
	for _, k := range b.Metadata.Keys() {
		v, _ := b.Metadata.Get(k)
		merged = merged.Set(k, v)
	}
	return &CommittedTransaction{
		ID:           b.ID,
		Steps:        append(append([]Step(nil), a.Steps...), b.Steps...),
		InverseSteps: append(append([]Step(nil), a.InverseSteps...), b.InverseSteps...),
		BeforeDoc:    a.BeforeDoc,
		AfterDoc:     b.AfterDoc,
		Metadata:     merged,
	}, nil
}

// Reverse applies inverseSteps, in reverse order, to doc — used to
// validate the invert round-trip properties from spec.md §8.
func Reverse(inverseSteps []Step, d *doc.NodePool) (*doc.NodePool, error) {
	cur := d
	for i := len(inverseSteps) - 1; i >= 0; i-- {
		next, err := inverseSteps[i].Apply(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
