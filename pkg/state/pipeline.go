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

	"github.com/moduforge/moduforge-go/pkg/doc"
	"github.com/moduforge/moduforge-go/pkg/event"
	"github.com/moduforge/moduforge-go/pkg/logging"
	"github.com/moduforge/moduforge-go/pkg/plugin"
	"github.com/moduforge/moduforge-go/pkg/transform"
	"github.com/pkg/errors"
)

// ApplyOutput is the result of a successful State.Apply: the resulting
// state and every transaction accepted to reach it, in acceptance order
// (spec.md §4.6).
type ApplyOutput struct {
	State        *State
	Transactions []*transform.CommittedTransaction
}

// Apply runs tr through the three-phase pipeline (spec.md §4.6): filter,
// base apply, then the append fixed point. A failure at any phase returns
// the state unchanged; s itself is never mutated.
func (s *State) Apply(ctx context.Context, tr *transform.CommittedTransaction) (*ApplyOutput, error) {
	sorted := plugin.SortByPriority(s.config.Plugins)

	if err := s.runFilterPhase(ctx, tr, sorted); err != nil {
		if s.config.EventBus != nil {
			s.config.EventBus.Publish(event.Event{Name: event.TransactionFiltered, TransactionID: tr.ID, StateVersion: s.version, Transaction: tr})
		}
		return nil, err
	}

	if tr.BeforeDoc != s.doc {
		return nil, newStateError(Stale, "", "transaction's before-doc does not match the state's current doc")
	}

	current, err := s.applyFields(tr, sorted, tr.AfterDoc, s.version+1)
	if err != nil {
		return nil, err
	}
	prev := s
	accepted := []*transform.CommittedTransaction{tr}

	iteration := 0
	start := 0
	for {
		lenBefore := len(accepted)
		anyAppended := false
		for _, p := range sorted {
			appendTr, aerr := p.AppendTransaction(ctx, prev, current, accepted, start)
			if aerr != nil {
				return nil, wrapStateError(Field, p.Key(), aerr)
			}
			if appendTr == nil {
				continue
			}
			if appendTr.BeforeDoc() != current.doc {
				return nil, newStateError(BadAppend, p.Key(), "append transaction's before-doc does not match the current document")
			}
			committedAppend, cerr := appendTr.Commit()
			if cerr != nil {
				return nil, newStateError(BadAppend, p.Key(), cerr.Error())
			}
			if ferr := current.runFilterPhase(ctx, committedAppend, sorted); ferr != nil {
				var stateErr *Error
				if errors.As(ferr, &stateErr) && stateErr.Kind == Filtered {
					return nil, newStateError(AppendFiltered, stateErr.PluginKey, "appended transaction was filtered")
				}
				return nil, ferr
			}
			next, ferr := current.applyFields(committedAppend, sorted, committedAppend.AfterDoc, current.version+1)
			if ferr != nil {
				return nil, ferr
			}
			s.config.Logger.Debug("plugin appended a follow-up transaction", logging.Fields{"plugin": string(p.Key())})
			prev = current
			current = next
			accepted = append(accepted, committedAppend)
			anyAppended = true
		}
		if !anyAppended {
			break
		}
		start = lenBefore
		iteration++
		if iteration > s.config.AppendIterationLimit {
			return nil, newStateError(AppendLoopDiverged, "", "append_transaction fixed point exceeded the configured iteration limit")
		}
	}

	if s.config.EventBus != nil {
		for _, committed := range accepted {
			s.config.EventBus.Publish(event.Event{Name: event.TransactionApplied, TransactionID: committed.ID, StateVersion: current.version, Transaction: committed, State: current})
		}
		s.config.EventBus.Publish(event.Event{Name: event.StateChanged, StateVersion: current.version, State: current})
	}

	return &ApplyOutput{State: current, Transactions: accepted}, nil
}

// applyFields recomputes every plugin's StateField for one accepted
// transaction (spec.md §4.6 Phase 2). Each plugin sees fields already
// recomputed earlier in priority order on the state-under-construction, and
// its own prior value from s.
func (s *State) applyFields(tr *transform.CommittedTransaction, sorted []plugin.Plugin, newDoc *doc.NodePool, newVersion uint64) (*State, error) {
	building := &State{config: s.config, doc: newDoc, fields: s.fields, version: newVersion}
	for _, p := range sorted {
		sf := p.StateField()
		if sf == nil {
			continue
		}
		prevValue, _ := s.Field(p.Key())
		newValue, err := sf.Apply(tr, prevValue, s, building)
		if err != nil {
			return nil, wrapStateError(Field, p.Key(), err)
		}
		txn := building.fields.Txn()
		txn.Insert([]byte(p.Key()), newValue)
		building.fields = txn.Commit()
	}
	return building, nil
}

// runFilterPhase calls each plugin's FilterTransaction in priority order,
// stopping at the first plugin whose call errors or vetoes (spec.md §4.6
// Phase 1 pseudocode; spec.md's Ordering guarantee that plugins within a
// phase run in priority order). A lower-priority plugin is never invoked
// once a higher-priority one has already vetoed or errored.
func (s *State) runFilterPhase(ctx context.Context, tr *transform.CommittedTransaction, sorted []plugin.Plugin) error {
	for _, p := range sorted {
		ok, err := p.FilterTransaction(ctx, tr, s)
		if err != nil {
			return wrapStateError(Internal, p.Key(), errors.Wrapf(err, "plugin %q", p.Key()))
		}
		if !ok {
			s.config.Logger.Warn("transaction filtered", logging.Fields{"plugin": string(p.Key())})
			return newStateError(Filtered, p.Key(), "plugin vetoed the transaction")
		}
	}
	return nil
}
