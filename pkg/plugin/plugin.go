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

// Package plugin declares the engine's one extension point: a Plugin that
// may veto or append transactions and own a per-State StateField (spec.md
// §4.5). Neither interface is implemented here; pkg/state sorts and drives
// registered plugins through the apply pipeline.
package plugin

import (
	"context"

	"github.com/moduforge/moduforge-go/pkg/transform"
)

// Key uniquely and stably identifies a Plugin within a Configuration.
type Key string

// Plugin is a non-mutating extension to the apply pipeline. Implementations
// must not mutate State, Transaction, or StateField values they are handed;
// every method returns new values instead.
type Plugin interface {
	// Key returns the plugin's unique, stable identifier.
	Key() Key

	// Priority is the sort key: higher runs earlier within a phase. Ties
	// break by Key (lexicographic), then by registration order.
	Priority() int32

	// StateField returns the plugin's owned per-state value field, or nil
	// if the plugin carries no state.
	StateField() StateField

	// FilterTransaction is a veto gate called in priority order during
	// Phase 1 of apply. Returning false aborts the apply with
	// TransactionFiltered naming this plugin. ctx carries the suspension
	// point the engine does not hold any lock across (spec.md §5).
	FilterTransaction(ctx context.Context, tr *transform.CommittedTransaction, state State) (bool, error)

	// AppendTransaction may inspect the batch of transactions accepted
	// since startIdx and return a follow-up transaction, or nil. It cannot
	// modify any transaction already in transactionsSoFar.
	AppendTransaction(ctx context.Context, prev, current State, transactionsSoFar []*transform.CommittedTransaction, startIdx int) (*transform.Transaction, error)
}

// StateField is a plugin's owned value whose new version is derived from
// the old one on every accepted transaction (spec.md §4.5).
type StateField interface {
	// Init computes the field's initial value. stateUnderConstruction
	// exposes only fields of plugins sorted earlier by priority.
	Init(config Configuration, stateUnderConstruction State) (any, error)

	// Apply computes the field's next value for one accepted transaction.
	// If the result is byte-identical to prevValue, the engine may elide
	// the field-map replacement.
	Apply(tr *transform.CommittedTransaction, prevValue any, prevState, newState State) (any, error)

	// Serialize encodes value for persistence. Optional: a StateField that
	// does not support persistence may return an error.
	Serialize(value any) ([]byte, error)

	// Deserialize decodes bytes produced by Serialize back into a value.
	Deserialize(data []byte) (any, error)
}

// State and Configuration are the narrow read-only views a Plugin needs;
// pkg/state's concrete *State and *Configuration satisfy them. Declaring
// them here (rather than importing pkg/state) avoids an import cycle,
// since pkg/state must import pkg/plugin to drive registered plugins.
// Transactions, by contrast, need no such indirection: pkg/transform sits
// below both packages, so Plugin methods reference its concrete types
// directly.
type (
	State         interface{ stateMarker() }
	Configuration interface{ configurationMarker() }
)
