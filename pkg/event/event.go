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

// Package event implements the engine's single-process publish-subscribe
// bus, shared by every State derived from the same Configuration (spec.md
// §4.7/§6).
package event

import "sync"

// Name identifies one of the four events the engine ever emits.
type Name string

const (
	// StateCreated fires once, at the end of State.Create.
	StateCreated Name = "state_created"
	// TransactionApplied fires once per accepted transaction during apply,
	// in acceptance order.
	TransactionApplied Name = "transaction_applied"
	// StateChanged fires once per successful apply, after every
	// TransactionApplied event for that apply.
	StateChanged Name = "state_changed"
	// TransactionFiltered fires when Phase 1 of apply rejects the submitted
	// transaction, either because a plugin vetoed it or because a plugin's
	// FilterTransaction returned an error. A veto of an appended transaction
	// in Phase 3 does not fire it.
	TransactionFiltered Name = "transaction_filtered"
)

// Event is the payload delivered to subscribers (spec.md §6 "external
// interfaces"). Transaction and State are carried as `any` rather than
// concrete types to avoid an import cycle back to pkg/transform/pkg/state;
// handlers type-assert to the concrete type they expect.
type Event struct {
	Name          Name
	TransactionID uint64
	StateVersion  uint64
	Transaction   any
	State         any
}

// Handler receives events for the Name it was registered under.
type Handler func(Event)

// Bus is a synchronous, single-process pub-sub bus. Subscribers for one
// event name are invoked in registration order; there is no ordering
// guarantee between different event names. Handlers run in the caller's
// goroutine, so a slow handler slows the Publish call (spec.md §4.7).
type Bus struct {
	mu       sync.Mutex
	handlers map[Name][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: map[Name][]Handler{}}
}

// Subscribe registers handler to run on every future Publish of name.
func (b *Bus) Subscribe(name Name, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish invokes every handler registered for evt.Name, in registration
// order. The bus's own lock is released before any handler runs, so a
// handler that calls back into Subscribe does not deadlock (spec.md §5
// locking discipline: never hold a lock across a plugin/handler call).
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[evt.Name]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(evt)
	}
}
