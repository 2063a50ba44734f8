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

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeDeliversInRegistrationOrder(t *testing.T) {
	t.Parallel()
	b := NewBus()
	var order []string
	b.Subscribe(StateChanged, func(Event) { order = append(order, "first") })
	b.Subscribe(StateChanged, func(Event) { order = append(order, "second") })

	b.Publish(Event{Name: StateChanged, StateVersion: 1})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublishOnlyInvokesMatchingName(t *testing.T) {
	t.Parallel()
	b := NewBus()
	var fired []Name
	b.Subscribe(StateCreated, func(e Event) { fired = append(fired, e.Name) })
	b.Subscribe(TransactionFiltered, func(e Event) { fired = append(fired, e.Name) })

	b.Publish(Event{Name: StateCreated})

	assert.Equal(t, []Name{StateCreated}, fired)
}

func TestHandlerMaySubscribeDuringPublishWithoutDeadlock(t *testing.T) {
	t.Parallel()
	b := NewBus()
	done := make(chan struct{})
	b.Subscribe(StateCreated, func(Event) {
		b.Subscribe(StateCreated, func(Event) {})
		close(done)
	})
	b.Publish(Event{Name: StateCreated})
	<-done
}
