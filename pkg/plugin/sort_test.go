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

package plugin

import (
	"context"
	"testing"

	"github.com/moduforge/moduforge-go/pkg/transform"
	"github.com/stretchr/testify/assert"
)

type stubPlugin struct {
	key      Key
	priority int32
	tag      int
}

func (s stubPlugin) Key() Key                  { return s.key }
func (s stubPlugin) Priority() int32           { return s.priority }
func (s stubPlugin) StateField() StateField    { return nil }
func (s stubPlugin) FilterTransaction(ctx context.Context, tr *transform.CommittedTransaction, state State) (bool, error) {
	return true, nil
}
func (s stubPlugin) AppendTransaction(ctx context.Context, prev, current State, transactionsSoFar []*transform.CommittedTransaction, startIdx int) (*transform.Transaction, error) {
	return nil, nil
}

func TestSortByPriorityDescending(t *testing.T) {
	t.Parallel()
	a := stubPlugin{key: "a", priority: 10}
	b := stubPlugin{key: "b", priority: 0}
	sorted := SortByPriority([]Plugin{b, a})
	assert.Equal(t, Key("a"), sorted[0].Key())
	assert.Equal(t, Key("b"), sorted[1].Key())
}

func TestSortByPriorityTiesBreakByKeyThenRegistrationOrder(t *testing.T) {
	t.Parallel()
	b := stubPlugin{key: "b", priority: 5}
	a := stubPlugin{key: "a", priority: 5}
	sorted := SortByPriority([]Plugin{b, a})
	assert.Equal(t, Key("a"), sorted[0].Key())
	assert.Equal(t, Key("b"), sorted[1].Key())

	same1 := stubPlugin{key: "x", priority: 5, tag: 1}
	same2 := stubPlugin{key: "x", priority: 5, tag: 2}
	sorted = SortByPriority([]Plugin{same1, same2})
	assert.Equal(t, 2, len(sorted))
	assert.Equal(t, Plugin(same1), sorted[0])
	assert.Equal(t, Plugin(same2), sorted[1])
}
