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
	"fmt"
	"reflect"
	"sync"

	"github.com/iancoleman/strcase"
)

// DeserializeFunc reconstructs a Step from its serialized parameters
// (spec.md §6 step serialization contract).
type DeserializeFunc func(data []byte) (Step, error)

// StepFactoryRegistry maps a Step's type_id to the function that
// deserializes it, as required by persistence and collaboration hosts
// (spec.md §6). Unknown type_id during replay is a hard error, not a skip.
type StepFactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]DeserializeFunc
}

// NewStepFactoryRegistry returns an empty registry; callers register each
// type_id's DeserializeFunc themselves, including for the built-in step
// variants, since this package has no wire format of its own to decode them
// from (spec.md §6 leaves serialization to the host).
func NewStepFactoryRegistry() *StepFactoryRegistry {
	r := &StepFactoryRegistry{factories: map[string]DeserializeFunc{}}
	return r
}

// Register binds typeID to fn. Registering an already-bound typeID
// overwrites the prior binding (host-controlled, not engine policy).
func (r *StepFactoryRegistry) Register(typeID string, fn DeserializeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeID] = fn
}

// Deserialize looks up typeID and invokes its factory. An unregistered
// typeID is a hard error per spec.md §6.
func (r *StepFactoryRegistry) Deserialize(typeID string, data []byte) (Step, error) {
	r.mu.RLock()
	fn, ok := r.factories[typeID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transform: unknown step type_id %q", typeID)
	}
	return fn(data)
}

// DeriveTypeID produces a stable type_id string for a host-defined custom
// Step from its Go type name (e.g. *myhost.InsertTableStep -> "insert_table_step"),
// the same case-conversion convention the built-in steps' literal type_id
// strings follow.
func DeriveTypeID(step Step) string {
	t := reflect.TypeOf(step)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return strcase.ToSnake(t.Name())
}
