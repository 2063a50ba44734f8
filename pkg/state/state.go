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
	iradix "github.com/hashicorp/go-immutable-radix/v2"
	"github.com/moduforge/moduforge-go/pkg/doc"
	"github.com/moduforge/moduforge-go/pkg/event"
	"github.com/moduforge/moduforge-go/pkg/logging"
	"github.com/moduforge/moduforge-go/pkg/plugin"
)

// State is an immutable snapshot: a document, every plugin's StateField
// value, and a version (spec.md §4.6). Every with_*-shaped transition
// returns a new State sharing whatever the transition did not touch.
type State struct {
	config  *Configuration
	doc     *doc.NodePool
	fields  *iradix.Tree[any]
	version uint64
}

func (s *State) stateMarker() {}

// Config returns the Configuration this State was created from.
func (s *State) Config() *Configuration { return s.config }

// Doc returns the state's current document.
func (s *State) Doc() *doc.NodePool { return s.doc }

// Version returns the state's version.
func (s *State) Version() uint64 { return s.version }

// Field returns the value of the StateField owned by key, if any plugin
// with that key has one.
func (s *State) Field(key plugin.Key) (any, bool) {
	return s.fields.Get([]byte(key))
}

// Create builds a State from config (spec.md §4.6 "Creation"): resolves the
// initial document, sorts plugins by priority, initializes each plugin's
// StateField in that order (earlier plugins' fields are visible to later
// Init calls, never the reverse), assigns version 0, and emits
// state_created.
func Create(config Configuration) (*State, error) {
	if config.Logger == nil {
		config.Logger = logging.Nop
	}
	if config.AppendIterationLimit <= 0 {
		config.AppendIterationLimit = defaultAppendIterationLimit
	}

	initialDoc := config.Doc
	if initialDoc == nil {
		d, err := doc.EmptyDoc(config.Schema)
		if err != nil {
			return nil, wrapStateError(InvalidConfiguration, "", err)
		}
		initialDoc = d
	}
	if initialDoc.Schema() != config.Schema {
		return nil, newStateError(InvalidConfiguration, "", "initial doc was not built against this configuration's schema")
	}

	sorted := plugin.SortByPriority(config.Plugins)
	building := &State{config: &config, doc: initialDoc, fields: iradix.New[any](), version: 0}

	for _, p := range sorted {
		sf := p.StateField()
		if sf == nil {
			continue
		}
		value, err := sf.Init(&config, building)
		if err != nil {
			return nil, wrapStateError(Field, p.Key(), err)
		}
		txn := building.fields.Txn()
		txn.Insert([]byte(p.Key()), value)
		building.fields = txn.Commit()
		config.Logger.Debug("state field initialized", logging.Fields{"plugin": string(p.Key())})
	}

	final := &State{config: &config, doc: building.doc, fields: building.fields, version: 0}
	if config.EventBus != nil {
		config.EventBus.Publish(event.Event{Name: event.StateCreated, StateVersion: 0, State: final})
	}
	return final, nil
}
