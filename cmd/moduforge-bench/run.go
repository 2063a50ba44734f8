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

package main

import (
	"context"

	"github.com/moduforge/moduforge-go/pkg/doc"
	"github.com/moduforge/moduforge-go/pkg/logging"
	"github.com/moduforge/moduforge-go/pkg/plugin"
	"github.com/moduforge/moduforge-go/pkg/schema"
	"github.com/moduforge/moduforge-go/pkg/state"
	"github.com/moduforge/moduforge-go/pkg/transform"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the Counter + Autosave scenario from a fresh state (spec.md §8 Scenario C)",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			return runScenario(logging.NewLogrus(log))
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every plugin step at debug level")
	return cmd
}

// counterField mirrors spec.md §8 Scenario C's Counter plugin: count starts
// at 0 and increments once per applied transaction.
type counterField struct{}

func (counterField) Init(plugin.Configuration, plugin.State) (any, error) { return uint64(0), nil }

func (counterField) Apply(_ *transform.CommittedTransaction, prevValue any, _, _ plugin.State) (any, error) {
	return prevValue.(uint64) + 1, nil
}

func (counterField) Serialize(value any) ([]byte, error) { return nil, nil }
func (counterField) Deserialize([]byte) (any, error)      { return uint64(0), nil }

type counterPlugin struct{}

func (counterPlugin) Key() plugin.Key               { return "counter" }
func (counterPlugin) Priority() int32               { return 10 }
func (counterPlugin) StateField() plugin.StateField { return counterField{} }

func (counterPlugin) FilterTransaction(context.Context, *transform.CommittedTransaction, plugin.State) (bool, error) {
	return true, nil
}

func (counterPlugin) AppendTransaction(context.Context, plugin.State, plugin.State, []*transform.CommittedTransaction, int) (*transform.Transaction, error) {
	return nil, nil
}

// autosavePlugin mirrors spec.md §8 Scenario C's Autosave plugin: when the
// latest accepted transaction carries "autosave_needed" metadata, it appends
// a transaction recording the counter's current value onto the root.
type autosavePlugin struct {
	rootID doc.NodeID
}

func (autosavePlugin) Key() plugin.Key               { return "autosave" }
func (autosavePlugin) Priority() int32               { return 0 }
func (autosavePlugin) StateField() plugin.StateField { return nil }

func (autosavePlugin) FilterTransaction(context.Context, *transform.CommittedTransaction, plugin.State) (bool, error) {
	return true, nil
}

func (p autosavePlugin) AppendTransaction(_ context.Context, _ plugin.State, current plugin.State, accepted []*transform.CommittedTransaction, _ int) (*transform.Transaction, error) {
	latest := accepted[len(accepted)-1]
	needed, _ := latest.Metadata.Get("autosave_needed")
	if v, ok := needed.(bool); !ok || !v {
		return nil, nil
	}
	cs := current.(*state.State)
	count, _ := cs.Field("counter")
	tr := transform.New(0, cs.Doc())
	if err := tr.Step(transform.SetAttribute{ID: p.rootID, Key: "last_saved_count", Value: count}); err != nil {
		return nil, err
	}
	return tr, nil
}

func runScenario(log logging.Logger) error {
	sch, err := schema.Compile(schema.SchemaSpec{
		TopNode: "root",
		Nodes: []schema.NamedNodeSpec{
			{Name: "root", Spec: schema.NodeTypeSpec{Content: ""}},
		},
	})
	if err != nil {
		return err
	}

	bootstrap, err := state.Create(state.Configuration{Schema: sch})
	if err != nil {
		return err
	}
	rootID := bootstrap.Doc().RootID()

	config := state.NewBuilder(sch).
		WithPlugin(counterPlugin{}).
		WithPlugin(autosavePlugin{rootID: rootID}).
		WithLogger(log).
		Build()

	s0, err := state.Create(config)
	if err != nil {
		return err
	}
	log.Info("state created", logging.Fields{"version": s0.Version()})

	tr := transform.New(1, s0.Doc())
	if err := tr.Step(transform.SetAttribute{ID: rootID, Key: "title", Value: "hello"}); err != nil {
		return err
	}
	tr.WithMetadata("autosave_needed", true)
	committed, err := tr.Commit()
	if err != nil {
		return err
	}

	out, err := s0.Apply(context.Background(), committed)
	if err != nil {
		return err
	}

	count, _ := out.State.Field("counter")
	root, _ := out.State.Doc().Get(rootID)
	lastSaved, _ := root.Attrs.Get("last_saved_count")
	log.Info("apply complete", logging.Fields{
		"accepted_transactions": len(out.Transactions),
		"version":               out.State.Version(),
		"counter":               count,
		"last_saved_count":      lastSaved,
	})
	return nil
}
