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

package schema

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// yamlSchemaDoc is the on-disk shape for a schema declared as data rather
// than as Go code (SPEC_FULL.md §2.3). Attribute validators cannot be
// expressed in YAML, so attributes declared this way only ever carry a
// default; drivers that need a validator attach one after CompileYAML
// returns by walking the resulting Schema's NodeTypes/MarkTypes.
type yamlSchemaDoc struct {
	TopNode string          `yaml:"top_node"`
	Nodes   []yamlNodeSpec  `yaml:"nodes"`
	Marks   []yamlMarkSpec  `yaml:"marks"`
}

type yamlAttrSpec struct {
	Default    Value `yaml:"default"`
	HasDefault bool  `yaml:"has_default"`
}

type yamlNodeSpec struct {
	Name         string                   `yaml:"name"`
	Content      string                   `yaml:"content"`
	Group        string                   `yaml:"group"`
	Attrs        map[string]yamlAttrSpec `yaml:"attrs"`
	MarksAllowed *string                  `yaml:"marks_allowed"`
	Inline       bool                     `yaml:"inline"`
	Atom         bool                     `yaml:"atom"`
	Text         bool                     `yaml:"text"`
}

type yamlMarkSpec struct {
	Name     string                   `yaml:"name"`
	Attrs    map[string]yamlAttrSpec `yaml:"attrs"`
	Excludes *string                  `yaml:"excludes"`
	Additive bool                     `yaml:"additive"`
	Group    string                   `yaml:"group"`
}

// CompileYAML parses data as a yamlSchemaDoc and compiles it the same way
// Compile does, for drivers that want to declare a schema as data
// (SPEC_FULL.md §2.3).
func CompileYAML(data []byte) (*Schema, error) {
	var doc yamlSchemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing yaml schema document")
	}

	spec := SchemaSpec{TopNode: doc.TopNode}
	for _, n := range doc.Nodes {
		spec.Nodes = append(spec.Nodes, NamedNodeSpec{
			Name: n.Name,
			Spec: NodeTypeSpec{
				Content:      n.Content,
				Group:        n.Group,
				Attrs:        yamlAttrs(n.Attrs),
				MarksAllowed: n.MarksAllowed,
				Inline:       n.Inline,
				Atom:         n.Atom,
				Text:         n.Text,
			},
		})
	}
	for _, m := range doc.Marks {
		spec.Marks = append(spec.Marks, NamedMarkSpec{
			Name: m.Name,
			Spec: MarkTypeSpec{
				Attrs:    yamlAttrs(m.Attrs),
				Excludes: m.Excludes,
				Additive: m.Additive,
				Group:    m.Group,
			},
		})
	}

	return Compile(spec)
}

func yamlAttrs(in map[string]yamlAttrSpec) map[string]*AttributeSpec {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]*AttributeSpec, len(in))
	for k, v := range in {
		out[k] = &AttributeSpec{Default: v.Default, HasDefault: v.HasDefault}
	}
	return out
}
