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
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// NodeType is allocated once per Schema and tags the Node instances created
// against it, following the shape of cozy-prosemirror-go's model.NodeType
// (_examples/other_examples/50d109e4_cozy-prosemirror-go__model-schema.go.go).
type NodeType struct {
	Name         string
	Spec         NodeTypeSpec
	Groups       []string
	Attrs        map[string]*AttributeSpec
	DefaultAttrs Attrs
	ContentMatch *ContentMatch
	// MarkSet is nil to allow all mark types, or the explicit set allowed.
	MarkSet mapset.Set[string]
}

// IsInline reports whether nodes of this type may appear as a child of an
// inline-content parent.
func (nt *NodeType) IsInline() bool { return nt.Spec.Inline }

// IsText reports whether this is the schema's designated text-bearing type.
func (nt *NodeType) IsText() bool { return nt.Spec.Text }

// IsLeaf reports whether this node type permits no content at all.
func (nt *NodeType) IsLeaf() bool {
	return nt.Spec.Content == ""
}

// IsAtom reports whether this node type should be treated as a single
// opaque unit regardless of its content model.
func (nt *NodeType) IsAtom() bool { return nt.Spec.Atom || nt.IsLeaf() }

// AllowsMarkType reports whether mark mt may be attached to nodes of this type.
func (nt *NodeType) AllowsMarkType(mt string) bool {
	if nt.MarkSet == nil {
		return true
	}
	return nt.MarkSet.Contains(mt)
}

// MarkType is allocated once per Schema and tags Mark instances.
type MarkType struct {
	Name     string
	Spec     MarkTypeSpec
	Attrs    map[string]*AttributeSpec
	Excludes mapset.Set[string]
}

// Schema is the compiled, immutable declaration of node and mark types and
// their content models (spec.md §3/§4.1).
type Schema struct {
	NodeTypes map[string]*NodeType
	MarkTypes map[string]*MarkType
	TopNode   string
	nodeOrder []string
}

// NodeTypeNames returns the schema's node type names in declaration order.
func (s *Schema) NodeTypeNames() []string {
	out := make([]string, len(s.nodeOrder))
	copy(out, s.nodeOrder)
	return out
}

// Compile builds and validates a Schema from a SchemaSpec, per spec.md
// §4.1: resolve groups, parse and compile content expressions, validate
// default attribute values, and detect non-terminating top-level content.
func Compile(spec SchemaSpec) (*Schema, error) {
	topNode := spec.TopNode
	if topNode == "" {
		topNode = "doc"
	}
	s := &Schema{
		NodeTypes: map[string]*NodeType{},
		MarkTypes: map[string]*MarkType{},
		TopNode:   topNode,
	}

	for _, n := range spec.Nodes {
		if _, dup := s.NodeTypes[n.Name]; dup {
			return nil, newSchemaError(DuplicateName, n.Name, "node type declared more than once")
		}
		attrs := initAttrs(n.Spec.Attrs)
		nt := &NodeType{
			Name:         n.Name,
			Spec:         n.Spec,
			Groups:       splitNonEmpty(n.Spec.Group),
			Attrs:        attrs,
			DefaultAttrs: defaultAttrs(attrs),
		}
		s.NodeTypes[n.Name] = nt
		s.nodeOrder = append(s.nodeOrder, n.Name)
	}
	if _, ok := s.NodeTypes[topNode]; !ok {
		return nil, newSchemaError(UnknownType, topNode, "schema is missing its top node type")
	}

	for _, m := range spec.Marks {
		if _, dup := s.MarkTypes[m.Name]; dup {
			return nil, newSchemaError(DuplicateName, m.Name, "mark type declared more than once")
		}
		if _, isNode := s.NodeTypes[m.Name]; isNode {
			return nil, newSchemaError(DuplicateName, m.Name, "name used for both a node type and a mark type")
		}
		attrs := initAttrs(m.Spec.Attrs)
		s.MarkTypes[m.Name] = &MarkType{
			Name:  m.Name,
			Spec:  m.Spec,
			Attrs: attrs,
		}
	}

	groups := map[string][]string{}
	for name, nt := range s.NodeTypes {
		for _, g := range nt.Groups {
			groups[g] = append(groups[g], name)
		}
	}

	resolve := func(token string) (map[string]bool, error) {
		out := map[string]bool{}
		if token == "_" {
			for name := range s.NodeTypes {
				out[name] = true
			}
			return out, nil
		}
		if _, ok := s.NodeTypes[token]; ok {
			out[token] = true
			return out, nil
		}
		if members, ok := groups[token]; ok {
			for _, m := range members {
				out[m] = true
			}
			return out, nil
		}
		return nil, newSchemaError(UnknownType, token, "content expression refers to an unknown node type or group")
	}

	exprCache := map[string]*nfa{}
	for _, name := range s.nodeOrder {
		nt := s.NodeTypes[name]
		ast, err := parseContentExpr(nt.Spec.Content)
		if err != nil {
			return nil, newSchemaError(InvalidContentExpression, name, err.Error())
		}
		key := nt.Spec.Content
		compiled, ok := exprCache[key]
		if !ok {
			compiled, err = buildNFA(ast, resolve)
			if err != nil {
				if se, ok := err.(*SchemaError); ok {
					return nil, se
				}
				return nil, newSchemaError(InvalidContentExpression, name, err.Error())
			}
			exprCache[key] = compiled
		}
		nt.ContentMatch = newContentMatch(compiled, epsilonClosure(compiled, []int{compiled.start}), &contentCache{byFrontier: map[string]*ContentMatch{}})
	}

	for _, name := range s.nodeOrder {
		nt := s.NodeTypes[name]
		if nt.Spec.MarksAllowed == nil {
			continue // nil => all marks allowed
		}
		allowed, err := gatherMarks(s, *nt.Spec.MarksAllowed)
		if err != nil {
			return nil, err
		}
		nt.MarkSet = allowed
	}

	for name, mt := range s.MarkTypes {
		if mt.Spec.Excludes == nil {
			mt.Excludes = mapset.NewSet(name)
			continue
		}
		excl, err := gatherMarks(s, *mt.Spec.Excludes)
		if err != nil {
			return nil, err
		}
		mt.Excludes = excl
	}

	for name, attrs := range nodeAttrSpecs(s) {
		for attrName, spec := range attrs {
			if !spec.HasDefault || spec.Validator == nil {
				continue
			}
			if err := spec.Validator(spec.Default); err != nil {
				return nil, newSchemaError(InvalidDefault, name+"."+attrName, err.Error())
			}
		}
	}

	if err := detectNonTerminatingContent(s); err != nil {
		return nil, err
	}

	return s, nil
}

func nodeAttrSpecs(s *Schema) map[string]map[string]*AttributeSpec {
	out := map[string]map[string]*AttributeSpec{}
	for name, nt := range s.NodeTypes {
		out[name] = nt.Attrs
	}
	for name, mt := range s.MarkTypes {
		out["mark:"+name] = mt.Attrs
	}
	return out
}

// detectNonTerminatingContent flags node types whose content model requires
// (in every alternative) at least one child of a type that, transitively,
// always requires a child back of the original type — no finite document
// could ever satisfy such a node (spec.md §4.1(d)). This is a conservative
// approximation: it flags a required mention, not full language emptiness.
func detectNonTerminatingContent(s *Schema) error {
	requires := map[string]map[string]bool{}
	for name, nt := range s.NodeTypes {
		if nt.ContentMatch.ValidEnd {
			continue // can be empty; never forces a cycle
		}
		requires[name] = mentionedTypes(nt.Spec.Content, s)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var visit func(string) error
	visit = func(n string) error {
		color[n] = gray
		for dep := range requires[n] {
			switch color[dep] {
			case gray:
				return newSchemaError(InvalidContentExpression, n,
					"content expression cannot terminate: requires a cycle through "+dep)
			case white:
				if _, tracked := requires[dep]; tracked {
					if err := visit(dep); err != nil {
						return err
					}
				}
			}
		}
		color[n] = black
		return nil
	}
	for name := range requires {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func mentionedTypes(expr string, s *Schema) map[string]bool {
	out := map[string]bool{}
	for _, tok := range tokenizeContentExpr(expr) {
		switch tok {
		case "(", ")", "|", "*", "+", "?":
			continue
		}
		if _, ok := s.NodeTypes[tok]; ok {
			out[tok] = true
			continue
		}
		for name, nt := range s.NodeTypes {
			for _, g := range nt.Groups {
				if g == tok {
					out[name] = true
				}
			}
		}
	}
	return out
}

func gatherMarks(s *Schema, expr string) (mapset.Set[string], error) {
	out := mapset.NewThreadUnsafeSet[string]()
	for _, tok := range splitNonEmpty(expr) {
		if tok == "_" {
			for name := range s.MarkTypes {
				out.Add(name)
			}
			continue
		}
		if _, ok := s.MarkTypes[tok]; ok {
			out.Add(tok)
			continue
		}
		found := false
		for name, mt := range s.MarkTypes {
			if mt.Spec.Group != "" && hasGroup(mt.Spec.Group, tok) {
				out.Add(name)
				found = true
			}
		}
		if !found {
			return nil, newSchemaError(UnknownType, tok, "unknown mark type or group")
		}
	}
	return out, nil
}

func hasGroup(groups, group string) bool {
	for _, g := range splitNonEmpty(groups) {
		if g == group {
			return true
		}
	}
	return false
}

func splitNonEmpty(s string) []string {
	return strings.Fields(s)
}

func initAttrs(specs map[string]*AttributeSpec) map[string]*AttributeSpec {
	out := make(map[string]*AttributeSpec, len(specs))
	for k, v := range specs {
		out[k] = v
	}
	return out
}

func defaultAttrs(attrs map[string]*AttributeSpec) Attrs {
	out := NewAttrs()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sortStrings(names)
	for _, name := range names {
		spec := attrs[name]
		if !spec.HasDefault {
			return NewAttrs() // not every attr defaultable; caller must supply attrs
		}
		out = out.Set(name, spec.materialize())
	}
	return out
}

// ValidateChildren reports whether the sequence of child type names matches
// parentType's content expression (spec.md §4.1 validate_children).
func (s *Schema) ValidateChildren(parentType string, childTypes []string) error {
	nt, ok := s.NodeTypes[parentType]
	if !ok {
		return newValidationError(UnknownType, parentType, "unknown node type")
	}
	cur := nt.ContentMatch
	for _, childType := range childTypes {
		next, ok := cur.MatchType(childType)
		if !ok {
			return newValidationError(InvalidContentExpression, parentType,
				"child type "+childType+" is not permitted here")
		}
		cur = next
	}
	if !cur.ValidEnd {
		return newValidationError(InvalidContentExpression, parentType, "content does not reach a valid end state")
	}
	return nil
}

// ValidateAttrs fills in defaults and checks required presence for a node
// or mark's attrs against its type's AttributeSpecs.
func (s *Schema) ValidateAttrs(attrs map[string]*AttributeSpec, given Attrs) (Attrs, error) {
	out := NewAttrs()
	for _, name := range given.Keys() {
		out = out.Set(name, mustGet(given, name))
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sortStrings(names)
	for _, name := range names {
		spec := attrs[name]
		if _, present := out.Get(name); present {
			if spec.Validator != nil {
				v, _ := out.Get(name)
				if err := spec.Validator(v); err != nil {
					return Attrs{}, newValidationError(InvalidDefault, name, err.Error())
				}
			}
			continue
		}
		if spec.Required() {
			return Attrs{}, newValidationError(InvalidDefault, name, "required attribute not supplied")
		}
		out = out.Set(name, spec.materialize())
	}
	return out, nil
}

func mustGet(a Attrs, key string) Value {
	v, _ := a.Get(key)
	return v
}

// ValidationError is returned by ValidateChildren/ValidateAttrs at runtime,
// distinct from the compile-time SchemaError.
type ValidationError struct {
	Kind    ErrorKind
	Subject string
	Detail  string
}

func (e *ValidationError) Error() string {
	return "schema: validation failed for " + e.Subject + ": " + e.Detail
}

func newValidationError(kind ErrorKind, subject, detail string) *ValidationError {
	return &ValidationError{Kind: kind, Subject: subject, Detail: detail}
}
