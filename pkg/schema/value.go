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

// Package schema declares node and mark types, attribute specs, and the
// content-model grammar that a Document's nodes must conform to.
package schema

import (
	"bytes"
	"fmt"

	"github.com/mitchellh/copystructure"
	"github.com/segmentio/encoding/json"
)

// Value is a JSON-like dynamic value: nil, bool, int64, float64, string,
// []Value, or Attrs. Node and Mark attribute values, and StateField payloads
// that round-trip through serialization, are all Values.
type Value = any

// cloneValue deep-copies a Value so that two readers of the same default
// never alias a mutable map or slice.
func cloneValue(v Value) Value {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case bool, int64, float64, string:
		return v
	}
	cloned, err := copystructure.Copy(v)
	if err != nil {
		// copystructure only fails on unsupported kinds (chan, func); attribute
		// values are restricted to JSON-like shapes, so this is unreachable in
		// practice. Fall back to the original rather than panicking.
		return v
	}
	return cloned
}

// Attrs is an ordered mapping from attribute name to Value. Order reflects
// first-insertion order and is preserved across Set but not across a
// round trip through a plain map.
type Attrs struct {
	order  []string
	values map[string]Value
}

// NewAttrs returns an empty Attrs.
func NewAttrs() Attrs {
	return Attrs{}
}

// AttrsFromMap builds an Attrs from a plain map, ordering keys
// lexicographically since a Go map carries no order of its own.
func AttrsFromMap(m map[string]Value) Attrs {
	a := NewAttrs()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		a = a.Set(k, m[k])
	}
	return a
}

func sortStrings(s []string) {
	// Small, local insertion sort: Attrs maps are rarely larger than a
	// handful of entries.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Get returns the value stored at key and whether it was present.
func (a Attrs) Get(key string) (Value, bool) {
	if a.values == nil {
		return nil, false
	}
	v, ok := a.values[key]
	return v, ok
}

// Keys returns the attribute names in insertion order.
func (a Attrs) Keys() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Len returns the number of attributes.
func (a Attrs) Len() int {
	return len(a.order)
}

// Set returns a new Attrs with key bound to value, preserving the position
// of key if it already existed.
func (a Attrs) Set(key string, value Value) Attrs {
	values := make(map[string]Value, len(a.values)+1)
	for k, v := range a.values {
		values[k] = v
	}
	_, existed := values[key]
	values[key] = value
	order := a.order
	if !existed {
		order = append(append([]string{}, a.order...), key)
	}
	return Attrs{order: order, values: values}
}

// Delete returns a new Attrs with key removed.
func (a Attrs) Delete(key string) Attrs {
	if _, ok := a.values[key]; !ok {
		return a
	}
	values := make(map[string]Value, len(a.values))
	order := make([]string, 0, len(a.order))
	for _, k := range a.order {
		if k == key {
			continue
		}
		order = append(order, k)
		values[k] = a.values[k]
	}
	return Attrs{order: order, values: values}
}

// Equal reports whether two Attrs hold the same keys and values, ignoring
// order.
func (a Attrs) Equal(other Attrs) bool {
	if a.Len() != other.Len() {
		return false
	}
	for k, v := range a.values {
		ov, ok := other.values[k]
		if !ok {
			return false
		}
		if !valueEqual(v, ov) {
			return false
		}
	}
	return true
}

func valueEqual(a, b Value) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
	return bytes.Equal(ab, bb)
}

// MarshalJSON emits the attributes as a JSON object in insertion order.
func (a Attrs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object into an Attrs, preserving the order
// in which keys appear in the document.
func (a *Attrs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("schema: Attrs must decode from a JSON object, got %v", tok)
	}
	out := NewAttrs()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("schema: Attrs key must be a string, got %v", keyTok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = out.Set(key, normalizeDecoded(v))
	}
	*a = out
	return nil
}

// normalizeDecoded narrows the float64/map/slice shapes produced by the
// standard decode path into the same representation AttrsFromMap produces.
func normalizeDecoded(v Value) Value {
	switch t := v.(type) {
	case map[string]Value:
		return AttrsFromMap(t)
	case []Value:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = normalizeDecoded(e)
		}
		return out
	default:
		return v
	}
}
