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
	"bytes"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	segjson "github.com/segmentio/encoding/json"
)

// JSONSchemaValidator compiles schemaDoc (a JSON Schema document) into an
// AttributeSpec.Validator func, for drivers that would rather declare
// attribute constraints as JSON Schema than as a Go predicate. resourceURL
// is an arbitrary identifier used only for the compiler's internal error
// messages.
//
// The returned func marshals the candidate Value back to JSON before
// validating, since Attrs values are decoded through segmentio/encoding/json
// and jsonschema validates against Go values produced by encoding/json-style
// unmarshaling.
func JSONSchemaValidator(resourceURL string, schemaDoc []byte) (func(Value) error, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceURL, bytes.NewReader(schemaDoc)); err != nil {
		return nil, errors.Wrapf(err, "compiling json schema %q", resourceURL)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling json schema %q", resourceURL)
	}

	return func(v Value) error {
		encoded, err := segjson.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "marshaling attribute value for json schema validation")
		}
		var decoded any
		if err := segjson.Unmarshal(encoded, &decoded); err != nil {
			return errors.Wrap(err, "decoding attribute value for json schema validation")
		}
		if err := compiled.Validate(decoded); err != nil {
			return errors.Wrapf(err, "attribute value does not satisfy json schema %q", resourceURL)
		}
		return nil
	}, nil
}
