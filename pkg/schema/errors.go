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

import "fmt"

// ErrorKind discriminates the SchemaError variants from spec.md §4.1.
type ErrorKind int

const (
	// UnknownType names a node or mark type, or group, that was never declared.
	UnknownType ErrorKind = iota
	// InvalidContentExpression could not be parsed or compiled into a matcher.
	InvalidContentExpression
	// InvalidDefault is a declared default attribute value that fails its
	// own validator.
	InvalidDefault
	// DuplicateName is a node or mark type declared more than once, or a
	// name shared between a node type and a mark type.
	DuplicateName
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownType:
		return "UnknownType"
	case InvalidContentExpression:
		return "InvalidContentExpression"
	case InvalidDefault:
		return "InvalidDefault"
	case DuplicateName:
		return "DuplicateName"
	default:
		return "Unknown"
	}
}

// SchemaError is a compilation-time schema defect. It is fatal at
// Configuration build time and is never produced dynamically.
type SchemaError struct {
	Kind    ErrorKind
	Subject string // the type/group/attribute name at fault
	Detail  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s %q: %s", e.Kind, e.Subject, e.Detail)
}

func newSchemaError(kind ErrorKind, subject, detail string) *SchemaError {
	return &SchemaError{Kind: kind, Subject: subject, Detail: detail}
}
