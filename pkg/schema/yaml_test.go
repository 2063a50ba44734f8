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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docYAML = `
top_node: doc
nodes:
  - name: doc
    content: "paragraph+"
  - name: paragraph
    content: "text*"
    group: block
    attrs:
      align:
        default: left
        has_default: true
  - name: text
    text: true
    inline: true
marks:
  - name: strong
    group: formatting
  - name: link
    attrs:
      href:
        has_default: false
    excludes: ""
`

func TestCompileYAMLBuildsSchema(t *testing.T) {
	t.Parallel()
	sch, err := CompileYAML([]byte(docYAML))
	require.NoError(t, err)
	require.NotNil(t, sch)

	assert.Contains(t, sch.NodeTypes, "doc")
	assert.Contains(t, sch.NodeTypes, "paragraph")
	assert.Contains(t, sch.NodeTypes, "text")
	assert.True(t, sch.NodeTypes["text"].IsText())
	assert.True(t, sch.NodeTypes["text"].IsInline())

	align := sch.NodeTypes["paragraph"].Attrs["align"]
	require.NotNil(t, align)
	assert.True(t, align.HasDefault)
	assert.Equal(t, "left", align.Default)

	assert.Contains(t, sch.MarkTypes, "strong")
	link := sch.MarkTypes["link"]
	require.NotNil(t, link)
	assert.True(t, link.Attrs["href"].Required())
}

func TestCompileYAMLRejectsMalformedDocument(t *testing.T) {
	t.Parallel()
	_, err := CompileYAML([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestCompileYAMLRejectsInvalidSchema(t *testing.T) {
	t.Parallel()
	_, err := CompileYAML([]byte(`
top_node: doc
nodes:
  - name: doc
    content: "missing+"
`))
	assert.Error(t, err)
}
