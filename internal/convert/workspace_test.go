// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/hcl2cdk/internal/schemas"
)

func testWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(schemas.NewCatalog(), nil)
	require.NoError(t, err)
	return ws
}

func TestWorkspace_registerIsIdempotent(t *testing.T) {
	ws := testWorkspace(t)

	first, err := ws.RegisterNode(&Node{ID: "var.region", Kind: KindVariable, Name: "region"})
	require.NoError(t, err)
	second, err := ws.RegisterNode(&Node{ID: "var.region", Kind: KindVariable, Name: "other"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, ws.NodesInOrder(), 1)
}

func TestWorkspace_nodesInRegistrationOrder(t *testing.T) {
	ws := testWorkspace(t)

	ids := []string{"backend.s3", "provider.aws", "var.a", "resource.null_resource.a"}
	for _, id := range ids {
		_, err := ws.RegisterNode(&Node{ID: id})
		require.NoError(t, err)
	}

	var got []string
	for _, n := range ws.NodesInOrder() {
		got = append(got, n.ID)
	}
	assert.Equal(t, ids, got)
}

func TestWorkspace_identifierCollisions(t *testing.T) {
	ws := testWorkspace(t)

	assert.Equal(t, "web", ws.ToIdentifier("resource.aws_instance.web", "web"))
	assert.Equal(t, "web_1", ws.ToIdentifier("resource.null_resource.web", "web"))
	assert.Equal(t, "web_2", ws.ToIdentifier("var.web", "web"))

	// repeated lookups return the recorded identifier
	assert.Equal(t, "web_1", ws.ToIdentifier("resource.null_resource.web", "web"))

	ident, ok := ws.IdentifierFor("var.web")
	require.True(t, ok)
	assert.Equal(t, "web_2", ident)
}

func TestWorkspace_caseOnlyCollision(t *testing.T) {
	ws := testWorkspace(t)

	// names differing only by case normalize to colliding identifiers
	// and resolve by suffixing in registration order
	assert.Equal(t, "web", ws.ToIdentifier("resource.aws_instance.web", camelCase("web")))
	assert.Equal(t, "web_1", ws.ToIdentifier("resource.aws_instance.Web", camelCase("Web")))
}

func TestWorkspace_tokenCoercionFlag(t *testing.T) {
	ws := testWorkspace(t)
	assert.False(t, ws.HasTokenCoercion())
	ws.MarkTokenCoercion()
	assert.True(t, ws.HasTokenCoercion())
}

func TestSanitizeIdentifier(t *testing.T) {
	assert.Equal(t, "my_resource", sanitizeIdentifier("my-resource"))
	assert.Equal(t, "_1server", sanitizeIdentifier("1server"))
	assert.Equal(t, "null_", sanitizeIdentifier("null"))
	assert.Equal(t, "_", sanitizeIdentifier(""))
}

func TestCamelAndPascalCase(t *testing.T) {
	assert.Equal(t, "instanceType", camelCase("instance_type"))
	assert.Equal(t, "web", camelCase("Web"))
	assert.Equal(t, "NullResource", pascalCase("null_resource"))
	assert.Equal(t, "AwsVpc", pascalCase("aws_vpc"))
}
