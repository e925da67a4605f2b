// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/hcl2cdk/internal/ast"
)

func TestReferencesInString(t *testing.T) {
	testCases := map[string]struct {
		input string
		want  []string
	}{
		"plain literal": {
			input: "hello",
			want:  nil,
		},
		"resource reference": {
			input: "${aws_vpc.main.id}",
			want:  []string{"resource.aws_vpc.main"},
		},
		"longest prefix keeps node id": {
			input: "${aws_vpc.main.subnets[0].id}",
			want:  []string{"resource.aws_vpc.main"},
		},
		"variable": {
			input: "${var.region}",
			want:  []string{"var.region"},
		},
		"data source": {
			input: "${data.aws_ami.ubuntu.id}",
			want:  []string{"data.aws_ami.ubuntu"},
		},
		"module output": {
			input: "${module.net.vpc_id}",
			want:  []string{"module.net"},
		},
		"local": {
			input: "prefix-${local.name}",
			want:  []string{"local.name"},
		},
		"reserved count": {
			input: "${count.index}",
			want:  nil,
		},
		"reserved each": {
			input: "${each.key}",
			want:  nil,
		},
		"reserved self": {
			input: "${self.private_ip}",
			want:  nil,
		},
		"multiple in one template": {
			input: "${var.a}-${local.b}",
			want:  []string{"var.a", "local.b"},
		},
		"inside function call": {
			input: "${cidrsubnet(var.cidr, 8, 1)}",
			want:  []string{"var.cidr"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, referencesInString(tc.input))
		})
	}
}

func TestDiscoverReferences_dropsUnregistered(t *testing.T) {
	ws := testWorkspace(t)
	_, err := ws.RegisterNode(&Node{
		ID:   "resource.null_resource.a",
		Kind: KindResource, Type: "null_resource", Name: "a",
		Fragment: map[string]interface{}{
			"triggers": map[string]interface{}{
				"v": "${null_resource.missing.id}",
			},
		},
	})
	require.NoError(t, err)

	discoverReferences(ws)

	n, ok := ws.NodeByID("resource.null_resource.a")
	require.True(t, ok)
	assert.Empty(t, n.Deps)
}

func TestEmitInOrder_respectsDependencies(t *testing.T) {
	ws := testWorkspace(t)

	// register b before a; the edge a -> b still forces a first
	b, err := ws.RegisterNode(&Node{ID: "resource.null_resource.b", Kind: KindResource})
	require.NoError(t, err)
	_, err = ws.RegisterNode(&Node{ID: "resource.null_resource.a", Kind: KindResource})
	require.NoError(t, err)
	b.AddDep("resource.null_resource.a")

	var order []string
	_, err = emitInOrder(ws, func(n *Node) ([]ast.Stmt, error) {
		order = append(order, n.ID)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"resource.null_resource.a", "resource.null_resource.b"}, order)
}

func TestEmitInOrder_registrationOrderTieBreak(t *testing.T) {
	ws := testWorkspace(t)

	ids := []string{"var.c", "var.a", "var.b"}
	for _, id := range ids {
		_, err := ws.RegisterNode(&Node{ID: id, Kind: KindVariable})
		require.NoError(t, err)
	}

	var order []string
	_, err := emitInOrder(ws, func(n *Node) ([]ast.Stmt, error) {
		order = append(order, n.ID)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, ids, order)
}

func TestEmitInOrder_cycle(t *testing.T) {
	ws := testWorkspace(t)

	a, err := ws.RegisterNode(&Node{ID: "resource.null_resource.a", Kind: KindResource})
	require.NoError(t, err)
	b, err := ws.RegisterNode(&Node{ID: "resource.null_resource.b", Kind: KindResource})
	require.NoError(t, err)
	a.AddDep(b.ID)
	b.AddDep(a.ID)

	_, err = emitInOrder(ws, func(n *Node) ([]ast.Stmt, error) { return nil, nil })
	var cycleErr *CycleDetectedError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, cycleErr.Unvisited)
}

func TestEmitInOrder_missingNodeIsABug(t *testing.T) {
	ws := testWorkspace(t)

	a, err := ws.RegisterNode(&Node{ID: "resource.null_resource.a", Kind: KindResource})
	require.NoError(t, err)
	a.Deps = append(a.Deps, "resource.null_resource.ghost")

	_, err = emitInOrder(ws, func(n *Node) ([]ast.Stmt, error) { return nil, nil })
	var missingErr *MissingNodeError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "resource.null_resource.ghost", missingErr.ID)
}

func TestAddDep_selfAndDuplicate(t *testing.T) {
	n := &Node{ID: "resource.null_resource.a"}
	n.AddDep("resource.null_resource.a")
	assert.Empty(t, n.Deps, "self edges are intra-node, not dependencies")

	n.AddDep("var.x")
	n.AddDep("var.x")
	assert.Equal(t, []string{"var.x"}, n.Deps)
}

func TestProviderRefCandidates(t *testing.T) {
	assert.Equal(t,
		[]string{"provider.aws.west", "provider.aws"},
		providerRefCandidates("${aws.west}"))
	assert.Equal(t, []string{"provider.aws"}, providerRefCandidates("aws"))
}
