// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/hashicorp/hcl2cdk/internal/ast"
)

// exprWorkspace registers a few nodes with known identifiers so
// references resolve.
func exprWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws := testWorkspace(t)

	nodes := []*Node{
		{ID: "resource.aws_vpc.main", Kind: KindResource, Type: "aws_vpc", Name: "main"},
		{ID: "data.aws_ami.ubuntu", Kind: KindData, Type: "aws_ami", Name: "ubuntu"},
		{ID: "var.region", Kind: KindVariable, Name: "region"},
		{ID: "local.prefix", Kind: KindLocal, Name: "prefix"},
		{ID: "module.net", Kind: KindModule, Name: "net"},
	}
	for _, n := range nodes {
		_, err := ws.RegisterNode(n)
		require.NoError(t, err)
	}
	ws.ToIdentifier("resource.aws_vpc.main", "main")
	ws.ToIdentifier("data.aws_ami.ubuntu", "ubuntu")
	ws.ToIdentifier("var.region", "region")
	ws.ToIdentifier("local.prefix", "prefix")
	ws.ToIdentifier("module.net", "net")
	return ws
}

func translate(t *testing.T, ws *Workspace, value interface{}, ty cty.Type) string {
	t.Helper()
	tr := newTranslator(ws, nil)
	return ast.RenderExpr(tr.value(value, ty))
}

func TestTranslate_literals(t *testing.T) {
	ws := exprWorkspace(t)

	assert.Equal(t, `"hello"`, translate(t, ws, "hello", cty.String))
	assert.Equal(t, "42", translate(t, ws, int64(42), cty.Number))
	assert.Equal(t, "1.5", translate(t, ws, 1.5, cty.Number))
	assert.Equal(t, "true", translate(t, ws, true, cty.Bool))
	assert.Equal(t, "null", translate(t, ws, nil, cty.String))
}

func TestTranslate_references(t *testing.T) {
	ws := exprWorkspace(t)

	testCases := map[string]struct {
		input string
		ty    cty.Type
		want  string
	}{
		"resource attribute, untyped": {
			input: "${aws_vpc.main.id}",
			ty:    cty.NilType,
			want:  "main.id",
		},
		"resource attribute coerced to string": {
			input: "${aws_vpc.main.id}",
			ty:    cty.String,
			want:  "Token.asString(main.id)",
		},
		"attribute names fold to camel case": {
			input: "${aws_vpc.main.cidr_block}",
			ty:    cty.NilType,
			want:  "main.cidrBlock",
		},
		"variable": {
			input: "${var.region}",
			ty:    cty.String,
			want:  "region.value",
		},
		"local": {
			input: "${local.prefix}",
			ty:    cty.String,
			want:  "prefix",
		},
		"module output": {
			input: "${module.net.vpc_id}",
			ty:    cty.NilType,
			want:  "net.vpcId",
		},
		"data source": {
			input: "${data.aws_ami.ubuntu.id}",
			ty:    cty.NilType,
			want:  "ubuntu.id",
		},
		"index steps": {
			input: "${aws_vpc.main.subnets[0]}",
			ty:    cty.NilType,
			want:  "main.subnets[0]",
		},
		"unknown reference kept literal": {
			input: "${aws_eip.ghost.id}",
			ty:    cty.NilType,
			want:  `"${aws_eip.ghost.id}"`,
		},
		"reserved root kept literal": {
			input: "${count.index}",
			ty:    cty.NilType,
			want:  `"${count.index}"`,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, translate(t, ws, tc.input, tc.ty))
		})
	}
}

func TestTranslate_templates(t *testing.T) {
	ws := exprWorkspace(t)

	assert.Equal(t, "`prefix-${region.value}`",
		translate(t, ws, "prefix-${var.region}", cty.String))
	assert.Equal(t, "`${region.value}-${prefix}`",
		translate(t, ws, "${var.region}-${local.prefix}", cty.String))
	// kept-literal parts stay inside the template, escaped so the host
	// language does not interpolate them
	assert.Equal(t, "`item-\\${count.index}`",
		translate(t, ws, "item-${count.index}", cty.String))
}

func TestTranslate_heredoc(t *testing.T) {
	ws := exprWorkspace(t)
	got := translate(t, ws, "#!/bin/sh\necho hi\n", cty.String)
	assert.Equal(t, "`#!/bin/sh\necho hi\n`", got)
}

func TestTranslate_functionCalls(t *testing.T) {
	ws := exprWorkspace(t)

	assert.Equal(t, "Token.asNumber(Fn.lengthOf(region.value))",
		translate(t, ws, "${length(var.region)}", cty.Number))
	assert.Equal(t, "Fn.cidrsubnet(region.value, 8, 1)",
		translate(t, ws, "${cidrsubnet(var.region, 8, 1)}", cty.NilType))
}

func TestTranslate_operators(t *testing.T) {
	ws := exprWorkspace(t)

	assert.Equal(t, "1 + 2", translate(t, ws, "${1 + 2}", cty.NilType))
	assert.Equal(t, "!true", translate(t, ws, "${!true}", cty.NilType))
	assert.Equal(t, `true ? "a" : "b"`, translate(t, ws, `${true ? "a" : "b"}`, cty.NilType))
	assert.Equal(t, "(1 + 2) * 3", translate(t, ws, "${(1 + 2) * 3}", cty.NilType))
}

func TestTranslate_splat(t *testing.T) {
	ws := exprWorkspace(t)

	got := translate(t, ws, "${aws_vpc.main.subnets[*].id}", cty.NilType)
	assert.Equal(t, `propertyAccess(main.subnets, ["*", "id"])`, got)

	symbols := ws.FrameworkSymbols()
	assert.Contains(t, symbols, "propertyAccess")
}

func TestTranslate_forExpressions(t *testing.T) {
	ws := exprWorkspace(t)

	list := translate(t, ws, "${[for s in var.region : upper(s)]}", cty.NilType)
	assert.Equal(t, "region.value.map((s) => Fn.upper(s))", list)

	filtered := translate(t, ws, `${[for s in var.region : s if s != ""]}`, cty.NilType)
	assert.Equal(t, `region.value.filter((s) => s !== "").map((s) => s)`, filtered)

	object := translate(t, ws, "${{for k, v in var.region : k => upper(v)}}", cty.NilType)
	assert.Equal(t,
		"Object.fromEntries(Object.entries(region.value).map(([k, v]) => [k, Fn.upper(v)]))",
		object)
}

func TestTranslate_listAndMapCoercion(t *testing.T) {
	ws := exprWorkspace(t)

	assert.Equal(t, "Token.asList(main.subnets)",
		translate(t, ws, "${aws_vpc.main.subnets}", cty.List(cty.String)))
	assert.Equal(t, "Token.asNumberList(main.ports)",
		translate(t, ws, "${aws_vpc.main.ports}", cty.List(cty.Number)))
	assert.Equal(t, "Token.asStringMap(main.tags)",
		translate(t, ws, "${aws_vpc.main.tags}", cty.Map(cty.String)))

	// literal containers are not coerced even when elements are
	assert.Equal(t, `[Token.asString(main.id)]`,
		translate(t, ws, []interface{}{"${aws_vpc.main.id}"}, cty.List(cty.String)))
}

func TestTranslate_marksCoercionFlag(t *testing.T) {
	ws := exprWorkspace(t)
	require.False(t, ws.HasTokenCoercion())

	translate(t, ws, "${aws_vpc.main.id}", cty.String)
	assert.True(t, ws.HasTokenCoercion())
}

func TestVariableTypeString(t *testing.T) {
	ws := testWorkspace(t)

	assert.Equal(t, "string", variableTypeString("${string}", ws))
	assert.Equal(t, "list(string)", variableTypeString("${list(string)}", ws))
	assert.Equal(t, "map(number)", variableTypeString("${map(number)}", ws))
	assert.Equal(t, "object({ name = string, port = number })",
		variableTypeString("${object({ name = string, port = number })}", ws))
	assert.Equal(t, "any", variableTypeString("${any}", ws))
	assert.Equal(t, "string", variableTypeString("string", ws))
}
