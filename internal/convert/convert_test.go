// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tfjson "github.com/hashicorp/terraform-json"
	"github.com/zclconf/go-cty/cty"

	"github.com/hashicorp/hcl2cdk/internal/schemas"
)

func nullCatalog(t *testing.T) *schemas.Catalog {
	t.Helper()
	catalog := schemas.NewCatalog()
	err := catalog.AddProviderSchemas(&tfjson.ProviderSchemas{
		Schemas: map[string]*tfjson.ProviderSchema{
			"registry.terraform.io/hashicorp/null": {
				ConfigSchema: &tfjson.Schema{Block: &tfjson.SchemaBlock{}},
				ResourceSchemas: map[string]*tfjson.Schema{
					"null_resource": {
						Block: &tfjson.SchemaBlock{
							Attributes: map[string]*tfjson.SchemaAttribute{
								"id": {
									AttributeType: cty.String,
									Computed:      true,
								},
								"triggers": {
									AttributeType: cty.Map(cty.String),
									Optional:      true,
								},
							},
						},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return catalog
}

func testConvert(t *testing.T, hcl string) (*Result, error) {
	t.Helper()
	return Convert(context.Background(), hcl, Options{
		Language:       LanguageTypescript,
		ProviderSchema: nullCatalog(t),
	})
}

func TestConvert_singleResource(t *testing.T) {
	result, err := testConvert(t, `resource "null_resource" "a" {}`)
	require.NoError(t, err)

	assert.Contains(t, result.Code, `new NullResource(this, "a", {})`)
	assert.Contains(t, result.Imports, `import { NullResource } from "./.gen/providers/null";`)
	assert.Equal(t, []string{"hashicorp/null"}, result.Providers)
	assert.Empty(t, result.Modules)
	assert.Equal(t, 1, result.Stats.Resources["null_resource"])
}

func TestConvert_referenceAcrossResources(t *testing.T) {
	hcl := `
resource "null_resource" "a" {}
resource "null_resource" "b" {
  triggers = {
    id = null_resource.a.id
  }
}
`
	result, err := testConvert(t, hcl)
	require.NoError(t, err)

	aPos := strings.Index(result.Code, `new NullResource(this, "a"`)
	bPos := strings.Index(result.Code, `new NullResource(this, "b"`)
	require.GreaterOrEqual(t, aPos, 0)
	require.GreaterOrEqual(t, bPos, 0)
	assert.Less(t, aPos, bPos, "a must be declared before b")

	assert.Contains(t, result.Code, `Token.asString(a.id)`)
	assert.Contains(t, result.Imports, "Token")
}

func TestConvert_cycle(t *testing.T) {
	hcl := `
resource "null_resource" "a" {
  triggers = { v = null_resource.b.id }
}
resource "null_resource" "b" {
  triggers = { v = null_resource.a.id }
}
`
	_, err := testConvert(t, hcl)
	require.Error(t, err)

	var cycleErr *CycleDetectedError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t,
		[]string{"resource.null_resource.a", "resource.null_resource.b"},
		cycleErr.Unvisited)
}

func TestConvert_variableAndOutput(t *testing.T) {
	hcl := `
variable "r" {
  type = string
}
output "o" {
  value = var.r
}
`
	result, err := testConvert(t, hcl)
	require.NoError(t, err)

	assert.Contains(t, result.Imports, `from "cdktf"`)
	assert.Contains(t, result.Imports, "TerraformVariable")
	assert.Contains(t, result.Imports, "TerraformOutput")

	rPos := strings.Index(result.Code, `new TerraformVariable(this, "r"`)
	oPos := strings.Index(result.Code, `new TerraformOutput(this, "o"`)
	require.GreaterOrEqual(t, rPos, 0)
	require.GreaterOrEqual(t, oPos, 0)
	assert.Less(t, rPos, oPos, "variable must precede output")

	assert.Contains(t, result.Code, `type: "string"`)
	assert.Contains(t, result.Code, "value: r.value")
}

func TestConvert_moduleWithVersion(t *testing.T) {
	hcl := `
module "net" {
  source  = "terraform-aws-modules/vpc/aws"
  version = "3.19.0"
}
`
	result, err := testConvert(t, hcl)
	require.NoError(t, err)

	assert.Equal(t, []string{"terraform-aws-modules/vpc/aws@3.19.0"}, result.Modules)
	assert.Contains(t, result.Imports, `import { Net } from "./.gen/modules/net";`)
	assert.Contains(t, result.Code, `new Net(this, "net"`)
	assert.Equal(t, 1, result.Stats.NumberOfModules)
}

func TestConvert_backend(t *testing.T) {
	hcl := `
terraform {
  backend "s3" {
    bucket = "b"
    key    = "k"
    region = "us-east-1"
  }
}
resource "null_resource" "a" {}
`
	result, err := testConvert(t, hcl)
	require.NoError(t, err)

	backendPos := strings.Index(result.Code, "new S3Backend(this, {")
	resourcePos := strings.Index(result.Code, `new NullResource(this, "a"`)
	require.GreaterOrEqual(t, backendPos, 0)
	require.GreaterOrEqual(t, resourcePos, 0)
	assert.Less(t, backendPos, resourcePos, "backend must precede resources")

	assert.Contains(t, result.Code, `bucket: "b"`)
	assert.Contains(t, result.Imports, "S3Backend")
}

func TestConvert_deterministic(t *testing.T) {
	hcl := `
variable "region" { default = "us-east-1" }
resource "null_resource" "a" {}
resource "null_resource" "b" {
  triggers = { r = var.region }
}
output "o" { value = null_resource.b.id }
`
	first, err := testConvert(t, hcl)
	require.NoError(t, err)
	second, err := testConvert(t, hcl)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("conversion is not deterministic:\n%s", diff)
	}
}

func TestConvert_reorderedBlocksEquivalent(t *testing.T) {
	forward := `
resource "null_resource" "a" {}
resource "null_resource" "b" {
  triggers = { id = null_resource.a.id }
}
`
	reversed := `
resource "null_resource" "b" {
  triggers = { id = null_resource.a.id }
}
resource "null_resource" "a" {}
`
	fr, err := testConvert(t, forward)
	require.NoError(t, err)
	rr, err := testConvert(t, reversed)
	require.NoError(t, err)

	assert.Equal(t, fr.Code, rr.Code)
	assert.Equal(t, fr.Imports, rr.Imports)
	assert.Equal(t, fr.Providers, rr.Providers)
}

func TestConvert_emptyInput(t *testing.T) {
	result, err := testConvert(t, "")
	require.NoError(t, err)

	assert.Empty(t, result.Code)
	assert.NotEmpty(t, result.Imports, "default cdktf container keeps imports")
	assert.Equal(t, 0, result.Stats.ConvertedLines)

	custom, err := Convert(context.Background(), "", Options{
		Language:       LanguageTypescript,
		ProviderSchema: schemas.NewCatalog(),
		CodeContainer:  "MyStack",
	})
	require.NoError(t, err)
	assert.Empty(t, custom.Imports)
}

func TestConvert_selfReferenceIsNotACycle(t *testing.T) {
	hcl := `
resource "null_resource" "a" {
  triggers = { v = null_resource.a.id }
}
`
	_, err := testConvert(t, hcl)
	require.NoError(t, err)
}

func TestConvert_unsupportedLanguage(t *testing.T) {
	_, err := Convert(context.Background(), "", Options{Language: "cobol"})
	var langErr *UnsupportedLanguageError
	require.ErrorAs(t, err, &langErr)
	assert.Equal(t, Language("cobol"), langErr.Language)
}

func TestConvert_unknownFunctionWarns(t *testing.T) {
	hcl := `
resource "null_resource" "a" {
  triggers = { v = frobnicate("x") }
}
`
	result, err := testConvert(t, hcl)
	require.NoError(t, err)

	assert.Contains(t, result.Code, "Fn.frobnicate(")
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, `unknown function "frobnicate"`) {
			found = true
		}
	}
	assert.True(t, found, "expected unknown-function warning, got %v", result.Warnings)
}

func TestConvert_missingSchemaAnnotated(t *testing.T) {
	result, err := Convert(context.Background(), `resource "aws_vpc" "main" { cidr_block = "10.0.0.0/16" }`, Options{
		Language:       LanguageTypescript,
		ProviderSchema: schemas.NewCatalog(),
	})
	require.NoError(t, err)

	assert.Contains(t, result.Code, "Provider schema is unavailable for: aws.")
	assert.Contains(t, result.Code, `new AwsVpc(this, "main"`)
}

func TestConvert_convertedLines(t *testing.T) {
	result, err := testConvert(t, "resource \"null_resource\" \"a\" {}\n")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.ConvertedLines)

	noTrailing, err := testConvert(t, `resource "null_resource" "a" {}`)
	require.NoError(t, err)
	assert.Equal(t, 1, noTrailing.Stats.ConvertedLines)
}

func TestConvert_dynamicBlockOrdersByForEach(t *testing.T) {
	hcl := `
resource "aws_autoscaling_group" "asg" {
  dynamic "tag" {
    for_each = aws_instance.later.tags
    content {
      key = tag.value.key
    }
  }
}
resource "aws_instance" "later" {}
`
	result, err := Convert(context.Background(), hcl, Options{
		Language:       LanguageTypescript,
		ProviderSchema: schemas.NewCatalog(),
	})
	require.NoError(t, err)

	laterPos := strings.Index(result.Code, `new AwsInstance(this, "later"`)
	asgPos := strings.Index(result.Code, `new AwsAutoscalingGroup(this, "asg"`)
	require.GreaterOrEqual(t, laterPos, 0)
	require.GreaterOrEqual(t, asgPos, 0)
	assert.Less(t, laterPos, asgPos, "for_each target must be declared first")

	assert.Contains(t, result.Code, "tag: later.tags.map((tag) => ({ key: tag.key }))")
}

func TestConvert_providerBlock(t *testing.T) {
	hcl := `
provider "null" {}
resource "null_resource" "a" {}
`
	result, err := testConvert(t, hcl)
	require.NoError(t, err)

	assert.Contains(t, result.Code, `const null_ = new NullProvider(this, "null", {})`)
	providerPos := strings.Index(result.Code, "new NullProvider")
	resourcePos := strings.Index(result.Code, "new NullResource")
	assert.Less(t, providerPos, resourcePos)
}
