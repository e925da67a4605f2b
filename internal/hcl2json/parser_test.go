// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package hcl2json

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_literalsFold(t *testing.T) {
	src := `
resource "aws_instance" "web" {
  ami           = "ami-123456"
  instance_type = "t3.micro"
  count         = 2
  monitoring    = true
  tags = {
    Name = "web"
  }
}
`
	got, err := Parse("main.tf", []byte(src))
	require.NoError(t, err)

	want := map[string]interface{}{
		"resource": map[string]interface{}{
			"aws_instance": map[string]interface{}{
				"web": []interface{}{
					map[string]interface{}{
						"ami":           "ami-123456",
						"instance_type": "t3.micro",
						"count":         int64(2),
						"monitoring":    true,
						"tags": map[string]interface{}{
							"Name": "web",
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestParse_expressionsKeptVerbatim(t *testing.T) {
	src := `
resource "null_resource" "b" {
  triggers = {
    id     = null_resource.a.id
    region = var.region
    mixed  = "prefix-${local.name}"
  }
}
`
	got, err := Parse("main.tf", []byte(src))
	require.NoError(t, err)

	triggers := got["resource"].(map[string]interface{})["null_resource"].(map[string]interface{})["b"].([]interface{})[0].(map[string]interface{})["triggers"].(map[string]interface{})
	assert.Equal(t, "${null_resource.a.id}", triggers["id"])
	assert.Equal(t, "${var.region}", triggers["region"])
	assert.Equal(t, "prefix-${local.name}", triggers["mixed"])
}

func TestParse_repeatedBlocksAccumulate(t *testing.T) {
	src := `
locals {
  a = 1
}
locals {
  b = 2
}
provider "aws" {
  region = "us-east-1"
}
provider "aws" {
  alias  = "west"
  region = "us-west-2"
}
`
	got, err := Parse("main.tf", []byte(src))
	require.NoError(t, err)

	locals := got["locals"].([]interface{})
	require.Len(t, locals, 2)

	aws := got["provider"].(map[string]interface{})["aws"].([]interface{})
	require.Len(t, aws, 2)
	assert.Equal(t, "west", aws[1].(map[string]interface{})["alias"])
}

func TestParse_labelledNestedBlocks(t *testing.T) {
	src := `
terraform {
  backend "s3" {
    bucket = "b"
  }
}
`
	got, err := Parse("main.tf", []byte(src))
	require.NoError(t, err)

	tf := got["terraform"].([]interface{})[0].(map[string]interface{})
	backend := tf["backend"].(map[string]interface{})["s3"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "b", backend["bucket"])
}

func TestParse_unlabelledNestedBlocks(t *testing.T) {
	src := `
resource "aws_instance" "web" {
  root_block_device {
    volume_size = 40
  }
  root_block_device {
    volume_size = 80
  }
}
`
	got, err := Parse("main.tf", []byte(src))
	require.NoError(t, err)

	body := got["resource"].(map[string]interface{})["aws_instance"].(map[string]interface{})["web"].([]interface{})[0].(map[string]interface{})
	devices := body["root_block_device"].([]interface{})
	require.Len(t, devices, 2)
	assert.Equal(t, int64(40), devices[0].(map[string]interface{})["volume_size"])
}

func TestParse_heredocPreservesContent(t *testing.T) {
	src := "resource \"null_resource\" \"a\" {\n" +
		"  triggers = {\n" +
		"    script = <<-EOT\n" +
		"      line one\n" +
		"      line two\n" +
		"    EOT\n" +
		"  }\n" +
		"}\n"
	got, err := Parse("main.tf", []byte(src))
	require.NoError(t, err)

	triggers := got["resource"].(map[string]interface{})["null_resource"].(map[string]interface{})["a"].([]interface{})[0].(map[string]interface{})["triggers"].(map[string]interface{})
	assert.Equal(t, "line one\nline two\n", triggers["script"])
}

func TestParse_listWithMixedElements(t *testing.T) {
	src := `
resource "null_resource" "a" {
  triggers = {
    x = "static"
  }
}
output "o" {
  value = ["static", var.dynamic]
}
`
	got, err := Parse("main.tf", []byte(src))
	require.NoError(t, err)

	value := got["output"].(map[string]interface{})["o"].([]interface{})[0].(map[string]interface{})["value"].([]interface{})
	assert.Equal(t, "static", value[0])
	assert.Equal(t, "${var.dynamic}", value[1])
}

func TestParse_invalidHCL(t *testing.T) {
	_, err := Parse("main.tf", []byte(`resource "broken`))
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "main.tf", parseErr.Filename)
	assert.Contains(t, parseErr.Error(), "terraform validate")
}

func TestParse_wrongLabelCount(t *testing.T) {
	_, err := Parse("main.tf", []byte(`resource "only_one" {}`))
	require.Error(t, err)
}
