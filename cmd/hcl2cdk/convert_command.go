// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/hcl2cdk/internal/convert"
	"github.com/hashicorp/hcl2cdk/internal/schemas"
)

// ConvertCommand converts a Terraform HCL file into a CDKTF program.
type ConvertCommand struct {
	Ui     cli.Ui
	Logger *log.Logger
}

func (c *ConvertCommand) flags() *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.Usage = func() { c.Ui.Output(c.Help()) }
	return fs
}

func (c *ConvertCommand) Run(args []string) int {
	fs := c.flags()
	language := fs.String("language", "typescript", "target language")
	providers := fs.String("providers", "", "comma-separated provider sources to fetch schemas for")
	strict := fs.Bool("strict", false, "fail on lowering errors")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		c.Ui.Error("expected exactly one HCL file argument")
		return 1
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	catalog := schemas.NewCatalog()
	if *providers != "" {
		var targets []schemas.Target
		for _, source := range strings.Split(*providers, ",") {
			targets = append(targets, schemas.Target{Source: strings.TrimSpace(source)})
		}
		bundle, err := schemas.Read(ctx, targets, schemas.ReadOptions{Logger: c.Logger})
		if err != nil {
			c.Ui.Error(fmt.Sprintf("reading provider schemas: %s", err))
			return 1
		}
		catalog = bundle.Catalog
	}

	result, err := convert.Convert(ctx, string(src), convert.Options{
		Language:                convert.Language(*language),
		ProviderSchema:          catalog,
		ThrowOnTranslationError: *strict,
		Logger:                  c.Logger,
	})
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	c.Ui.Output(result.All)
	for _, w := range result.Warnings {
		c.Ui.Warn("warning: " + w)
	}
	return 0
}

func (c *ConvertCommand) Help() string {
	helpText := `
Usage: hcl2cdk convert [options] FILE

  Converts a Terraform HCL configuration into an equivalent CDKTF program.

Options:

  -language=<lang>    Target language: typescript, python, java, csharp, go.
                      Defaults to typescript.

  -providers=<list>   Comma-separated provider sources (e.g. hashicorp/aws)
                      to fetch schemas for via the Terraform CLI. Without
                      schemas the conversion is unchecked.

  -strict             Fail when the target-language lowering reports errors.
`
	return strings.TrimSpace(helpText)
}

func (c *ConvertCommand) Synopsis() string {
	return "Convert Terraform HCL to a CDKTF program"
}
