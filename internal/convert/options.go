// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package convert implements the HCL-to-CDKTF conversion pipeline: plan
// validation, node enumeration, reference discovery, topological emission,
// framing and lowering.
package convert

import (
	"io"
	"log"

	"github.com/hashicorp/hcl2cdk/internal/schemas"
)

// Language is a lowering target.
type Language string

const (
	LanguageTypescript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageJava       Language = "java"
	LanguageCSharp     Language = "csharp"
	LanguageGo         Language = "go"
)

var knownLanguages = []Language{
	LanguageTypescript,
	LanguagePython,
	LanguageJava,
	LanguageCSharp,
	LanguageGo,
}

func languageKnown(l Language) bool {
	for _, known := range knownLanguages {
		if l == known {
			return true
		}
	}
	return false
}

func languageNames() []string {
	names := make([]string, len(knownLanguages))
	for i, l := range knownLanguages {
		names[i] = string(l)
	}
	return names
}

const defaultCodeContainer = "cdktf.TerraformStack"

// Options configures a single conversion.
type Options struct {
	Language       Language
	ProviderSchema *schemas.Catalog
	// CodeContainer is the construct the declarations are wrapped in.
	// Defaults to "cdktf.TerraformStack".
	CodeContainer string
	// ThrowOnTranslationError turns lowering error diagnostics into a
	// failed conversion.
	ThrowOnTranslationError bool
	Logger                  *log.Logger
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.CodeContainer == "" {
		out.CodeContainer = defaultCodeContainer
	}
	if out.ProviderSchema == nil {
		out.ProviderSchema = schemas.NewCatalog()
	}
	if out.Logger == nil {
		out.Logger = log.New(io.Discard, "", 0)
	}
	return out
}

// Stats summarizes a conversion.
type Stats struct {
	NumberOfModules   int
	NumberOfProviders int
	Resources         map[string]int
	Data              map[string]int
	ConvertedLines    int
	Language          Language
}

// Result is the output of Convert.
type Result struct {
	// All is the full file: imports plus framed declarations.
	All string
	// Imports holds the import statements only.
	Imports string
	// Code holds the declarations only.
	Code string
	// Providers lists provider sources actually referenced,
	// "source" or "source@version".
	Providers []string
	// Modules lists module sources, "source" or "source@version".
	Modules []string
	// Warnings carries non-fatal notes (missing schema, unknown
	// functions, dropped references).
	Warnings []string
	Stats    Stats
}
