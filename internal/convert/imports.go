// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"sort"
	"strings"

	"github.com/hashicorp/hcl2cdk/internal/ast"
	"github.com/hashicorp/hcl2cdk/internal/schemas"
)

// planImports computes the minimal import set for the emitted program:
// constructs always, framework core only when a core feature is used,
// one import per referenced provider and per module source.
func (p *pipeline) planImports() []ast.Import {
	imports := []ast.Import{{
		Symbols: []ast.ImportSymbol{{Name: "Construct"}},
		From:    "constructs",
	}}

	coreSymbols := p.ws.FrameworkSymbols()
	container := p.opts.CodeContainer
	if strings.HasPrefix(container, "cdktf.") {
		coreSymbols = append(coreSymbols, strings.TrimPrefix(container, "cdktf."))
	}
	if len(coreSymbols) > 0 {
		coreSymbols = dedupeSorted(coreSymbols)
		symbols := make([]ast.ImportSymbol, len(coreSymbols))
		for i, s := range coreSymbols {
			symbols[i] = ast.ImportSymbol{Name: s}
		}
		imports = append(imports, ast.Import{Symbols: symbols, From: "cdktf"})
	}

	first := true
	for _, localName := range p.ws.ProvidersUsed() {
		names := p.ws.ProviderSymbols(localName)
		if len(names) == 0 {
			continue
		}
		symbols := make([]ast.ImportSymbol, len(names))
		for i, s := range names {
			symbols[i] = ast.ImportSymbol{Name: s}
		}
		imp := ast.Import{Symbols: symbols, From: "./.gen/providers/" + localName}
		if first {
			imp.Comments = []string{"Provider bindings are generated by running `cdktf get`."}
			first = false
		}
		imports = append(imports, imp)
	}

	for _, symbol := range p.ws.ModulesUsed() {
		path, _ := p.ws.ModuleImport(symbol)
		imports = append(imports, ast.Import{
			Symbols: []ast.ImportSymbol{{Name: symbol}},
			From:    path,
		})
	}

	return imports
}

// providerList builds the "source@version" list for referenced providers.
func (p *pipeline) providerList() []string {
	var out []string
	for _, localName := range p.ws.ProvidersUsed() {
		addr, ok := p.ws.ProviderAddress(localName)
		if !ok {
			continue
		}
		// A required_providers declaration wins over the schemaless
		// fallback address.
		if source, declared := p.requiredSources[localName]; declared {
			if parsed, err := schemas.ParseSource(source); err == nil {
				addr = parsed
			}
		}
		entry := addr.Namespace + "/" + addr.Type
		if v := p.opts.ProviderSchema.Version(addr); v != nil {
			entry += "@" + v.String()
		} else if constraint, ok := p.requiredVersions[localName]; ok && constraint != "" {
			entry += "@" + constraint
		}
		out = append(out, entry)
	}
	sort.Strings(out)
	return out
}

// moduleList builds the "source@version" list for referenced modules.
func (p *pipeline) moduleList() []string {
	var out []string
	for _, symbol := range p.ws.ModulesUsed() {
		_, sourceVersion := p.ws.ModuleImport(symbol)
		out = append(out, sourceVersion)
	}
	sort.Strings(out)
	return out
}

func dedupeSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	var prev string
	for i, s := range in {
		if i == 0 || s != prev {
			out = append(out, s)
		}
		prev = s
	}
	return out
}
