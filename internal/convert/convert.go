// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl2cdk/internal/ast"
	"github.com/hashicorp/hcl2cdk/internal/hcl2json"
	"github.com/hashicorp/hcl2cdk/internal/lowering"
	"github.com/hashicorp/hcl2cdk/internal/plan"
)

const stackClassName = "MyConvertedCode"

// pipeline is the per-conversion state threaded through every stage.
type pipeline struct {
	ws   *Workspace
	opts Options
	plan *plan.Plan

	// requiredVersions maps provider local name to the version
	// constraint declared in required_providers.
	requiredVersions map[string]string
	// requiredSources maps provider local name to the declared source.
	requiredSources map[string]string
	requiredVersion string
}

// Convert translates Terraform HCL source into a CDKTF program in the
// requested target language.
func Convert(ctx context.Context, hclSource string, options Options) (*Result, error) {
	opts := options.withDefaults()
	if !languageKnown(opts.Language) {
		return nil, &UnsupportedLanguageError{Language: opts.Language}
	}

	raw, err := hcl2json.Parse("main.tf", []byte(hclSource))
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(raw); err != nil {
		return nil, err
	}
	parsed, err := plan.Decode(raw)
	if err != nil {
		return nil, err
	}

	ws, err := NewWorkspace(opts.ProviderSchema, opts.Logger)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		ws:               ws,
		opts:             opts,
		plan:             parsed,
		requiredVersions: map[string]string{},
		requiredSources:  map[string]string{},
	}

	if err := p.registerNodes(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	discoverReferences(ws)

	stmts, err := emitInOrder(ws, p.emitNode)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stmts = p.frameStatements(stmts)
	imports := p.planImports()
	if len(stmts) == 0 && !strings.HasPrefix(opts.CodeContainer, "cdktf.") {
		imports = nil
	}

	file := &ast.File{
		Imports:   imports,
		ClassName: stackClassName,
		BaseClass: containerBaseClass(opts.CodeContainer),
		Stmts:     stmts,
	}

	all := ast.RenderFile(file)
	translation, err := lowering.Translate(
		lowering.File{Path: "main.ts", Source: all},
		string(opts.Language),
		lowering.TranslateOptions{IncludeDiagnostics: true},
	)
	if err != nil {
		return nil, err
	}
	if opts.ThrowOnTranslationError && translation.HasErrors() {
		return nil, &LoweringError{Diagnostics: translation.Errors()}
	}

	warnings := append([]string{}, ws.Warnings()...)
	for _, d := range translation.Diagnostics {
		warnings = append(warnings, d.String())
	}

	return &Result{
		All:       translation.Source,
		Imports:   ast.RenderImports(imports),
		Code:      ast.RenderStmts(stmts, 2),
		Providers: p.providerList(),
		Modules:   p.moduleList(),
		Warnings:  warnings,
		Stats:     p.stats(hclSource),
	}, nil
}

// registerNodes enumerates every top-level block as a graph node. All
// nodes register before any reference discovery so forward references
// bind. Within each kind, names sort lexically; the resulting
// registration order is the deterministic tie-break for emission.
func (p *pipeline) registerNodes() error {
	// terraform: backends and provider requirements
	for _, tf := range p.plan.Terraform {
		if tf.RequiredVersion != "" {
			p.requiredVersion = tf.RequiredVersion
		}
		for _, reqs := range tf.RequiredProviders {
			p.recordRequiredProviders(reqs)
		}
		backendTypes := make([]string, 0, len(tf.Backend))
		for t := range tf.Backend {
			backendTypes = append(backendTypes, t)
		}
		sort.Strings(backendTypes)
		for _, backendType := range backendTypes {
			for i, body := range tf.Backend[backendType] {
				id := nodeID(KindBackend, backendType)
				if i > 0 {
					id = fmt.Sprintf("%s.%d", id, i)
				}
				if _, err := p.ws.RegisterNode(&Node{
					ID: id, Kind: KindBackend, Type: backendType, Index: i, Fragment: body,
				}); err != nil {
					return err
				}
			}
		}
	}

	// providers
	providerNames := make([]string, 0, len(p.plan.Providers))
	for name := range p.plan.Providers {
		providerNames = append(providerNames, name)
	}
	sort.Strings(providerNames)
	for _, name := range providerNames {
		for i, cfg := range p.plan.Providers[name] {
			id := nodeID(KindProvider, name)
			if alias, ok := cfg["alias"].(string); ok && alias != "" {
				id = nodeID(KindProvider, name, alias)
			} else if i > 0 {
				id = fmt.Sprintf("%s.%d", id, i)
			}
			if _, err := p.ws.RegisterNode(&Node{
				ID: id, Kind: KindProvider, Type: name, Name: name, Index: i, Fragment: cfg,
			}); err != nil {
				return err
			}
		}
	}

	// variables
	variableNames := make([]string, 0, len(p.plan.Variables))
	for name := range p.plan.Variables {
		variableNames = append(variableNames, name)
	}
	sort.Strings(variableNames)
	for _, name := range variableNames {
		decl := p.plan.Variables[name]
		if _, err := p.ws.RegisterNode(&Node{
			ID: nodeID(KindVariable, name), Kind: KindVariable, Name: name,
			Fragment: map[string]interface{}{"default": decl.Default},
			Payload:  decl,
		}); err != nil {
			return err
		}
	}

	// locals, merged across blocks (last block wins on collision)
	merged, overridden := p.plan.MergedLocals()
	for _, key := range overridden {
		p.ws.Debugf("local %q defined in multiple locals blocks, last definition wins", key)
	}
	localNames := make([]string, 0, len(merged))
	for name := range merged {
		localNames = append(localNames, name)
	}
	sort.Strings(localNames)
	for _, name := range localNames {
		if _, err := p.ws.RegisterNode(&Node{
			ID: nodeID(KindLocal, name), Kind: KindLocal, Name: name,
			Fragment: map[string]interface{}{"value": merged[name]},
		}); err != nil {
			return err
		}
	}

	// modules
	moduleNames := make([]string, 0, len(p.plan.Modules))
	for name := range p.plan.Modules {
		moduleNames = append(moduleNames, name)
	}
	sort.Strings(moduleNames)
	for _, name := range moduleNames {
		for i, call := range p.plan.Modules[name] {
			id := nodeID(KindModule, name)
			if i > 0 {
				id = fmt.Sprintf("%s.%d", id, i)
			}
			fragment := map[string]interface{}{}
			for k, v := range call.Inputs {
				fragment[k] = v
			}
			if len(call.DependsOn) > 0 {
				fragment["depends_on"] = call.DependsOn
			}
			if _, err := p.ws.RegisterNode(&Node{
				ID: id, Kind: KindModule, Name: name, Index: i, Fragment: fragment, Payload: call,
			}); err != nil {
				return err
			}
		}
	}

	// resources and data sources
	for _, kind := range []NodeKind{KindResource, KindData} {
		source := p.plan.Resources
		if kind == KindData {
			source = p.plan.Data
		}
		typeNames := make([]string, 0, len(source))
		for t := range source {
			typeNames = append(typeNames, t)
		}
		sort.Strings(typeNames)
		for _, typeName := range typeNames {
			names := make([]string, 0, len(source[typeName]))
			for n := range source[typeName] {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, name := range names {
				for i, body := range source[typeName][name] {
					id := nodeID(kind, typeName, name)
					if i > 0 {
						id = fmt.Sprintf("%s.%d", id, i)
					}
					if _, err := p.ws.RegisterNode(&Node{
						ID: id, Kind: kind, Type: typeName, Name: name, Index: i, Fragment: body,
					}); err != nil {
						return err
					}
				}
			}
		}
	}

	// outputs
	outputNames := make([]string, 0, len(p.plan.Outputs))
	for name := range p.plan.Outputs {
		outputNames = append(outputNames, name)
	}
	sort.Strings(outputNames)
	for _, name := range outputNames {
		decl := p.plan.Outputs[name]
		fragment := map[string]interface{}{"value": decl.Value}
		if len(decl.DependsOn) > 0 {
			fragment["depends_on"] = decl.DependsOn
		}
		if _, err := p.ws.RegisterNode(&Node{
			ID: nodeID(KindOutput, name), Kind: KindOutput, Name: name, Fragment: fragment, Payload: decl,
		}); err != nil {
			return err
		}
	}

	return nil
}

// recordRequiredProviders ingests one required_providers body, accepting
// both the string constraint and the object form.
func (p *pipeline) recordRequiredProviders(reqs map[string]interface{}) {
	names := make([]string, 0, len(reqs))
	for name := range reqs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch req := reqs[name].(type) {
		case string:
			p.requiredVersions[name] = req
		case map[string]interface{}:
			if v, ok := req["version"].(string); ok {
				p.requiredVersions[name] = v
			}
			if s, ok := req["source"].(string); ok {
				p.requiredSources[name] = s
			}
		}
	}
}

// frameStatements prepends the framing annotations: the required_version
// note and the missing-schema warning ahead of the first declaration.
func (p *pipeline) frameStatements(stmts []ast.Stmt) []ast.Stmt {
	var prefix []ast.Stmt
	if missing := p.ws.MissingSchemas(); len(missing) > 0 {
		prefix = append(prefix, &ast.Comment{Lines: []string{
			"Provider schema is unavailable for: " + strings.Join(missing, ", ") + ".",
			"The conversion is unchecked for these providers; run `cdktf get` and review.",
		}})
	}
	if p.requiredVersion != "" {
		prefix = append(prefix, &ast.Comment{Lines: []string{
			fmt.Sprintf("Terraform required_version constraint: %s", p.requiredVersion),
		}})
	}
	if len(prefix) == 0 {
		return stmts
	}
	return append(prefix, stmts...)
}

func containerBaseClass(container string) string {
	if idx := strings.LastIndexByte(container, '.'); idx >= 0 {
		return container[idx+1:]
	}
	return container
}

// stats summarizes the conversion per the external interface contract.
func (p *pipeline) stats(input string) Stats {
	s := Stats{
		Resources:      map[string]int{},
		Data:           map[string]int{},
		ConvertedLines: convertedLines(input),
		Language:       p.opts.Language,
	}
	for _, n := range p.ws.NodesInOrder() {
		switch n.Kind {
		case KindModule:
			s.NumberOfModules++
		case KindResource:
			s.Resources[n.Type]++
		case KindData:
			s.Data[n.Type]++
		}
	}
	s.NumberOfProviders = len(p.ws.ProvidersUsed())
	return s
}

// convertedLines counts newline-terminated lines, plus one when non-empty
// input lacks a trailing newline. Empty input counts zero lines.
func convertedLines(input string) int {
	if input == "" {
		return 0
	}
	n := strings.Count(input, "\n")
	if !strings.HasSuffix(input, "\n") {
		n++
	}
	return n
}
