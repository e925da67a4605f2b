// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	tfjson "github.com/hashicorp/terraform-json"
	"github.com/zclconf/go-cty/cty"

	"github.com/hashicorp/hcl2cdk/internal/ast"
	"github.com/hashicorp/hcl2cdk/internal/plan"
)

// resourceMetaArguments are handled outside schema-driven lowering.
var resourceMetaArguments = map[string]struct{}{
	"count":       {},
	"for_each":    {},
	"provider":    {},
	"depends_on":  {},
	"lifecycle":   {},
	"dynamic":     {},
	"provisioner": {},
	"connection":  {},
}

// emitNode dispatches to the per-kind emitter. Emitters are pure functions
// of (workspace, node, fragment, graph): identical inputs produce
// identical statements.
func (p *pipeline) emitNode(n *Node) ([]ast.Stmt, error) {
	switch n.Kind {
	case KindBackend:
		return p.emitBackend(n)
	case KindProvider:
		return p.emitProvider(n)
	case KindVariable:
		return p.emitVariable(n)
	case KindLocal:
		return p.emitLocal(n)
	case KindOutput:
		return p.emitOutput(n)
	case KindModule:
		return p.emitModule(n)
	case KindResource, KindData:
		return p.emitResource(n)
	}
	return nil, fmt.Errorf("no emitter for node kind %q", n.Kind)
}

func (p *pipeline) emitBackend(n *Node) ([]ast.Stmt, error) {
	ctor := backendConstructor(n.Type)
	p.ws.UseFrameworkSymbol(ctor)

	tr := newTranslator(p.ws, n)
	entries := make([]ast.ObjectEntry, 0, len(n.Fragment))
	for _, key := range sortedFragmentKeys(n.Fragment) {
		entries = append(entries, ast.ObjectEntry{
			Key:   camelCase(key),
			Value: tr.value(n.Fragment[key], cty.NilType),
		})
	}

	return []ast.Stmt{&ast.NewConstruct{
		Ctor:   ctor,
		Scope:  "this",
		Config: &ast.Object{Entries: entries},
	}}, nil
}

// backendConstructor maps a backend type to its framework constructor.
func backendConstructor(backendType string) string {
	switch backendType {
	case "s3":
		return "S3Backend"
	case "gcs":
		return "GcsBackend"
	case "azurerm":
		return "AzurermBackend"
	case "http":
		return "HttpBackend"
	case "consul":
		return "ConsulBackend"
	case "cos":
		return "CosBackend"
	case "oss":
		return "OssBackend"
	case "pg":
		return "PgBackend"
	case "remote":
		return "RemoteBackend"
	case "local":
		return "LocalBackend"
	}
	return pascalCase(backendType) + "Backend"
}

func (p *pipeline) emitProvider(n *Node) ([]ast.Stmt, error) {
	localName := n.Type
	p.ws.UseProvider(localName)
	ctor := pascalCase(localName) + "Provider"
	p.ws.UseProviderSymbol(localName, ctor)

	logicalID := localName
	if alias, ok := n.Fragment["alias"].(string); ok && alias != "" {
		logicalID = localName + "_" + alias
	}

	var configSchema *tfjson.SchemaBlock
	if addr, ok := p.ws.ProviderAddress(localName); ok {
		if ps, ok := p.opts.ProviderSchema.ProviderSchema(addr); ok && ps.ConfigSchema != nil {
			configSchema = ps.ConfigSchema.Block
		}
	}

	tr := newTranslator(p.ws, n)
	config := p.blockBody(tr, n.Fragment, configSchema)

	ident := p.ws.ToIdentifier(n.ID, localName)
	return []ast.Stmt{&ast.NewConstruct{
		Name:      ident,
		Ctor:      ctor,
		Scope:     "this",
		LogicalID: logicalID,
		Config:    config,
	}}, nil
}

func (p *pipeline) emitVariable(n *Node) ([]ast.Stmt, error) {
	decl := n.Payload.(plan.Variable)
	p.ws.UseFrameworkSymbol("TerraformVariable")

	tr := newTranslator(p.ws, n)
	var entries []ast.ObjectEntry

	if decl.Type != nil {
		entries = append(entries, ast.ObjectEntry{
			Key:   "type",
			Value: ast.Str(variableTypeString(decl.Type, p.ws)),
		})
	}
	if decl.Default != nil {
		entries = append(entries, ast.ObjectEntry{
			Key:   "default",
			Value: tr.value(decl.Default, cty.NilType),
		})
	}
	if decl.Description != "" {
		entries = append(entries, ast.ObjectEntry{Key: "description", Value: ast.Str(decl.Description)})
	}
	if decl.Sensitive {
		entries = append(entries, ast.ObjectEntry{Key: "sensitive", Value: &ast.BoolLit{Value: true}})
	}
	if decl.Nullable != nil {
		entries = append(entries, ast.ObjectEntry{Key: "nullable", Value: &ast.BoolLit{Value: *decl.Nullable}})
	}
	if len(decl.Validation) > 0 {
		p.ws.Warnf("variable %q: validation blocks are not representable and were dropped", n.Name)
	}

	ident := p.ws.ToIdentifier(n.ID, camelCase(n.Name))
	return []ast.Stmt{&ast.NewConstruct{
		Name:      ident,
		Ctor:      "TerraformVariable",
		Scope:     "this",
		LogicalID: n.Name,
		Config:    &ast.Object{Entries: entries},
	}}, nil
}

// variableTypeString renders a variable's declared type constraint. The
// verbatim HCL type expression is parsed through the type-constraint
// grammar and re-rendered canonically.
func variableTypeString(raw interface{}, ws *Workspace) string {
	text, ok := raw.(string)
	if !ok {
		return "any"
	}
	text = strings.TrimSuffix(strings.TrimPrefix(text, "${"), "}")
	expr, diags := hclsyntax.ParseExpression([]byte(text), "type.tf", hcl.InitialPos)
	if diags.HasErrors() {
		ws.Warnf("unparsable variable type %q, falling back to any", text)
		return "any"
	}
	ty, tDiags := typeexpr.TypeConstraint(expr)
	if tDiags.HasErrors() {
		ws.Warnf("invalid variable type constraint %q, falling back to any", text)
		return "any"
	}
	return typeConstraintString(ty)
}

func typeConstraintString(ty cty.Type) string {
	switch {
	case ty == cty.String:
		return "string"
	case ty == cty.Number:
		return "number"
	case ty == cty.Bool:
		return "bool"
	case ty == cty.DynamicPseudoType:
		return "any"
	case ty.IsListType():
		return "list(" + typeConstraintString(ty.ElementType()) + ")"
	case ty.IsSetType():
		return "set(" + typeConstraintString(ty.ElementType()) + ")"
	case ty.IsMapType():
		return "map(" + typeConstraintString(ty.ElementType()) + ")"
	case ty.IsTupleType():
		parts := make([]string, len(ty.TupleElementTypes()))
		for i, et := range ty.TupleElementTypes() {
			parts[i] = typeConstraintString(et)
		}
		return "tuple(" + strings.Join(parts, ", ") + ")"
	case ty.IsObjectType():
		names := make([]string, 0, len(ty.AttributeTypes()))
		for name := range ty.AttributeTypes() {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + " = " + typeConstraintString(ty.AttributeType(name))
		}
		return "object({ " + strings.Join(parts, ", ") + " })"
	}
	return "any"
}

func (p *pipeline) emitLocal(n *Node) ([]ast.Stmt, error) {
	tr := newTranslator(p.ws, n)
	value := tr.value(n.Fragment["value"], cty.NilType)
	ident := p.ws.ToIdentifier(n.ID, camelCase(n.Name))
	return []ast.Stmt{&ast.ConstDecl{Name: ident, Value: value}}, nil
}

func (p *pipeline) emitOutput(n *Node) ([]ast.Stmt, error) {
	decl := n.Payload.(plan.Output)
	p.ws.UseFrameworkSymbol("TerraformOutput")

	tr := newTranslator(p.ws, n)
	entries := []ast.ObjectEntry{
		{Key: "value", Value: tr.value(decl.Value, cty.NilType)},
	}
	if decl.Description != "" {
		entries = append(entries, ast.ObjectEntry{Key: "description", Value: ast.Str(decl.Description)})
	}
	if decl.Sensitive {
		entries = append(entries, ast.ObjectEntry{Key: "sensitive", Value: &ast.BoolLit{Value: true}})
	}
	if deps := p.dependsOnList(decl.DependsOn); deps != nil {
		entries = append(entries, ast.ObjectEntry{Key: "dependsOn", Value: deps})
	}

	return []ast.Stmt{&ast.NewConstruct{
		Ctor:      "TerraformOutput",
		Scope:     "this",
		LogicalID: n.Name,
		Config:    &ast.Object{Entries: entries},
	}}, nil
}

func (p *pipeline) emitModule(n *Node) ([]ast.Stmt, error) {
	call := n.Payload.(plan.ModuleCall)

	symbol := pascalCase(n.Name)
	sourceVersion := call.Source
	if call.Version != "" {
		sourceVersion += "@" + call.Version
	}
	p.ws.UseModule(symbol, "./.gen/modules/"+n.Name, sourceVersion)

	tr := newTranslator(p.ws, n)
	entries := make([]ast.ObjectEntry, 0, len(call.Inputs))
	for _, key := range sortedInputKeys(call.Inputs) {
		entries = append(entries, ast.ObjectEntry{
			Key:   camelCase(key),
			Value: tr.value(call.Inputs[key], cty.NilType),
		})
	}
	if deps := p.dependsOnList(call.DependsOn); deps != nil {
		entries = append(entries, ast.ObjectEntry{Key: "dependsOn", Value: deps})
	}
	if len(call.Providers) > 0 {
		p.ws.Warnf("module %q: provider passing is not translated", n.Name)
	}

	ident := p.ws.ToIdentifier(n.ID, camelCase(n.Name))
	return []ast.Stmt{&ast.NewConstruct{
		Name:      ident,
		Ctor:      symbol,
		Scope:     "this",
		LogicalID: n.Name,
		Config:    &ast.Object{Entries: entries},
	}}, nil
}

func (p *pipeline) emitResource(n *Node) ([]ast.Stmt, error) {
	// Remote state data sources are framework-provided, not provider
	// bindings.
	if n.Kind == KindData && n.Type == "terraform_remote_state" {
		return p.emitRemoteState(n)
	}

	localName := providerLocalName(n.Type)
	p.ws.UseProvider(localName)
	addr, _ := p.ws.ProviderAddress(localName)

	var schema *tfjson.Schema
	var found bool
	if n.Kind == KindData {
		schema, found = p.opts.ProviderSchema.DataSourceSchema(n.Type)
	} else {
		schema, found = p.opts.ProviderSchema.ResourceSchema(n.Type)
	}
	if !found {
		p.ws.Debugf("no schema for %s %q, lowering without types", n.Kind, n.Type)
	}
	var block *tfjson.SchemaBlock
	if schema != nil {
		block = schema.Block
	}

	ctor := p.ws.ConstructName(addr, n.Kind, n.Type)
	p.ws.UseProviderSymbol(localName, ctor)

	tr := newTranslator(p.ws, n)
	ident := p.ws.ToIdentifier(n.ID, camelCase(n.Name))

	var stmts []ast.Stmt
	var metaEntries []ast.ObjectEntry

	// for_each gets a framework iterator declared immediately before the
	// owning resource.
	if forEach, ok := n.Fragment["for_each"]; ok {
		iterName := ident + "ForEach"
		p.ws.UseFrameworkSymbol("TerraformIterator")
		p.ws.UseFrameworkSymbol("Token")
		stmts = append(stmts, &ast.ConstDecl{
			Name: iterName,
			Value: &ast.Call{
				Fn: &ast.Member{Object: &ast.Ident{Name: "TerraformIterator"}, Attr: "fromList"},
				Args: []ast.Expr{
					ast.TokenCoercion("asAny", tr.value(forEach, cty.NilType)),
				},
			},
		})
		tr.bind("each", &ast.Ident{Name: iterName})
		metaEntries = append(metaEntries, ast.ObjectEntry{Key: "forEach", Value: &ast.Ident{Name: iterName}})
	}

	if count, ok := n.Fragment["count"]; ok {
		metaEntries = append(metaEntries, ast.ObjectEntry{
			Key:   "count",
			Value: tr.value(count, cty.Number),
		})
	}

	if providerRef, ok := n.Fragment["provider"].(string); ok {
		if expr := p.providerRefExpr(providerRef); expr != nil {
			metaEntries = append(metaEntries, ast.ObjectEntry{Key: "provider", Value: expr})
		}
	}

	if deps := p.dependsOnList(n.Fragment["depends_on"]); deps != nil {
		metaEntries = append(metaEntries, ast.ObjectEntry{Key: "dependsOn", Value: deps})
	}

	if lifecycle, ok := n.Fragment["lifecycle"]; ok {
		if bodies, ok := lifecycle.([]interface{}); ok && len(bodies) > 0 {
			if body, ok := bodies[0].(map[string]interface{}); ok {
				entries := make([]ast.ObjectEntry, 0, len(body))
				for _, key := range sortedFragmentKeys(body) {
					entries = append(entries, ast.ObjectEntry{
						Key:   camelCase(key),
						Value: tr.value(body[key], cty.NilType),
					})
				}
				metaEntries = append(metaEntries, ast.ObjectEntry{Key: "lifecycle", Value: &ast.Object{Entries: entries}})
			}
		}
	}

	if _, ok := n.Fragment["provisioner"]; ok {
		p.ws.Warnf("%s: provisioner blocks are not translated", n.ID)
	}

	config := p.blockBodyObject(tr, n.Fragment, block)
	config.Entries = append(config.Entries, metaEntries...)

	stmts = append(stmts, &ast.NewConstruct{
		Name:      ident,
		Ctor:      ctor,
		Scope:     "this",
		LogicalID: n.Name,
		Config:    config,
	})
	return stmts, nil
}

// emitRemoteState lowers a terraform_remote_state data source onto the
// framework's remote state construct.
func (p *pipeline) emitRemoteState(n *Node) ([]ast.Stmt, error) {
	ctor := "DataTerraformRemoteState"
	if backend, ok := n.Fragment["backend"].(string); ok && !strings.Contains(backend, "${") && backend != "remote" {
		ctor = "DataTerraformRemoteState" + pascalCase(backend)
	}
	p.ws.UseFrameworkSymbol(ctor)

	tr := newTranslator(p.ws, n)
	entries := make([]ast.ObjectEntry, 0, len(n.Fragment))
	for _, key := range sortedFragmentKeys(n.Fragment) {
		if key == "backend" {
			continue
		}
		if key == "config" {
			if cfg, ok := n.Fragment[key].(map[string]interface{}); ok {
				for _, cfgKey := range sortedFragmentKeys(cfg) {
					entries = append(entries, ast.ObjectEntry{
						Key:   camelCase(cfgKey),
						Value: tr.value(cfg[cfgKey], cty.NilType),
					})
				}
				continue
			}
		}
		entries = append(entries, ast.ObjectEntry{
			Key:   camelCase(key),
			Value: tr.value(n.Fragment[key], cty.NilType),
		})
	}

	ident := p.ws.ToIdentifier(n.ID, camelCase(n.Name))
	return []ast.Stmt{&ast.NewConstruct{
		Name:      ident,
		Ctor:      ctor,
		Scope:     "this",
		LogicalID: n.Name,
		Config:    &ast.Object{Entries: entries},
	}}, nil
}

// providerLocalName returns the provider local name of a resource or data
// source type: the text before the first underscore, or the whole type when
// it has none.
func providerLocalName(resourceType string) string {
	if i := strings.IndexByte(resourceType, '_'); i > 0 {
		return resourceType[:i]
	}
	return resourceType
}

// providerRefExpr resolves a `provider = aws.west` meta-argument to the
// emitted provider identifier.
func (p *pipeline) providerRefExpr(ref string) ast.Expr {
	ref = strings.TrimSuffix(strings.TrimPrefix(ref, "${"), "}")
	for _, id := range providerRefCandidates(ref) {
		if _, ok := p.ws.NodeByID(id); !ok {
			continue
		}
		if ident, ok := p.ws.IdentifierFor(id); ok {
			return &ast.Ident{Name: ident}
		}
	}
	p.ws.Warnf("provider reference %q could not be resolved", ref)
	return nil
}

// dependsOnList translates depends_on entries into construct references.
func (p *pipeline) dependsOnList(v interface{}) ast.Expr {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return nil
	}
	var items []ast.Expr
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		refs := dependsOnRefs([]interface{}{s})
		if len(refs) == 0 {
			continue
		}
		if ident, ok := p.ws.IdentifierFor(refs[0]); ok {
			items = append(items, &ast.Ident{Name: ident})
		}
	}
	if len(items) == 0 {
		return nil
	}
	return &ast.List{Items: items}
}

// blockBody lowers a block body against its schema and wraps it in an
// object expression. Nested dynamic blocks are lowered here; the other
// meta-arguments are skipped and left to the caller.
func (p *pipeline) blockBody(tr *translator, body map[string]interface{}, block *tfjson.SchemaBlock) ast.Expr {
	return p.blockBodyObject(tr, body, block)
}

func (p *pipeline) blockBodyObject(tr *translator, body map[string]interface{}, block *tfjson.SchemaBlock) *ast.Object {
	entries := make([]ast.ObjectEntry, 0, len(body))
	for _, key := range sortedFragmentKeys(body) {
		if _, isMeta := resourceMetaArguments[key]; isMeta {
			if key == "dynamic" {
				entries = append(entries, p.dynamicBlockEntries(tr, body[key], block)...)
			}
			continue
		}

		value := body[key]

		if block != nil {
			if nested, ok := block.NestedBlocks[key]; ok {
				entries = append(entries, ast.ObjectEntry{
					Key:   camelCase(key),
					Value: p.nestedBlockValue(tr, value, nested),
				})
				continue
			}
			if attr, ok := block.Attributes[key]; ok {
				entries = append(entries, ast.ObjectEntry{
					Key:   camelCase(key),
					Value: tr.value(value, attr.AttributeType),
				})
				continue
			}
		}

		// Unknown attributes are accepted for forward compatibility and
		// lowered without type information.
		entries = append(entries, ast.ObjectEntry{
			Key:   camelCase(key),
			Value: tr.value(value, cty.NilType),
		})
	}
	return &ast.Object{Entries: entries}
}

// nestedBlockValue lowers the collected bodies of a nested block type.
func (p *pipeline) nestedBlockValue(tr *translator, value interface{}, nested *tfjson.SchemaBlockType) ast.Expr {
	bodies, ok := value.([]interface{})
	if !ok {
		return tr.value(value, cty.NilType)
	}

	lower := func(item interface{}) ast.Expr {
		body, ok := item.(map[string]interface{})
		if !ok {
			return tr.value(item, cty.NilType)
		}
		return p.blockBodyObject(tr, body, nested.Block)
	}

	if nested.NestingMode == tfjson.SchemaNestingModeSingle && len(bodies) == 1 {
		return lower(bodies[0])
	}
	items := make([]ast.Expr, len(bodies))
	for i, item := range bodies {
		items[i] = lower(item)
	}
	return &ast.List{Items: items}
}

// dynamicBlockEntries lowers `dynamic "x" { for_each = ... content {} }`
// into an inline iteration producing a list of objects.
func (p *pipeline) dynamicBlockEntries(tr *translator, value interface{}, block *tfjson.SchemaBlock) []ast.ObjectEntry {
	byLabel, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}

	var entries []ast.ObjectEntry
	for _, label := range sortedFragmentKeys(byLabel) {
		bodies, ok := byLabel[label].([]interface{})
		if !ok {
			continue
		}
		for _, rawBody := range bodies {
			body, ok := rawBody.(map[string]interface{})
			if !ok {
				continue
			}
			forEach, hasForEach := body["for_each"]
			contentList, _ := body["content"].([]interface{})
			if !hasForEach || len(contentList) == 0 {
				p.ws.Warnf("dynamic %q: missing for_each or content, dropped", label)
				continue
			}
			content, ok := contentList[0].(map[string]interface{})
			if !ok {
				continue
			}

			iterVar := label
			if custom, ok := body["iterator"].(string); ok && custom != "" {
				iterVar = custom
			}
			param := sanitizeIdentifier(iterVar)

			// Inside content, `<iterVar>.value` is the current element.
			tr.bindIterator(iterVar, &ast.Ident{Name: param})

			var nestedBlock *tfjson.SchemaBlock
			if block != nil {
				if nested, ok := block.NestedBlocks[label]; ok {
					nestedBlock = nested.Block
				}
			}
			contentObj := p.blockBodyObject(tr, content, nestedBlock)
			tr.unbind(iterVar)

			iteration := &ast.Call{
				Fn: &ast.Member{Object: tr.value(forEach, cty.NilType), Attr: "map"},
				Args: []ast.Expr{
					&ast.Arrow{Params: []string{param}, Body: contentObj},
				},
			}
			entries = append(entries, ast.ObjectEntry{Key: camelCase(label), Value: iteration})
		}
	}
	return entries
}

func sortedInputKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
