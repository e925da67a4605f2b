// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/hashicorp/hcl2cdk/internal/ast"
)

// translated is the result of translating one value or expression. token
// reports whether the expression yields a framework token at synthesis
// time (a computed attribute reference, a framework function call);
// literal carries kept-literal text for references that could not be
// resolved and must survive verbatim inside a template.
type translated struct {
	expr    ast.Expr
	token   bool
	literal string
}

func (t translated) render() ast.Expr {
	if t.literal != "" {
		return ast.Str("${" + t.literal + "}")
	}
	return t.expr
}

// translator lowers JSON-shaped fragment values and HCL expressions into
// AST expressions against the workspace's identifier table.
type translator struct {
	ws   *Workspace
	node *Node
	// bindings maps iteration variable roots (for-expression variables,
	// dynamic block iterators, for_each's `each`) to their AST form.
	bindings map[string]binding
	// src holds the source bytes of the expression string currently
	// being translated, for kept-literal extraction.
	src []byte
}

// binding is a bound iteration variable. stripValue marks dynamic-block
// iterators whose `.value` step is implicit in the bound expression.
type binding struct {
	expr       ast.Expr
	stripValue bool
}

func newTranslator(ws *Workspace, node *Node) *translator {
	return &translator{ws: ws, node: node, bindings: map[string]binding{}}
}

func (tr *translator) bind(name string, expr ast.Expr) {
	tr.bindings[name] = binding{expr: expr}
}

func (tr *translator) bindIterator(name string, expr ast.Expr) {
	tr.bindings[name] = binding{expr: expr, stripValue: true}
}

func (tr *translator) unbind(name string) {
	delete(tr.bindings, name)
}

// value translates a fragment leaf or container against a declared
// attribute type, applying token coercion where the declared type is
// primitive but the expression yields a token.
func (tr *translator) value(v interface{}, ty cty.Type) ast.Expr {
	t := tr.valueInner(v, ty)
	return tr.coerce(t, ty)
}

func (tr *translator) valueInner(v interface{}, ty cty.Type) translated {
	switch value := v.(type) {
	case nil:
		return translated{expr: &ast.NullLit{}}
	case bool:
		return translated{expr: &ast.BoolLit{Value: value}}
	case int:
		return translated{expr: &ast.NumberLit{Value: strconv.Itoa(value)}}
	case int64:
		return translated{expr: &ast.NumberLit{Value: strconv.FormatInt(value, 10)}}
	case float64:
		return translated{expr: &ast.NumberLit{Value: formatFloat(value)}}
	case string:
		return tr.stringValue(value)
	case []interface{}:
		items := make([]ast.Expr, len(value))
		for i, item := range value {
			t := tr.valueInner(item, elementType(ty, i))
			items[i] = tr.coerce(t, elementType(ty, i))
		}
		// A literal container is not itself a token, whatever its
		// elements hold; they were coerced individually above.
		return translated{expr: &ast.List{Items: items}}
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]ast.ObjectEntry, 0, len(keys))
		for _, k := range keys {
			elemTy := attributeType(ty, k)
			t := tr.valueInner(value[k], elemTy)
			entries = append(entries, ast.ObjectEntry{
				Key:   objectKey(ty, k),
				Value: tr.coerce(t, elemTy),
			})
		}
		return translated{expr: &ast.Object{Entries: entries}}
	}
	return translated{expr: &ast.Raw{Text: fmt.Sprintf("%v", v)}}
}

// stringValue handles verbatim HCL strings: plain literals stay literal,
// anything containing an interpolation is re-parsed as a template.
func (tr *translator) stringValue(s string) translated {
	if !strings.Contains(s, "${") {
		return translated{expr: &ast.StringLit{Value: s, Multiline: strings.Contains(s, "\n")}}
	}

	prevSrc := tr.src
	tr.src = []byte(s)
	defer func() { tr.src = prevSrc }()

	expr, diags := hclsyntax.ParseTemplate(tr.src, "expression.tf", hcl.InitialPos)
	if diags.HasErrors() {
		tr.ws.Warnf("unparsable expression kept verbatim: %s", s)
		return translated{expr: &ast.StringLit{Value: s, Multiline: strings.Contains(s, "\n")}}
	}
	return tr.hclExpr(expr)
}

// hclExpr translates a parsed HCL expression.
func (tr *translator) hclExpr(expr hclsyntax.Expression) translated {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return tr.literalValue(e.Val)

	case *hclsyntax.TemplateExpr:
		return tr.template(e)

	case *hclsyntax.TemplateWrapExpr:
		return tr.hclExpr(e.Wrapped)

	case *hclsyntax.ScopeTraversalExpr:
		return tr.reference(e.Traversal)

	case *hclsyntax.RelativeTraversalExpr:
		base := tr.hclExpr(e.Source)
		if base.literal != "" {
			return translated{literal: tr.exprSource(expr)}
		}
		return translated{expr: applyTraversal(base.expr, e.Traversal), token: base.token}

	case *hclsyntax.FunctionCallExpr:
		return tr.functionCall(e)

	case *hclsyntax.ConditionalExpr:
		cond := tr.hclExpr(e.Condition)
		t := tr.hclExpr(e.TrueResult)
		f := tr.hclExpr(e.FalseResult)
		return translated{
			expr:  &ast.Conditional{Cond: cond.render(), True: t.render(), False: f.render()},
			token: cond.token || t.token || f.token,
		}

	case *hclsyntax.BinaryOpExpr:
		lhs := tr.hclExpr(e.LHS)
		rhs := tr.hclExpr(e.RHS)
		return translated{
			expr:  &ast.Binary{Op: binaryOp(e.Op), LHS: lhs.render(), RHS: rhs.render()},
			token: lhs.token || rhs.token,
		}

	case *hclsyntax.UnaryOpExpr:
		x := tr.hclExpr(e.Val)
		return translated{expr: &ast.Unary{Op: unaryOp(e.Op), X: x.render()}, token: x.token}

	case *hclsyntax.TupleConsExpr:
		items := make([]ast.Expr, len(e.Exprs))
		for i, item := range e.Exprs {
			items[i] = tr.hclExpr(item).render()
		}
		return translated{expr: &ast.List{Items: items}}

	case *hclsyntax.ObjectConsExpr:
		entries := make([]ast.ObjectEntry, 0, len(e.Items))
		for _, item := range e.Items {
			keyT := tr.objectConsKey(item.KeyExpr)
			valT := tr.hclExpr(item.ValueExpr)
			entry := ast.ObjectEntry{Value: valT.render()}
			if lit, ok := keyT.(*ast.StringLit); ok {
				entry.Key = lit.Value
			} else {
				entry.KeyExpr = keyT
			}
			entries = append(entries, entry)
		}
		return translated{expr: &ast.Object{Entries: entries}}

	case *hclsyntax.IndexExpr:
		coll := tr.hclExpr(e.Collection)
		key := tr.hclExpr(e.Key)
		return translated{
			expr:  &ast.Index{Object: coll.render(), Key: key.render()},
			token: coll.token || key.token,
		}

	case *hclsyntax.SplatExpr:
		return tr.splat(e)

	case *hclsyntax.ForExpr:
		return tr.forExpr(e)

	case *hclsyntax.ParenthesesExpr:
		return tr.hclExpr(e.Expression)
	}

	// Constructs without a mapping are kept literally.
	src := tr.exprSource(expr)
	tr.ws.Warnf("expression kept verbatim: %s", src)
	return translated{literal: src}
}

func (tr *translator) literalValue(val cty.Value) translated {
	if val.IsNull() {
		return translated{expr: &ast.NullLit{}}
	}
	switch val.Type() {
	case cty.String:
		s := val.AsString()
		return translated{expr: &ast.StringLit{Value: s, Multiline: strings.Contains(s, "\n")}}
	case cty.Number:
		num := val.AsBigFloat()
		if num.IsInt() {
			i, _ := num.Int64()
			return translated{expr: &ast.NumberLit{Value: strconv.FormatInt(i, 10)}}
		}
		f, _ := num.Float64()
		return translated{expr: &ast.NumberLit{Value: formatFloat(f)}}
	case cty.Bool:
		return translated{expr: &ast.BoolLit{Value: val.True()}}
	}
	return translated{expr: &ast.NullLit{}}
}

// template translates a string template. A single interpolation with no
// surrounding literal text emits the inner expression directly.
func (tr *translator) template(e *hclsyntax.TemplateExpr) translated {
	if len(e.Parts) == 1 {
		if lit, ok := e.Parts[0].(*hclsyntax.LiteralValueExpr); ok {
			return tr.literalValue(lit.Val)
		}
		return tr.hclExpr(e.Parts[0])
	}

	parts := make([]ast.Expr, 0, len(e.Parts))
	token := false
	for _, part := range e.Parts {
		if lit, ok := part.(*hclsyntax.LiteralValueExpr); ok && lit.Val.Type() == cty.String {
			parts = append(parts, ast.Str(lit.Val.AsString()))
			continue
		}
		t := tr.hclExpr(part)
		if t.literal != "" {
			parts = append(parts, ast.Str("${"+t.literal+"}"))
			continue
		}
		parts = append(parts, t.expr)
		token = token || t.token
	}
	return translated{expr: &ast.Template{Parts: parts}, token: token}
}

// reference binds a traversal to a previously emitted identifier.
func (tr *translator) reference(trav hcl.Traversal) translated {
	root := trav.RootName()

	if bound, ok := tr.bindings[root]; ok {
		rest := trav[1:]
		if bound.stripValue && len(rest) > 0 {
			if attr, ok := rest[0].(hcl.TraverseAttr); ok && attr.Name == "value" {
				rest = rest[1:]
			}
		}
		return translated{expr: applyTraversal(bound.expr, rest), token: true}
	}

	if _, reserved := reservedRoots[root]; reserved {
		return translated{literal: traversalSource(trav)}
	}

	id, consumed, ok := resolveReference(trav)
	if !ok {
		return translated{literal: traversalSource(trav)}
	}
	node, registered := tr.ws.NodeByID(id)
	if !registered {
		tr.ws.Debugf("unresolved reference %q kept literal", traversalSource(trav))
		return translated{literal: traversalSource(trav)}
	}
	ident, haveIdent := tr.ws.IdentifierFor(id)
	if !haveIdent {
		tr.ws.Debugf("reference to unemitted node %q kept literal", id)
		return translated{literal: traversalSource(trav)}
	}

	var base ast.Expr = &ast.Ident{Name: ident}
	token := false
	switch node.Kind {
	case KindVariable:
		base = &ast.Member{Object: base, Attr: "value"}
	case KindLocal:
		// locals are plain constants
	default:
		token = true
	}

	return translated{expr: applyTraversal(base, trav[consumed:]), token: token}
}

// resolveReference maps a traversal to a node id plus the number of
// traversal steps the id consumed (longest-prefix match).
func resolveReference(trav hcl.Traversal) (string, int, bool) {
	root := trav.RootName()
	steps := attrSteps(trav)

	switch root {
	case "var", "local", "module":
		if len(steps) < 1 {
			return "", 0, false
		}
		kind := map[string]NodeKind{"var": KindVariable, "local": KindLocal, "module": KindModule}[root]
		return nodeID(kind, steps[0]), 2, true
	case "data":
		if len(steps) < 2 {
			return "", 0, false
		}
		return nodeID(KindData, steps[0], steps[1]), 3, true
	default:
		if len(steps) < 1 {
			return "", 0, false
		}
		return nodeID(KindResource, root, steps[0]), 2, true
	}
}

// applyTraversal turns remaining traversal steps into member/index access.
// Attribute names are folded to the binding naming convention.
func applyTraversal(base ast.Expr, rest hcl.Traversal) ast.Expr {
	out := base
	for _, step := range rest {
		switch s := step.(type) {
		case hcl.TraverseAttr:
			out = &ast.Member{Object: out, Attr: camelCase(s.Name)}
		case hcl.TraverseIndex:
			out = &ast.Index{Object: out, Key: indexKey(s.Key)}
		}
	}
	return out
}

func indexKey(val cty.Value) ast.Expr {
	switch val.Type() {
	case cty.Number:
		i, _ := val.AsBigFloat().Int64()
		return &ast.NumberLit{Value: strconv.FormatInt(i, 10)}
	case cty.String:
		return ast.Str(val.AsString())
	}
	return &ast.NullLit{}
}

// knownFunctions is the set of Terraform built-ins the translator expects;
// anything else still passes through but with a warning.
var knownFunctions = map[string]struct{}{
	"abs": {}, "base64decode": {}, "base64encode": {}, "ceil": {}, "cidrhost": {},
	"cidrnetmask": {}, "cidrsubnet": {}, "coalesce": {}, "coalescelist": {},
	"compact": {}, "concat": {}, "contains": {}, "distinct": {}, "element": {},
	"file": {}, "flatten": {}, "floor": {}, "format": {}, "formatlist": {},
	"jsondecode": {}, "jsonencode": {}, "join": {}, "keys": {}, "length": {},
	"lookup": {}, "lower": {}, "max": {}, "md5": {}, "merge": {}, "min": {},
	"range": {}, "regex": {}, "replace": {}, "reverse": {}, "sha1": {}, "sha256": {},
	"signum": {}, "slice": {}, "sort": {}, "split": {}, "substr": {}, "timestamp": {},
	"title": {}, "tobool": {}, "tolist": {}, "tomap": {}, "tonumber": {},
	"toset": {}, "tostring": {}, "trim": {}, "trimprefix": {}, "trimspace": {},
	"trimsuffix": {}, "try": {}, "upper": {}, "uuid": {}, "values": {}, "zipmap": {},
}

// fnNameOverrides maps Terraform function names that collide with host
// language keywords or differ in the framework namespace.
var fnNameOverrides = map[string]string{
	"length": "lengthOf",
}

func (tr *translator) functionCall(e *hclsyntax.FunctionCallExpr) translated {
	if _, known := knownFunctions[e.Name]; !known {
		tr.ws.Warnf("unknown function %q passed through", e.Name)
	}
	name := e.Name
	if override, ok := fnNameOverrides[name]; ok {
		name = override
	} else {
		name = camelCase(name)
	}

	args := make([]ast.Expr, len(e.Args))
	for i, arg := range e.Args {
		args[i] = tr.hclExpr(arg).render()
	}
	tr.ws.UseFrameworkSymbol("Fn")
	return translated{expr: ast.Fn(name, args...), token: true}
}

// splat lowers x[*].y into the framework projection helper,
// propertyAccess(x, ["*", "y"]).
func (tr *translator) splat(e *hclsyntax.SplatExpr) translated {
	source := tr.hclExpr(e.Source)

	path := []ast.Expr{ast.Str("*")}
	if rel, ok := e.Each.(*hclsyntax.RelativeTraversalExpr); ok {
		for _, step := range rel.Traversal {
			switch s := step.(type) {
			case hcl.TraverseAttr:
				path = append(path, ast.Str(s.Name))
			case hcl.TraverseIndex:
				path = append(path, indexKey(s.Key))
			}
		}
	}

	tr.ws.UseFrameworkSymbol("propertyAccess")
	return translated{
		expr: &ast.Call{
			Fn:   &ast.Ident{Name: "propertyAccess"},
			Args: []ast.Expr{source.render(), &ast.List{Items: path}},
		},
		token: true,
	}
}

// forExpr lowers HCL for-expressions into host-language comprehensions:
// list results become filter/map chains, object results go through
// Object.fromEntries.
func (tr *translator) forExpr(e *hclsyntax.ForExpr) translated {
	coll := tr.hclExpr(e.CollExpr)

	params := []string{}
	if e.KeyVar != "" {
		params = append(params, sanitizeIdentifier(e.KeyVar))
		tr.bind(e.KeyVar, &ast.Ident{Name: sanitizeIdentifier(e.KeyVar)})
		defer tr.unbind(e.KeyVar)
	}
	params = append(params, sanitizeIdentifier(e.ValVar))
	tr.bind(e.ValVar, &ast.Ident{Name: sanitizeIdentifier(e.ValVar)})
	defer tr.unbind(e.ValVar)

	destructure := e.KeyVar != ""
	iterable := coll.render()
	if destructure {
		// iterate entries so both key and value bind
		iterable = &ast.Call{
			Fn:   &ast.Member{Object: &ast.Ident{Name: "Object"}, Attr: "entries"},
			Args: []ast.Expr{coll.render()},
		}
	}

	chain := iterable
	if e.CondExpr != nil {
		cond := tr.hclExpr(e.CondExpr)
		chain = &ast.Call{
			Fn:   &ast.Member{Object: chain, Attr: "filter"},
			Args: []ast.Expr{&ast.Arrow{Params: params, Destructure: destructure, Body: cond.render()}},
		}
	}

	val := tr.hclExpr(e.ValExpr)

	if e.KeyExpr == nil {
		// list result
		mapped := &ast.Call{
			Fn:   &ast.Member{Object: chain, Attr: "map"},
			Args: []ast.Expr{&ast.Arrow{Params: params, Destructure: destructure, Body: val.render()}},
		}
		return translated{expr: mapped, token: coll.token || val.token}
	}

	key := tr.hclExpr(e.KeyExpr)
	pair := &ast.List{Items: []ast.Expr{key.render(), val.render()}}
	mapped := &ast.Call{
		Fn:   &ast.Member{Object: chain, Attr: "map"},
		Args: []ast.Expr{&ast.Arrow{Params: params, Destructure: destructure, Body: pair}},
	}
	fromEntries := &ast.Call{
		Fn:   &ast.Member{Object: &ast.Ident{Name: "Object"}, Attr: "fromEntries"},
		Args: []ast.Expr{mapped},
	}
	return translated{expr: fromEntries, token: coll.token || val.token || key.token}
}

func (tr *translator) objectConsKey(keyExpr hclsyntax.Expression) ast.Expr {
	if wrapped, ok := keyExpr.(*hclsyntax.ObjectConsKeyExpr); ok {
		if root, ok := wrapped.Wrapped.(*hclsyntax.ScopeTraversalExpr); ok && len(root.Traversal) == 1 {
			return ast.Str(root.Traversal.RootName())
		}
		keyExpr = wrapped.Wrapped
	}
	return tr.hclExpr(keyExpr).render()
}

// coerce wraps a token-yielding expression with the framework coercion
// helper matching the declared attribute type.
func (tr *translator) coerce(t translated, ty cty.Type) ast.Expr {
	expr := t.render()
	if !t.token || ty == cty.NilType || ty == cty.DynamicPseudoType {
		return expr
	}

	method := coercionMethod(ty)
	if method == "" {
		return expr
	}

	// Every token-yielding expression is coerced, bare references
	// included: member access on a generated binding still yields a
	// token for primitive attributes.
	tr.ws.MarkTokenCoercion()
	tr.ws.UseFrameworkSymbol("Token")
	return ast.TokenCoercion(method, expr)
}

func coercionMethod(ty cty.Type) string {
	switch {
	case ty == cty.String:
		return "asString"
	case ty == cty.Number:
		return "asNumber"
	case ty == cty.Bool:
		return "asAny"
	case ty.IsListType() || ty.IsSetType():
		elem := ty.ElementType()
		if elem == cty.Number {
			return "asNumberList"
		}
		if elem == cty.String {
			return "asList"
		}
		return ""
	case ty.IsMapType():
		if ty.ElementType() == cty.String {
			return "asStringMap"
		}
		return ""
	}
	return ""
}

// elementType resolves the declared type of a list/tuple element.
func elementType(ty cty.Type, idx int) cty.Type {
	switch {
	case ty == cty.NilType:
		return cty.NilType
	case ty.IsListType() || ty.IsSetType():
		return ty.ElementType()
	case ty.IsTupleType():
		types := ty.TupleElementTypes()
		if idx < len(types) {
			return types[idx]
		}
	}
	return cty.NilType
}

// attributeType resolves the declared type of a map element or object
// attribute.
func attributeType(ty cty.Type, key string) cty.Type {
	switch {
	case ty == cty.NilType:
		return cty.NilType
	case ty.IsMapType():
		return ty.ElementType()
	case ty.IsObjectType():
		if ty.HasAttribute(key) {
			return ty.AttributeType(key)
		}
	}
	return cty.NilType
}

// objectKey folds keys of known object attributes to the binding naming
// convention; free-form map keys stay verbatim.
func objectKey(ty cty.Type, key string) string {
	if ty != cty.NilType && ty.IsObjectType() {
		return camelCase(key)
	}
	return key
}

func (tr *translator) exprSource(expr hclsyntax.Expression) string {
	if expr == nil || tr.src == nil {
		return ""
	}
	rng := expr.Range()
	if rng.Start.Byte < 0 || rng.End.Byte > len(tr.src) || rng.Start.Byte > rng.End.Byte {
		return ""
	}
	return string(tr.src[rng.Start.Byte:rng.End.Byte])
}

func traversalSource(trav hcl.Traversal) string {
	var b strings.Builder
	for _, step := range trav {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			b.WriteString(s.Name)
		case hcl.TraverseAttr:
			b.WriteString("." + s.Name)
		case hcl.TraverseIndex:
			switch s.Key.Type() {
			case cty.Number:
				i64, _ := s.Key.AsBigFloat().Int64()
				b.WriteString("[" + strconv.FormatInt(i64, 10) + "]")
			case cty.String:
				b.WriteString("[" + strconv.Quote(s.Key.AsString()) + "]")
			}
		}
	}
	return b.String()
}

func binaryOp(op *hclsyntax.Operation) string {
	switch op {
	case hclsyntax.OpAdd:
		return "+"
	case hclsyntax.OpSubtract:
		return "-"
	case hclsyntax.OpMultiply:
		return "*"
	case hclsyntax.OpDivide:
		return "/"
	case hclsyntax.OpModulo:
		return "%"
	case hclsyntax.OpEqual:
		return "==="
	case hclsyntax.OpNotEqual:
		return "!=="
	case hclsyntax.OpGreaterThan:
		return ">"
	case hclsyntax.OpGreaterThanOrEqual:
		return ">="
	case hclsyntax.OpLessThan:
		return "<"
	case hclsyntax.OpLessThanOrEqual:
		return "<="
	case hclsyntax.OpLogicalAnd:
		return "&&"
	case hclsyntax.OpLogicalOr:
		return "||"
	}
	return "+"
}

func unaryOp(op *hclsyntax.Operation) string {
	switch op {
	case hclsyntax.OpNegate:
		return "-"
	case hclsyntax.OpLogicalNot:
		return "!"
	}
	return "-"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
