// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package hcl2json turns Terraform HCL source into the JSON-shaped tree the
// conversion pipeline consumes. Statically-known values are folded to plain
// JSON values; everything else is preserved verbatim as a `${...}` template
// string so the expression translator can re-parse it later.
package hcl2json

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// ParseError is an HCL parse failure surfaced with a remediation hint.
type ParseError struct {
	Filename    string
	Diagnostics hcl.Diagnostics
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: invalid HCL: %s (check the file parses with `terraform validate` first)",
		e.Filename, e.Diagnostics.Error())
}

// Parse parses Terraform HCL source into the JSON-shaped plan tree.
//
// Top-level collections follow the Terraform JSON configuration layout:
// repeated blocks accumulate into lists, labelled blocks become nested maps
// keyed by label.
func Parse(filename string, src []byte) (map[string]interface{}, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &ParseError{Filename: filename, Diagnostics: diags}
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &ParseError{Filename: filename, Diagnostics: hcl.Diagnostics{
			{Severity: hcl.DiagError, Summary: "unsupported body type"},
		}}
	}

	out := map[string]interface{}{}
	for _, block := range body.Blocks {
		if err := appendTopLevelBlock(out, block, src); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func appendTopLevelBlock(out map[string]interface{}, block *hclsyntax.Block, src []byte) error {
	body := convertBody(block.Body, src)

	switch block.Type {
	case "terraform", "locals":
		out[block.Type] = appendList(out[block.Type], body)
	case "provider", "variable", "output", "module":
		if len(block.Labels) != 1 {
			return labelCountError(block, 1)
		}
		m := childMap(out, block.Type)
		m[block.Labels[0]] = appendList(m[block.Labels[0]], body)
	case "resource", "data":
		if len(block.Labels) != 2 {
			return labelCountError(block, 2)
		}
		byType := childMap(out, block.Type)
		byName := childMap(byType, block.Labels[0])
		byName[block.Labels[1]] = appendList(byName[block.Labels[1]], body)
	default:
		// Unknown top-level kinds (moved, check, import, ...) are carried
		// through; the plan validator decides whether to reject them.
		m := childMap(out, block.Type)
		key := block.Type
		if len(block.Labels) > 0 {
			key = block.Labels[0]
		}
		m[key] = appendList(m[key], body)
	}
	return nil
}

func labelCountError(block *hclsyntax.Block, want int) error {
	return &ParseError{Diagnostics: hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("%s block expects %d label(s), got %d", block.Type, want, len(block.Labels)),
		Subject:  block.DefRange().Ptr(),
	}}}
}

func childMap(parent map[string]interface{}, key string) map[string]interface{} {
	if m, ok := parent[key].(map[string]interface{}); ok {
		return m
	}
	m := map[string]interface{}{}
	parent[key] = m
	return m
}

func appendList(existing interface{}, item interface{}) []interface{} {
	if list, ok := existing.([]interface{}); ok {
		return append(list, item)
	}
	return []interface{}{item}
}

// convertBody flattens a block body into a map. Attributes fold to native
// values where statically known; nested blocks accumulate into lists keyed
// by block type (labelled nested blocks, e.g. `backend "s3"` or
// `dynamic "setting"`, nest one more map level keyed by label).
func convertBody(body *hclsyntax.Body, src []byte) map[string]interface{} {
	out := make(map[string]interface{}, len(body.Attributes)+len(body.Blocks))

	for _, attr := range sortedAttributes(body) {
		out[attr.Name] = ExprValue(attr.Expr, src)
	}

	for _, block := range body.Blocks {
		child := convertBody(block.Body, src)
		if len(block.Labels) > 0 {
			m := childMap(out, block.Type)
			m[block.Labels[0]] = appendList(m[block.Labels[0]], child)
			continue
		}
		out[block.Type] = appendList(out[block.Type], child)
	}
	return out
}

// sortedAttributes returns body attributes in source order, which is the
// order users wrote them in and keeps output stable.
func sortedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	for i := 1; i < len(attrs); i++ {
		for j := i; j > 0 && attrs[j].SrcRange.Start.Byte < attrs[j-1].SrcRange.Start.Byte; j-- {
			attrs[j], attrs[j-1] = attrs[j-1], attrs[j]
		}
	}
	return attrs
}

// ExprValue converts a single expression to its JSON-shaped form: a native
// value when statically known, a verbatim `${...}` template string
// otherwise.
func ExprValue(expr hclsyntax.Expression, src []byte) interface{} {
	// Containers are converted element-wise so that a list with one
	// unresolved element does not degrade the whole list to a string.
	switch e := expr.(type) {
	case *hclsyntax.TupleConsExpr:
		items := make([]interface{}, len(e.Exprs))
		for i, item := range e.Exprs {
			items[i] = ExprValue(item, src)
		}
		return items
	case *hclsyntax.ObjectConsExpr:
		obj := make(map[string]interface{}, len(e.Items))
		for _, item := range e.Items {
			key, ok := staticKey(item.KeyExpr, src)
			if !ok {
				// Computed keys force the whole object into raw form.
				return rawTemplate(expr, src)
			}
			obj[key] = ExprValue(item.ValueExpr, src)
		}
		return obj
	case *hclsyntax.TemplateExpr:
		if v, ok := staticNative(expr); ok {
			return v
		}
		return templateText(e, src)
	}

	if v, ok := staticNative(expr); ok {
		return v
	}
	return rawTemplate(expr, src)
}

func staticKey(keyExpr hclsyntax.Expression, src []byte) (string, bool) {
	if wrapped, ok := keyExpr.(*hclsyntax.ObjectConsKeyExpr); ok {
		// Bare identifier keys (the common case) name themselves.
		if root, ok := wrapped.Wrapped.(*hclsyntax.ScopeTraversalExpr); ok && len(root.Traversal) == 1 {
			return root.Traversal.RootName(), true
		}
		keyExpr = wrapped.Wrapped
	}
	v, diags := keyExpr.Value(nil)
	if diags.HasErrors() || !v.IsKnown() || v.Type() != cty.String {
		return "", false
	}
	return v.AsString(), true
}

// staticNative evaluates without a context and converts known cty values to
// native JSON-shaped Go values.
func staticNative(expr hclsyntax.Expression) (interface{}, bool) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, false
	}
	return nativeValue(v)
}

// nativeValue converts a cty value to a plain Go value usable as JSON.
func nativeValue(val cty.Value) (interface{}, bool) {
	if val.IsNull() {
		return nil, true
	}
	if !val.IsKnown() {
		return nil, false
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), true
	case ty == cty.Number:
		num := val.AsBigFloat()
		if num.IsInt() {
			i, _ := num.Int64()
			return i, true
		}
		f, _ := num.Float64()
		return f, true
	case ty == cty.Bool:
		return val.True(), true
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]interface{})
		for key, v := range val.AsValueMap() {
			converted, ok := nativeValue(v)
			if !ok {
				return nil, false
			}
			out[key] = converted
		}
		return out, true
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		vals := val.AsValueSlice()
		out := make([]interface{}, len(vals))
		for i, v := range vals {
			converted, ok := nativeValue(v)
			if !ok {
				return nil, false
			}
			out[i] = converted
		}
		return out, true
	}
	return nil, false
}

// templateText reconstructs a template's source form: literal parts stay
// literal, interpolated parts are wrapped back into `${...}`.
func templateText(e *hclsyntax.TemplateExpr, src []byte) string {
	text := ""
	for _, part := range e.Parts {
		if lit, ok := part.(*hclsyntax.LiteralValueExpr); ok && lit.Val.Type() == cty.String {
			text += lit.Val.AsString()
			continue
		}
		text += "${" + exprSource(part, src) + "}"
	}
	return text
}

func rawTemplate(expr hclsyntax.Expression, src []byte) string {
	return "${" + exprSource(expr, src) + "}"
}

func exprSource(expr hclsyntax.Expression, src []byte) string {
	rng := expr.Range()
	if rng.Start.Byte < 0 || rng.End.Byte > len(src) || rng.Start.Byte > rng.End.Byte {
		return ""
	}
	return string(src[rng.Start.Byte:rng.End.Byte])
}
