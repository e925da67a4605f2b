// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package ast

import (
	"fmt"
	"strings"
)

// RenderFile renders the framed program in the reference target language
// (TypeScript). Output is deterministic for a given tree.
func RenderFile(f *File) string {
	var b strings.Builder
	b.WriteString(RenderImports(f.Imports))
	if len(f.Imports) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("class %s extends %s {\n", f.ClassName, f.BaseClass))
	b.WriteString("  constructor(scope: Construct, name: string) {\n")
	b.WriteString("    super(scope, name);\n")
	body := RenderStmts(f.Stmts, 2)
	if body != "" {
		b.WriteString(body)
	}
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}

// RenderImports renders the import block only.
func RenderImports(imports []Import) string {
	var b strings.Builder
	for _, imp := range imports {
		for _, c := range imp.Comments {
			b.WriteString("// " + c + "\n")
		}
		syms := make([]string, len(imp.Symbols))
		for i, s := range imp.Symbols {
			if s.Alias != "" && s.Alias != s.Name {
				syms[i] = s.Name + " as " + s.Alias
			} else {
				syms[i] = s.Name
			}
		}
		b.WriteString(fmt.Sprintf("import { %s } from %q;\n", strings.Join(syms, ", "), imp.From))
	}
	return b.String()
}

// RenderStmts renders statements at the given indent level (two spaces per
// level).
func RenderStmts(stmts []Stmt, indent int) string {
	var b strings.Builder
	pad := strings.Repeat("  ", indent)
	for _, s := range stmts {
		switch st := s.(type) {
		case *Comment:
			for _, l := range st.Lines {
				b.WriteString(pad + "// " + l + "\n")
			}
		case *ConstDecl:
			for _, c := range st.Comments {
				b.WriteString(pad + "// " + c + "\n")
			}
			b.WriteString(fmt.Sprintf("%sconst %s = %s;\n", pad, st.Name, RenderExpr(st.Value)))
		case *NewConstruct:
			for _, c := range st.Comments {
				b.WriteString(pad + "// " + c + "\n")
			}
			call := fmt.Sprintf("new %s(%s", st.Ctor, st.Scope)
			if st.LogicalID != "" {
				call += fmt.Sprintf(", %q", st.LogicalID)
			}
			if st.Config != nil {
				call += ", " + RenderExpr(st.Config)
			}
			call += ")"
			if st.Name != "" {
				b.WriteString(fmt.Sprintf("%sconst %s = %s;\n", pad, st.Name, call))
			} else {
				b.WriteString(pad + call + ";\n")
			}
		case *ExprStmt:
			b.WriteString(pad + RenderExpr(st.X) + ";\n")
		}
	}
	return b.String()
}

// RenderExpr renders a single expression.
func RenderExpr(e Expr) string {
	switch x := e.(type) {
	case *Ident:
		return x.Name
	case *StringLit:
		if x.Multiline {
			return "`" + escapeTemplateText(x.Value) + "`"
		}
		return quoteString(x.Value)
	case *NumberLit:
		return x.Value
	case *BoolLit:
		if x.Value {
			return "true"
		}
		return "false"
	case *NullLit:
		return "null"
	case *Member:
		return RenderExpr(x.Object) + "." + x.Attr
	case *Index:
		return fmt.Sprintf("%s[%s]", RenderExpr(x.Object), RenderExpr(x.Key))
	case *Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = RenderExpr(a)
		}
		return fmt.Sprintf("%s(%s)", RenderExpr(x.Fn), strings.Join(args, ", "))
	case *Template:
		return renderTemplate(x)
	case *Object:
		return renderObject(x)
	case *List:
		items := make([]string, len(x.Items))
		for i, it := range x.Items {
			items[i] = RenderExpr(it)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case *Conditional:
		return fmt.Sprintf("%s ? %s : %s",
			renderOperand(x.Cond), renderOperand(x.True), renderOperand(x.False))
	case *Unary:
		return x.Op + renderOperand(x.X)
	case *Binary:
		return fmt.Sprintf("%s %s %s", renderOperand(x.LHS), x.Op, renderOperand(x.RHS))
	case *Arrow:
		params := strings.Join(x.Params, ", ")
		if x.Destructure {
			params = "[" + params + "]"
		}
		body := RenderExpr(x.Body)
		if _, isObject := x.Body.(*Object); isObject {
			// an object literal body parses as a block without parens
			body = "(" + body + ")"
		}
		return fmt.Sprintf("(%s) => %s", params, body)
	case *Raw:
		return x.Text
	}
	return ""
}

// renderOperand parenthesizes compound operands so operator precedence of
// the source expression survives rendering.
func renderOperand(e Expr) string {
	switch e.(type) {
	case *Binary, *Conditional, *Arrow:
		return "(" + RenderExpr(e) + ")"
	}
	return RenderExpr(e)
}

func renderTemplate(t *Template) string {
	// A template with a single non-literal part renders as the inner
	// expression directly.
	if len(t.Parts) == 1 {
		if _, isLit := t.Parts[0].(*StringLit); !isLit {
			return RenderExpr(t.Parts[0])
		}
	}
	var b strings.Builder
	b.WriteString("`")
	for _, p := range t.Parts {
		if lit, ok := p.(*StringLit); ok {
			b.WriteString(escapeTemplateText(lit.Value))
			continue
		}
		b.WriteString("${" + RenderExpr(p) + "}")
	}
	b.WriteString("`")
	return b.String()
}

func renderObject(o *Object) string {
	if len(o.Entries) == 0 {
		return "{}"
	}
	parts := make([]string, len(o.Entries))
	for i, e := range o.Entries {
		key := ""
		if e.KeyExpr != nil {
			key = "[" + RenderExpr(e.KeyExpr) + "]"
		} else if isPlainKey(e.Key) {
			key = e.Key
		} else {
			key = quoteString(e.Key)
		}
		parts[i] = fmt.Sprintf("%s: %s", key, RenderExpr(e.Value))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func isPlainKey(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func escapeTemplateText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}
