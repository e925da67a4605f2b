// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package ast defines the language-independent program tree produced by
// the conversion pipeline. Nodes carry no positions; the tree is built
// from scratch and rendered deterministically.
package ast

// Expr is any expression node.
type Expr interface {
	exprNode()
}

// Stmt is any statement node.
type Stmt interface {
	stmtNode()
}

// Ident is a bare identifier reference.
type Ident struct {
	Name string
}

// StringLit is a string literal. Multiline literals render as template
// literals in the reference language so heredoc content survives verbatim.
type StringLit struct {
	Value     string
	Multiline bool
}

// NumberLit preserves the source representation of the number to keep
// output byte-stable (no float re-formatting).
type NumberLit struct {
	Value string
}

type BoolLit struct {
	Value bool
}

type NullLit struct{}

// Member is property access, obj.attr.
type Member struct {
	Object Expr
	Attr   string
}

// Index is obj[key].
type Index struct {
	Object Expr
	Key    Expr
}

// Call is a function or method invocation.
type Call struct {
	Fn   Expr
	Args []Expr
}

// Template is a string assembled from literal and interpolated parts.
// A part that is a *StringLit contributes literal text.
type Template struct {
	Parts []Expr
}

// ObjectEntry is a single key/value pair of an Object. Computed keys carry
// KeyExpr instead of Key.
type ObjectEntry struct {
	Key     string
	KeyExpr Expr
	Value   Expr
}

type Object struct {
	Entries []ObjectEntry
}

type List struct {
	Items []Expr
}

// Conditional is cond ? t : f.
type Conditional struct {
	Cond, True, False Expr
}

type Unary struct {
	Op string
	X  Expr
}

type Binary struct {
	Op   string
	LHS  Expr
	RHS  Expr
}

// Arrow is a single-expression anonymous function, used for
// for-expression lowering.
type Arrow struct {
	Params []string
	// Destructure renders the parameter list as a destructuring pattern,
	// e.g. ([k, v]) => ...
	Destructure bool
	Body        Expr
}

// Raw is an escape hatch carrying verbatim target-language text. Used for
// fragment values of a Go type the translator has no mapping for.
type Raw struct {
	Text string
}

func (*Ident) exprNode()       {}
func (*StringLit) exprNode()   {}
func (*NumberLit) exprNode()   {}
func (*BoolLit) exprNode()     {}
func (*NullLit) exprNode()     {}
func (*Member) exprNode()      {}
func (*Index) exprNode()       {}
func (*Call) exprNode()        {}
func (*Template) exprNode()    {}
func (*Object) exprNode()      {}
func (*List) exprNode()        {}
func (*Conditional) exprNode() {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Arrow) exprNode()       {}
func (*Raw) exprNode()         {}

// NewConstruct is `const <name> = new <Ctor>(<scope>, "<logicalID>", <config>)`.
// Name may be empty for constructs nothing references (outputs, backends).
type NewConstruct struct {
	Name      string
	Ctor      string
	Scope     string
	LogicalID string
	Config    Expr
	// Comments are emitted immediately before the declaration.
	Comments []string
}

// ConstDecl is `const <name> = <value>`.
type ConstDecl struct {
	Name     string
	Value    Expr
	Comments []string
}

// Comment is a standalone comment line group.
type Comment struct {
	Lines []string
}

// ExprStmt is a bare expression statement.
type ExprStmt struct {
	X Expr
}

func (*NewConstruct) stmtNode() {}
func (*ConstDecl) stmtNode()    {}
func (*Comment) stmtNode()      {}
func (*ExprStmt) stmtNode()     {}

// Import is a named-symbol import from a module path.
type Import struct {
	// Symbols maps exported name to local alias; alias equals the name
	// when no renaming is needed.
	Symbols  []ImportSymbol
	From     string
	Comments []string
}

type ImportSymbol struct {
	Name  string
	Alias string
}

// File is a framed program: imports followed by a construct class wrapping
// the declarations.
type File struct {
	Imports []Import
	// ClassName is the construct the declarations are wrapped in.
	ClassName string
	// BaseClass is the extended container, e.g. "TerraformStack".
	BaseClass string
	Stmts     []Stmt
}

// Fn builds a call into the fixed framework function namespace.
func Fn(name string, args ...Expr) *Call {
	return &Call{
		Fn:   &Member{Object: &Ident{Name: "Fn"}, Attr: name},
		Args: args,
	}
}

// TokenCoercion builds a framework token coercion call such as
// Token.asString(x).
func TokenCoercion(method string, x Expr) *Call {
	return &Call{
		Fn:   &Member{Object: &Ident{Name: "Token"}, Attr: method},
		Args: []Expr{x},
	}
}

// Str is shorthand for a single-line string literal.
func Str(s string) *StringLit {
	return &StringLit{Value: s}
}
