// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"strings"
)

// reservedWords are reference-language keywords an emitted identifier must
// not collide with.
var reservedWords = map[string]struct{}{
	"break": {}, "case": {}, "catch": {}, "class": {}, "const": {},
	"continue": {}, "debugger": {}, "default": {}, "delete": {}, "do": {},
	"else": {}, "enum": {}, "export": {}, "extends": {}, "false": {},
	"finally": {}, "for": {}, "function": {}, "if": {}, "import": {},
	"in": {}, "instanceof": {}, "new": {}, "null": {}, "return": {},
	"super": {}, "switch": {}, "this": {}, "throw": {}, "true": {},
	"try": {}, "typeof": {}, "var": {}, "void": {}, "while": {}, "with": {},
}

// sanitizeIdentifier makes a string a valid target-language identifier:
// invalid characters become underscores, a leading digit gets an
// underscore prefix, and reserved words get an underscore suffix.
func sanitizeIdentifier(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if _, reserved := reservedWords[out]; reserved {
		out += "_"
	}
	return out
}

// camelCase lowercases the first letter and folds _- separators,
// "instance_type" -> "instanceType".
func camelCase(s string) string {
	parts := splitWords(s)
	if len(parts) == 0 {
		return "_"
	}
	out := strings.ToLower(parts[0][:1]) + parts[0][1:]
	for _, p := range parts[1:] {
		out += strings.ToUpper(p[:1]) + p[1:]
	}
	return sanitizeIdentifier(out)
}

// pascalCase uppercases every word, "null_resource" -> "NullResource".
func pascalCase(s string) string {
	parts := splitWords(s)
	out := ""
	for _, p := range parts {
		out += strings.ToUpper(p[:1]) + p[1:]
	}
	if out == "" {
		return "_"
	}
	return sanitizeIdentifier(out)
}

func splitWords(s string) []string {
	var parts []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == '/' || r == ' '
	}) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
