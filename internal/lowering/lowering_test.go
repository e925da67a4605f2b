// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package lowering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_typescriptPassesThrough(t *testing.T) {
	translation, err := Translate(File{Path: "main.ts", Source: "const x = 1;"}, "typescript", TranslateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "const x = 1;", translation.Source)
	assert.Empty(t, translation.Diagnostics)
}

func TestTranslate_unregisteredLanguageIsBestEffort(t *testing.T) {
	translation, err := Translate(File{Source: "const x = 1;"}, "python", TranslateOptions{IncludeDiagnostics: true})
	require.NoError(t, err)

	assert.Equal(t, "const x = 1;", translation.Source)
	require.Len(t, translation.Diagnostics, 1)
	assert.Equal(t, SeverityWarning, translation.Diagnostics[0].Severity)
	assert.False(t, translation.HasErrors())
}

func TestTranslate_warningsFilteredWithoutIncludeDiagnostics(t *testing.T) {
	translation, err := Translate(File{Source: "x"}, "python", TranslateOptions{})
	require.NoError(t, err)
	assert.Empty(t, translation.Diagnostics)
}

type fakeTranslator struct {
	out *Translation
}

func (f fakeTranslator) Translate(file File) (*Translation, error) {
	return f.out, nil
}

func TestTranslate_registeredTranslator(t *testing.T) {
	Register("java", fakeTranslator{out: &Translation{
		Source: "class X {}",
		Diagnostics: []Diagnostic{
			{Severity: SeverityWarning, Summary: "lossy expression"},
			{Severity: SeverityError, Summary: "unsupported construct"},
		},
	}})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "java")
		registryMu.Unlock()
	})

	translation, err := Translate(File{Source: "ignored"}, "java", TranslateOptions{IncludeDiagnostics: true})
	require.NoError(t, err)

	assert.Equal(t, "class X {}", translation.Source)
	assert.True(t, translation.HasErrors())
	require.Len(t, translation.Errors(), 1)
	assert.Equal(t, "unsupported construct", translation.Errors()[0].Summary)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, Registered(), "typescript")
}
