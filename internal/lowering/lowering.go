// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package lowering dispatches the framed reference-language source to a
// target-language translator and classifies the diagnostics it reports.
// The reference language (TypeScript) passes through unchanged; other
// targets go through whichever Translator is registered for them.
package lowering

import (
	"fmt"
	"sort"
	"sync"
)

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one note from a translator.
type Diagnostic struct {
	Severity Severity
	Summary  string
	Detail   string
}

func (d Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("[%s] %s", d.Severity, d.Summary)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Summary, d.Detail)
}

// File is a unit of source handed to a translator.
type File struct {
	Path   string
	Source string
}

// Translation is a translator's output.
type Translation struct {
	Source      string
	Diagnostics []Diagnostic
}

// HasErrors reports whether any diagnostic is an error.
func (t *Translation) HasErrors() bool {
	for _, d := range t.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error diagnostics.
func (t *Translation) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range t.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Translator lowers reference-language source into one target language.
type Translator interface {
	Translate(file File) (*Translation, error)
}

// TranslateOptions configures a Translate call.
type TranslateOptions struct {
	// IncludeDiagnostics keeps warning diagnostics in the result;
	// otherwise only errors survive.
	IncludeDiagnostics bool
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Translator{}
)

// Register installs a translator for a target language, replacing any
// previous registration.
func Register(language string, t Translator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[language] = t
}

// Registered lists languages with a registered translator, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for l := range registry {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Translate lowers the file into the target language. Languages without a
// registered translator produce a best-effort result: the reference source
// unchanged plus a warning diagnostic.
func Translate(file File, language string, opts TranslateOptions) (*Translation, error) {
	registryMu.RLock()
	translator, ok := registry[language]
	registryMu.RUnlock()

	if !ok {
		return &Translation{
			Source: file.Source,
			Diagnostics: filterDiagnostics([]Diagnostic{{
				Severity: SeverityWarning,
				Summary:  fmt.Sprintf("no translator registered for %q", language),
				Detail:   "returning the reference-language source unchanged",
			}}, opts),
		}, nil
	}

	translation, err := translator.Translate(file)
	if err != nil {
		return nil, err
	}
	translation.Diagnostics = filterDiagnostics(translation.Diagnostics, opts)
	return translation, nil
}

func filterDiagnostics(diags []Diagnostic, opts TranslateOptions) []Diagnostic {
	if opts.IncludeDiagnostics {
		return diags
	}
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// passthrough is the reference-language translator.
type passthrough struct{}

func (passthrough) Translate(file File) (*Translation, error) {
	return &Translation{Source: file.Source}, nil
}

func init() {
	Register("typescript", passthrough{})
}
