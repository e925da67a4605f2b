// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"context"
	"fmt"
	"strings"
)

// CodeMarker is the fixed line project templates carry where converted
// declarations are inserted.
const CodeMarker = "// define resources here"

// ProjectConfig is the slice of a CDKTF project configuration the
// conversion updates: its provider and module requirements.
type ProjectConfig struct {
	TerraformProviders []string
	TerraformModules   []string
}

// ProjectResult wraps a conversion for insertion into an existing project.
type ProjectResult struct {
	*Result

	// ApplyToTemplate inserts the converted declarations into a
	// main-file template at the code marker, preserving the marker
	// line's indentation.
	ApplyToTemplate func(template string) (string, error)
	// UpdateConfig merges the conversion's provider and module
	// requirements into a project configuration.
	UpdateConfig func(cfg *ProjectConfig)
}

// ConvertProject converts HCL source for insertion into an existing CDKTF
// project rather than as a standalone file.
func ConvertProject(ctx context.Context, hclSource string, opts Options) (*ProjectResult, error) {
	result, err := Convert(ctx, hclSource, opts)
	if err != nil {
		return nil, err
	}

	return &ProjectResult{
		Result: result,
		ApplyToTemplate: func(template string) (string, error) {
			return insertAtMarker(template, result.Code)
		},
		UpdateConfig: func(cfg *ProjectConfig) {
			cfg.TerraformProviders = mergeRequirements(cfg.TerraformProviders, result.Providers)
			cfg.TerraformModules = mergeRequirements(cfg.TerraformModules, result.Modules)
		},
	}, nil
}

// insertAtMarker replaces the marker line with the declarations, re-indented
// to the marker's own indentation.
func insertAtMarker(template, code string) (string, error) {
	lines := strings.Split(template, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != CodeMarker {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		block := reindent(code, indent)
		lines[i] = strings.TrimRight(block, "\n")
		return strings.Join(lines, "\n"), nil
	}
	return "", fmt.Errorf("template has no %q marker", CodeMarker)
}

// reindent strips the declarations' own leading indentation and applies
// the target indent to every non-empty line.
func reindent(code, indent string) string {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")

	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		leading := len(line) - len(strings.TrimLeft(line, " "))
		if common == -1 || leading < common {
			common = leading
		}
	}
	if common < 0 {
		common = 0
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) >= common {
			line = line[common:]
		}
		b.WriteString(indent + line)
	}
	return b.String()
}

func mergeRequirements(existing, additions []string) []string {
	seen := map[string]struct{}{}
	for _, e := range existing {
		seen[e] = struct{}{}
	}
	out := append([]string{}, existing...)
	for _, a := range additions {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
