// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ValidationIssue pinpoints one grammar violation in the raw tree.
type ValidationIssue struct {
	// Path is the structured location of the offending node,
	// e.g. ["provider", "aws"].
	Path []string
	// Expected describes the violated expectation.
	Expected string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", strings.Join(i.Path, "."), i.Expected)
}

// SchemaConformanceError reports that the parsed JSON does not match the
// Terraform block grammar. Conversion does not recover from it.
type SchemaConformanceError struct {
	Issues []ValidationIssue
}

func (e *SchemaConformanceError) Error() string {
	var errs *multierror.Error
	for _, issue := range e.Issues {
		errs = multierror.Append(errs, fmt.Errorf("%s", issue))
	}
	return fmt.Sprintf("configuration does not match the Terraform block grammar: %s", errs.Error())
}

var topLevelKinds = map[string]struct{}{
	"terraform": {},
	"provider":  {},
	"variable":  {},
	"locals":    {},
	"output":    {},
	"module":    {},
	"resource":  {},
	"data":      {},
}

// Validate checks the raw JSON-shaped tree against the expected Terraform
// block grammar. Unknown attributes inside blocks are accepted; wrong value
// shapes and unknown top-level block kinds are not.
func Validate(raw map[string]interface{}) error {
	var issues []ValidationIssue

	for _, kind := range sortedKeys(raw) {
		value := raw[kind]
		if _, known := topLevelKinds[kind]; !known {
			issues = append(issues, ValidationIssue{
				Path:     []string{kind},
				Expected: "one of terraform, provider, variable, locals, output, module, resource, data",
			})
			continue
		}

		switch kind {
		case "terraform", "locals":
			issues = append(issues, validateBodyList([]string{kind}, value)...)
		case "provider", "variable", "output", "module":
			issues = append(issues, validateNamedBodies([]string{kind}, value)...)
		case "resource", "data":
			byType, ok := value.(map[string]interface{})
			if !ok {
				issues = append(issues, ValidationIssue{
					Path:     []string{kind},
					Expected: "a mapping of type to named configurations",
				})
				continue
			}
			for _, typeName := range sortedKeys(byType) {
				issues = append(issues, validateNamedBodies([]string{kind, typeName}, byType[typeName])...)
			}
		}
	}

	if kind, ok := raw["module"].(map[string]interface{}); ok {
		issues = append(issues, validateModuleSources(kind)...)
	}

	if len(issues) > 0 {
		return &SchemaConformanceError{Issues: issues}
	}
	return nil
}

func validateNamedBodies(path []string, value interface{}) []ValidationIssue {
	byName, ok := value.(map[string]interface{})
	if !ok {
		return []ValidationIssue{{
			Path:     path,
			Expected: "a mapping of name to configuration blocks",
		}}
	}
	var issues []ValidationIssue
	for _, name := range sortedKeys(byName) {
		issues = append(issues, validateBodyList(append(append([]string{}, path...), name), byName[name])...)
	}
	return issues
}

func validateBodyList(path []string, value interface{}) []ValidationIssue {
	list, ok := value.([]interface{})
	if !ok {
		return []ValidationIssue{{
			Path:     path,
			Expected: "a list of configuration blocks",
		}}
	}
	var issues []ValidationIssue
	for i, item := range list {
		if _, ok := item.(map[string]interface{}); !ok {
			issues = append(issues, ValidationIssue{
				Path:     append(append([]string{}, path...), fmt.Sprintf("%d", i)),
				Expected: "an object body",
			})
		}
	}
	return issues
}

func validateModuleSources(modules map[string]interface{}) []ValidationIssue {
	var issues []ValidationIssue
	for _, name := range sortedKeys(modules) {
		calls, ok := modules[name].([]interface{})
		if !ok {
			continue
		}
		for i, call := range calls {
			body, ok := call.(map[string]interface{})
			if !ok {
				continue
			}
			if _, ok := body["source"].(string); !ok {
				issues = append(issues, ValidationIssue{
					Path:     []string{"module", name, fmt.Sprintf("%d", i), "source"},
					Expected: "a string module source",
				})
			}
		}
	}
	return issues
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
