// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package plan models the validated JSON-shaped Terraform configuration
// tree. Leaf values preserve HCL expression strings verbatim (e.g.
// "${aws_vpc.main.id}"); fixed-shape blocks are decoded into typed structs,
// free-form bodies stay as raw maps.
package plan

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Plan is the validated top-level configuration.
type Plan struct {
	Terraform []TerraformBlock
	Providers map[string][]map[string]interface{}
	Variables map[string]Variable
	Locals    []map[string]interface{}
	Outputs   map[string]Output
	Modules   map[string][]ModuleCall
	Resources map[string]map[string][]map[string]interface{}
	Data      map[string]map[string][]map[string]interface{}
}

// TerraformBlock carries backend and provider requirements.
type TerraformBlock struct {
	RequiredVersion   string                 `mapstructure:"required_version"`
	RequiredProviders []map[string]interface{} `mapstructure:"required_providers"`
	// Backend maps backend type to its configurations,
	// e.g. "s3" -> [{bucket: ..., key: ...}].
	Backend map[string][]map[string]interface{} `mapstructure:"backend"`
	Rest    map[string]interface{}              `mapstructure:",remain"`
}

// Variable is a variable declaration. Type keeps the HCL type expression
// verbatim (either a bare keyword folded to a string, or a "${...}" form).
type Variable struct {
	Type        interface{}            `mapstructure:"type"`
	Default     interface{}            `mapstructure:"default"`
	Description string                 `mapstructure:"description"`
	Sensitive   bool                   `mapstructure:"sensitive"`
	Nullable    *bool                  `mapstructure:"nullable"`
	Validation  []map[string]interface{} `mapstructure:"validation"`
	Rest        map[string]interface{} `mapstructure:",remain"`
}

// Output is an output declaration.
type Output struct {
	Value       interface{}            `mapstructure:"value"`
	Description string                 `mapstructure:"description"`
	Sensitive   bool                   `mapstructure:"sensitive"`
	DependsOn   []interface{}          `mapstructure:"depends_on"`
	Rest        map[string]interface{} `mapstructure:",remain"`
}

// ModuleCall is a single module invocation. Arguments beyond the call
// meta-arguments land in Inputs.
type ModuleCall struct {
	Source    string                 `mapstructure:"source"`
	Version   string                 `mapstructure:"version"`
	Providers map[string]interface{} `mapstructure:"providers"`
	DependsOn []interface{}          `mapstructure:"depends_on"`
	Inputs    map[string]interface{} `mapstructure:",remain"`
}

func decodeStrict(input interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Decode builds a Plan from a validated raw tree. Call Validate first;
// Decode assumes the shapes it was promised.
func Decode(raw map[string]interface{}) (*Plan, error) {
	p := &Plan{
		Providers: map[string][]map[string]interface{}{},
		Variables: map[string]Variable{},
		Outputs:   map[string]Output{},
		Modules:   map[string][]ModuleCall{},
		Resources: map[string]map[string][]map[string]interface{}{},
		Data:      map[string]map[string][]map[string]interface{}{},
	}

	if tf, ok := raw["terraform"]; ok {
		for i, item := range tf.([]interface{}) {
			var block TerraformBlock
			if err := decodeStrict(item, &block); err != nil {
				return nil, fmt.Errorf("terraform[%d]: %w", i, err)
			}
			p.Terraform = append(p.Terraform, block)
		}
	}

	if providers, ok := raw["provider"].(map[string]interface{}); ok {
		for name, cfgs := range providers {
			for i, cfg := range cfgs.([]interface{}) {
				body, ok := cfg.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("provider.%s[%d]: not an object", name, i)
				}
				p.Providers[name] = append(p.Providers[name], body)
			}
		}
	}

	if variables, ok := raw["variable"].(map[string]interface{}); ok {
		for name, decls := range variables {
			list := decls.([]interface{})
			// Re-declared variables keep the first declaration, matching
			// Terraform's own duplicate handling as closely as a
			// non-rejecting pipeline can.
			var v Variable
			if err := decodeStrict(list[0], &v); err != nil {
				return nil, fmt.Errorf("variable.%s: %w", name, err)
			}
			p.Variables[name] = v
		}
	}

	if locals, ok := raw["locals"]; ok {
		for i, item := range locals.([]interface{}) {
			body, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("locals[%d]: not an object", i)
			}
			p.Locals = append(p.Locals, body)
		}
	}

	if outputs, ok := raw["output"].(map[string]interface{}); ok {
		for name, decls := range outputs {
			list := decls.([]interface{})
			var o Output
			if err := decodeStrict(list[0], &o); err != nil {
				return nil, fmt.Errorf("output.%s: %w", name, err)
			}
			p.Outputs[name] = o
		}
	}

	if modules, ok := raw["module"].(map[string]interface{}); ok {
		for name, calls := range modules {
			for i, call := range calls.([]interface{}) {
				var mc ModuleCall
				if err := decodeStrict(call, &mc); err != nil {
					return nil, fmt.Errorf("module.%s[%d]: %w", name, i, err)
				}
				p.Modules[name] = append(p.Modules[name], mc)
			}
		}
	}

	for _, kind := range []string{"resource", "data"} {
		byType, ok := raw[kind].(map[string]interface{})
		if !ok {
			continue
		}
		target := p.Resources
		if kind == "data" {
			target = p.Data
		}
		for typeName, byNameRaw := range byType {
			byName := byNameRaw.(map[string]interface{})
			target[typeName] = map[string][]map[string]interface{}{}
			for name, cfgs := range byName {
				for i, cfg := range cfgs.([]interface{}) {
					body, ok := cfg.(map[string]interface{})
					if !ok {
						return nil, fmt.Errorf("%s.%s.%s[%d]: not an object", kind, typeName, name, i)
					}
					target[typeName][name] = append(target[typeName][name], body)
				}
			}
		}
	}

	return p, nil
}

// MergedLocals flattens all locals blocks into one mapping. Colliding keys
// are last-wins, matching Terraform's merge of multiple locals blocks; the
// override is reported so callers can log it.
func (p *Plan) MergedLocals() (map[string]interface{}, []string) {
	merged := map[string]interface{}{}
	var overridden []string
	for _, block := range p.Locals {
		for k, v := range block {
			if _, exists := merged[k]; exists {
				overridden = append(overridden, k)
			}
			merged[k] = v
		}
	}
	return merged, overridden
}
