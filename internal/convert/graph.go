// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/hashicorp/hcl2cdk/internal/ast"
)

// reservedRoots are traversal roots that never create graph edges: they are
// intra-block (count.index, each.key, self) or environment references.
var reservedRoots = map[string]struct{}{
	"count":     {},
	"each":      {},
	"self":      {},
	"path":      {},
	"terraform": {},
}

// discoverReferences walks every node's fragment, resolves references to
// registered nodes and records dependency edges. All nodes must be
// registered before discovery starts so forward references bind.
func discoverReferences(ws *Workspace) {
	for _, node := range ws.NodesInOrder() {
		for _, ref := range referencesInFragment(node.Fragment) {
			if _, ok := ws.NodeByID(ref); !ok {
				ws.Debugf("dropping reference to unregistered node %q (from %s)", ref, node.ID)
				continue
			}
			node.AddDep(ref)
		}
	}
}

// referencesInFragment collects node ids referenced anywhere in a block
// body, in deterministic key order.
func referencesInFragment(fragment map[string]interface{}) []string {
	var refs []string
	for _, key := range sortedFragmentKeys(fragment) {
		if key == "depends_on" {
			refs = append(refs, dependsOnRefs(fragment[key])...)
			continue
		}
		if key == "provider" {
			if s, ok := fragment[key].(string); ok {
				refs = append(refs, providerRefCandidates(s)...)
				continue
			}
		}
		refs = append(refs, referencesInValue(fragment[key])...)
	}
	return refs
}

// providerRefCandidates maps a `provider = aws.west` meta-argument to
// candidate provider node ids; unregistered candidates are dropped by the
// caller.
func providerRefCandidates(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		return []string{nodeID(KindProvider, parts[0])}
	case 2:
		return []string{
			nodeID(KindProvider, parts[0], parts[1]),
			nodeID(KindProvider, parts[0]),
		}
	}
	return nil
}

func sortedFragmentKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion sort keeps this dependency-free and the slices are tiny
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func referencesInValue(v interface{}) []string {
	switch value := v.(type) {
	case string:
		return referencesInString(value)
	case []interface{}:
		var refs []string
		for _, item := range value {
			refs = append(refs, referencesInValue(item)...)
		}
		return refs
	case map[string]interface{}:
		var refs []string
		for _, key := range sortedFragmentKeys(value) {
			refs = append(refs, referencesInValue(value[key])...)
		}
		return refs
	}
	return nil
}

// referencesInString extracts references from a verbatim HCL expression
// string (template form).
func referencesInString(s string) []string {
	if !strings.Contains(s, "${") {
		return nil
	}
	expr, diags := hclsyntax.ParseTemplate([]byte(s), "fragment.tf", hcl.InitialPos)
	if diags.HasErrors() {
		return nil
	}
	var refs []string
	for _, trav := range expr.Variables() {
		if id, ok := traversalNodeID(trav); ok {
			refs = append(refs, id)
		}
	}
	return refs
}

// dependsOnRefs resolves depends_on entries, which are bare references
// without interpolation markers.
func dependsOnRefs(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var refs []string
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
		trav, diags := hclsyntax.ParseTraversalAbs([]byte(s), "depends_on.tf", hcl.InitialPos)
		if diags.HasErrors() {
			continue
		}
		if id, ok := traversalNodeID(trav); ok {
			refs = append(refs, id)
		}
	}
	return refs
}

// traversalNodeID resolves a traversal to the id of the node its longest
// prefix names: `aws_vpc.main.subnets[0].id` -> `resource.aws_vpc.main`.
func traversalNodeID(trav hcl.Traversal) (string, bool) {
	root := trav.RootName()
	if _, reserved := reservedRoots[root]; reserved {
		return "", false
	}

	steps := attrSteps(trav)

	switch root {
	case "var", "local", "module":
		if len(steps) < 1 {
			return "", false
		}
		kind := map[string]NodeKind{"var": KindVariable, "local": KindLocal, "module": KindModule}[root]
		return nodeID(kind, steps[0]), true
	case "data":
		if len(steps) < 2 {
			return "", false
		}
		return nodeID(KindData, steps[0], steps[1]), true
	default:
		if len(steps) < 1 {
			return "", false
		}
		return nodeID(KindResource, root, steps[0]), true
	}
}

// attrSteps returns the attribute names following the traversal root,
// stopping at the first index step.
func attrSteps(trav hcl.Traversal) []string {
	var steps []string
	for _, step := range trav[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			break
		}
		steps = append(steps, attr.Name)
	}
	return steps
}

// emitInOrder runs the topological state machine: repeatedly collect the
// ready set (no unemitted dependencies), emit it in registration order,
// and fail with a cycle when an iteration makes no progress.
func emitInOrder(ws *Workspace, emit func(*Node) ([]ast.Stmt, error)) ([]ast.Stmt, error) {
	order := ws.NodesInOrder()
	pending := make(map[string]struct{}, len(order))
	for _, n := range order {
		pending[n.ID] = struct{}{}
	}

	var stmts []ast.Stmt
	for len(pending) > 0 {
		var ready []*Node
		for _, n := range order {
			if _, isPending := pending[n.ID]; !isPending {
				continue
			}
			blocked := false
			for _, dep := range n.Deps {
				if _, ok := ws.NodeByID(dep); !ok {
					return nil, &MissingNodeError{ID: dep}
				}
				if _, depPending := pending[dep]; depPending {
					blocked = true
					break
				}
			}
			if !blocked {
				ready = append(ready, n)
			}
		}

		if len(ready) == 0 {
			var unvisited []string
			for _, n := range order {
				if _, isPending := pending[n.ID]; isPending {
					unvisited = append(unvisited, n.ID)
				}
			}
			return nil, &CycleDetectedError{Unvisited: unvisited}
		}

		for _, n := range ready {
			emitted, err := emit(n)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, emitted...)
			delete(pending, n.ID)
		}
	}
	return stmts, nil
}
