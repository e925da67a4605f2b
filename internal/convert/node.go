// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"fmt"
	"strings"
)

// NodeKind identifies which top-level block a node came from.
type NodeKind string

const (
	KindBackend  NodeKind = "backend"
	KindProvider NodeKind = "provider"
	KindVariable NodeKind = "var"
	KindLocal    NodeKind = "local"
	KindModule   NodeKind = "module"
	KindOutput   NodeKind = "out"
	KindResource NodeKind = "resource"
	KindData     NodeKind = "data"
)

// Node is one top-level declaration pending emission. Deps lists the ids of
// nodes whose declarations must appear before this one.
type Node struct {
	ID   string
	Kind NodeKind

	// Type is the resource/data type, provider local name, or backend
	// type, depending on Kind.
	Type string
	// Name is the HCL name label (resource name, variable name, module
	// instance name, provider local name, local key).
	Name string
	// Index disambiguates repeated configurations of the same address.
	Index int

	// Fragment is the raw block body; leaf values preserve HCL
	// expressions verbatim.
	Fragment map[string]interface{}
	// Payload carries the decoded fixed-shape form where one exists
	// (plan.Variable, plan.Output, plan.ModuleCall).
	Payload interface{}

	Deps []string
}

// nodeID builds the canonical id for a node, `<kind>.<name>[.<index>]`.
func nodeID(kind NodeKind, parts ...string) string {
	return string(kind) + "." + strings.Join(parts, ".")
}

// AddDep records a dependency edge (dep must be declared before n). Edges
// are kept unique and in insertion order.
func (n *Node) AddDep(dep string) {
	if dep == n.ID {
		// Intra-node self references are not cycles.
		return
	}
	for _, existing := range n.Deps {
		if existing == dep {
			return
		}
	}
	n.Deps = append(n.Deps, dep)
}

func (n *Node) String() string {
	return fmt.Sprintf("%s (%s)", n.ID, n.Kind)
}
