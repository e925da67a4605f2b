// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package schemas holds the provider schema catalog the conversion pipeline
// reads attribute types from, and the boundary call that obtains schemas
// via the Terraform CLI.
package schemas

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-version"
	tfjson "github.com/hashicorp/terraform-json"
	tfaddr "github.com/hashicorp/terraform-registry-address"
)

// Catalog is an immutable-after-construction index of provider schemas
// keyed by provider address. Reads may happen from multiple conversions
// sharing one catalog, so lookups take the read lock.
type Catalog struct {
	mu       sync.RWMutex
	schemas  map[tfaddr.Provider]*tfjson.ProviderSchema
	versions map[tfaddr.Provider]*version.Version
}

func NewCatalog() *Catalog {
	return &Catalog{
		schemas:  map[tfaddr.Provider]*tfjson.ProviderSchema{},
		versions: map[tfaddr.Provider]*version.Version{},
	}
}

// Add registers a provider schema. A nil version is allowed when the
// source did not report one.
func (c *Catalog) Add(addr tfaddr.Provider, schema *tfjson.ProviderSchema, v *version.Version) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[addr] = schema
	if v != nil {
		c.versions[addr] = v
	}
}

// AddProviderSchemas ingests the output of `terraform providers schema
// -json`. Unparsable addresses are skipped.
func (c *Catalog) AddProviderSchemas(ps *tfjson.ProviderSchemas) error {
	if ps == nil {
		return fmt.Errorf("nil provider schemas")
	}
	for rawAddr, schema := range ps.Schemas {
		pAddr, err := tfaddr.ParseProviderSource(rawAddr)
		if err != nil {
			// skip unparsable address
			continue
		}
		c.Add(pAddr, schema, nil)
	}
	return nil
}

// ResolveLocalName maps a provider's local name (the label of a `provider`
// block, or the prefix of a resource type) to its registered address. When
// several registered providers share the type, the hashicorp namespace is
// preferred, then the lexically first address.
func (c *Catalog) ResolveLocalName(localName string) (tfaddr.Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var candidates []tfaddr.Provider
	for addr := range c.schemas {
		if addr.Type == localName {
			candidates = append(candidates, addr)
		}
	}
	if len(candidates) == 0 {
		return tfaddr.Provider{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].String() < candidates[j].String()
	})
	// Prefer the hashicorp namespace when several providers share a type.
	for _, addr := range candidates {
		if addr.Namespace == "hashicorp" {
			return addr, true
		}
	}
	return candidates[0], true
}

// ProviderSchema returns the schema for a provider address.
func (c *Catalog) ProviderSchema(addr tfaddr.Provider) (*tfjson.ProviderSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[addr]
	return s, ok
}

// ResourceSchema returns the schema for a resource type under the provider
// the type's prefix resolves to.
func (c *Catalog) ResourceSchema(resourceType string) (*tfjson.Schema, bool) {
	addr, ok := c.ResolveLocalName(ProviderPrefix(resourceType))
	if !ok {
		return nil, false
	}
	ps, ok := c.ProviderSchema(addr)
	if !ok || ps.ResourceSchemas == nil {
		return nil, false
	}
	s, ok := ps.ResourceSchemas[resourceType]
	return s, ok
}

// DataSourceSchema is the data-source counterpart of ResourceSchema.
func (c *Catalog) DataSourceSchema(dataSourceType string) (*tfjson.Schema, bool) {
	addr, ok := c.ResolveLocalName(ProviderPrefix(dataSourceType))
	if !ok {
		return nil, false
	}
	ps, ok := c.ProviderSchema(addr)
	if !ok || ps.DataSourceSchemas == nil {
		return nil, false
	}
	s, ok := ps.DataSourceSchemas[dataSourceType]
	return s, ok
}

// Version returns the known version for a provider address, if any.
func (c *Catalog) Version(addr tfaddr.Provider) *version.Version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[addr]
}

// Providers lists all registered provider addresses in stable order.
func (c *Catalog) Providers() []tfaddr.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addrs := make([]tfaddr.Provider, 0, len(c.schemas))
	for addr := range c.schemas {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].String() < addrs[j].String()
	})
	return addrs
}

// ProviderPrefix extracts the provider local name from a resource or data
// source type: "aws_vpc" belongs to "aws", "null_resource" to "null".
func ProviderPrefix(resourceType string) string {
	for i := 0; i < len(resourceType); i++ {
		if resourceType[i] == '_' {
			return resourceType[:i]
		}
	}
	return resourceType
}

// ParseSource normalizes a required_providers source string into a provider
// address, implying the hashicorp namespace for legacy single-segment
// sources.
func ParseSource(source string) (tfaddr.Provider, error) {
	addr, err := tfaddr.ParseProviderSource(source)
	if err != nil {
		return tfaddr.Provider{}, err
	}
	if addr.IsLegacy() || addr.Namespace == tfaddr.UnknownProviderNamespace {
		addr.Namespace = "hashicorp"
	}
	return addr, nil
}
