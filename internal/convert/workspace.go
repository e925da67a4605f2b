// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package convert

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/hashicorp/go-memdb"
	tfaddr "github.com/hashicorp/terraform-registry-address"

	"github.com/hashicorp/hcl2cdk/internal/schemas"
)

const (
	nodesTableName      = "nodes"
	constructsTableName = "constructs"
	variablesTableName  = "variables"
)

var workspaceSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		nodesTableName: {
			Name: nodesTableName,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"order": {
					Name:    "order",
					Unique:  true,
					Indexer: &memdb.UintFieldIndex{Field: "Order"},
				},
			},
		},
		constructsTableName: {
			Name: constructsTableName,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Name"},
				},
			},
		},
		variablesTableName: {
			Name: variablesTableName,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "NodeID"},
				},
			},
		},
	},
}

type nodeRow struct {
	ID    string
	Order uint64
	Node  *Node
}

type constructRow struct {
	Name string
}

type variableRow struct {
	NodeID     string
	Identifier string
}

// Workspace is the per-conversion scope: the node registry, the set of
// construct identifiers already claimed, the logical-id to identifier
// mapping, and the token coercion flag. Its lifetime is a single
// conversion.
type Workspace struct {
	db     *memdb.MemDB
	logger *log.Logger

	catalog *schemas.Catalog
	// providerGen caches per-provider construct metadata, populated
	// lazily on first lookup.
	providerGen map[tfaddr.Provider]*providerGenerator

	nextOrder uint64

	hasTokenBasedTypeCoercion bool

	warnings []string
	// framework core symbols referenced by emitted code
	frameworkSymbols map[string]struct{}
	// provider local name -> address (or zero address when no schema)
	providersUsed map[string]tfaddr.Provider
	// provider local name -> binding symbols referenced
	providerSymbols map[string]map[string]struct{}
	// providers referenced without schema available
	missingSchema map[string]struct{}
	// module import symbol -> import metadata
	modulesUsed map[string]moduleImport
}

type moduleImport struct {
	Path          string
	SourceVersion string
}

// NewWorkspace builds an empty workspace around a schema catalog.
func NewWorkspace(catalog *schemas.Catalog, logger *log.Logger) (*Workspace, error) {
	db, err := memdb.NewMemDB(workspaceSchema)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Workspace{
		db:               db,
		logger:           logger,
		catalog:          catalog,
		providerGen:      map[tfaddr.Provider]*providerGenerator{},
		frameworkSymbols: map[string]struct{}{},
		providersUsed:    map[string]tfaddr.Provider{},
		providerSymbols:  map[string]map[string]struct{}{},
		missingSchema:    map[string]struct{}{},
		modulesUsed:      map[string]moduleImport{},
	}, nil
}

func (w *Workspace) SetLogger(logger *log.Logger) {
	w.logger = logger
}

// RegisterNode adds a node to the registry. Registration is idempotent:
// re-registering an id returns the already-registered node.
func (w *Workspace) RegisterNode(node *Node) (*Node, error) {
	txn := w.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(nodesTableName, "id", node.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing.(*nodeRow).Node, nil
	}

	row := &nodeRow{ID: node.ID, Order: w.nextOrder, Node: node}
	if err := txn.Insert(nodesTableName, row); err != nil {
		return nil, err
	}
	w.nextOrder++
	txn.Commit()
	return node, nil
}

// NodeByID looks a node up by its canonical id.
func (w *Workspace) NodeByID(id string) (*Node, bool) {
	txn := w.db.Txn(false)
	raw, err := txn.First(nodesTableName, "id", id)
	if err != nil || raw == nil {
		return nil, false
	}
	return raw.(*nodeRow).Node, true
}

// NodesInOrder returns every registered node in registration order.
func (w *Workspace) NodesInOrder() []*Node {
	txn := w.db.Txn(false)
	it, err := txn.Get(nodesTableName, "order")
	if err != nil {
		return nil
	}
	var out []*Node
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*nodeRow).Node)
	}
	return out
}

// ToIdentifier returns the emitted identifier for a node id, allocating a
// collision-free one from the base name on first use. Conflicts resolve by
// suffixing _1, _2, ... in registration order.
func (w *Workspace) ToIdentifier(nodeID, base string) string {
	txn := w.db.Txn(true)
	defer txn.Abort()

	if raw, err := txn.First(variablesTableName, "id", nodeID); err == nil && raw != nil {
		return raw.(*variableRow).Identifier
	}

	name := sanitizeIdentifier(base)
	candidate := name
	for i := 1; ; i++ {
		raw, err := txn.First(constructsTableName, "id", candidate)
		if err != nil || raw == nil {
			break
		}
		candidate = fmt.Sprintf("%s_%d", name, i)
	}

	if err := txn.Insert(constructsTableName, &constructRow{Name: candidate}); err != nil {
		return candidate
	}
	if err := txn.Insert(variablesTableName, &variableRow{NodeID: nodeID, Identifier: candidate}); err != nil {
		return candidate
	}
	txn.Commit()
	return candidate
}

// IdentifierFor returns the identifier previously allocated for a node id.
func (w *Workspace) IdentifierFor(nodeID string) (string, bool) {
	txn := w.db.Txn(false)
	raw, err := txn.First(variablesTableName, "id", nodeID)
	if err != nil || raw == nil {
		return "", false
	}
	return raw.(*variableRow).Identifier, true
}

// MarkTokenCoercion records that an emitted expression required a
// framework coercion helper.
func (w *Workspace) MarkTokenCoercion() {
	w.hasTokenBasedTypeCoercion = true
}

// HasTokenCoercion reports whether any expression required coercion.
func (w *Workspace) HasTokenCoercion() bool {
	return w.hasTokenBasedTypeCoercion
}

// UseFrameworkSymbol records that emitted code references a framework core
// symbol (Token, Fn, TerraformVariable, ...).
func (w *Workspace) UseFrameworkSymbol(name string) {
	w.frameworkSymbols[name] = struct{}{}
}

// FrameworkSymbols returns the used core symbols, sorted.
func (w *Workspace) FrameworkSymbols() []string {
	out := make([]string, 0, len(w.frameworkSymbols))
	for s := range w.frameworkSymbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// UseProvider records a provider reference by local name, resolving its
// address through the catalog. Providers without schema are tracked for
// the missing-schema annotation.
func (w *Workspace) UseProvider(localName string) {
	if _, seen := w.providersUsed[localName]; seen {
		return
	}
	addr, ok := w.catalog.ResolveLocalName(localName)
	if !ok {
		w.missingSchema[localName] = struct{}{}
		addr = tfaddr.NewProvider(tfaddr.DefaultProviderRegistryHost, "hashicorp", localName)
	}
	w.providersUsed[localName] = addr
}

// ProvidersUsed returns local names of referenced providers, sorted.
func (w *Workspace) ProvidersUsed() []string {
	out := make([]string, 0, len(w.providersUsed))
	for name := range w.providersUsed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ProviderAddress returns the resolved address for a used provider.
func (w *Workspace) ProviderAddress(localName string) (tfaddr.Provider, bool) {
	addr, ok := w.providersUsed[localName]
	return addr, ok
}

// MissingSchemas returns provider local names referenced without schema,
// sorted.
func (w *Workspace) MissingSchemas() []string {
	out := make([]string, 0, len(w.missingSchema))
	for name := range w.missingSchema {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// UseProviderSymbol records that a binding symbol of a provider is
// referenced by emitted code.
func (w *Workspace) UseProviderSymbol(localName, symbol string) {
	w.UseProvider(localName)
	if _, ok := w.providerSymbols[localName]; !ok {
		w.providerSymbols[localName] = map[string]struct{}{}
	}
	w.providerSymbols[localName][symbol] = struct{}{}
}

// ProviderSymbols returns the binding symbols used for a provider, sorted.
func (w *Workspace) ProviderSymbols(localName string) []string {
	out := make([]string, 0, len(w.providerSymbols[localName]))
	for s := range w.providerSymbols[localName] {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// UseModule records a module import under its emitted symbol.
func (w *Workspace) UseModule(symbol, path, sourceVersion string) {
	w.modulesUsed[symbol] = moduleImport{Path: path, SourceVersion: sourceVersion}
}

// ModulesUsed returns module symbols, sorted.
func (w *Workspace) ModulesUsed() []string {
	out := make([]string, 0, len(w.modulesUsed))
	for s := range w.modulesUsed {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ModuleImport returns the import metadata recorded for a module symbol.
func (w *Workspace) ModuleImport(symbol string) (path, sourceVersion string) {
	mi := w.modulesUsed[symbol]
	return mi.Path, mi.SourceVersion
}

// Warnf records a non-fatal conversion note.
func (w *Workspace) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	w.warnings = append(w.warnings, msg)
	w.logger.Printf("warning: %s", msg)
}

// Debugf logs without recording a warning.
func (w *Workspace) Debugf(format string, args ...interface{}) {
	w.logger.Printf(format, args...)
}

// Warnings returns recorded warnings in order.
func (w *Workspace) Warnings() []string {
	return w.warnings
}

// providerGenerator caches construct naming metadata per provider.
type providerGenerator struct {
	addr  tfaddr.Provider
	ctors map[string]string
}

// providerGeneratorFor returns the cached generator for a provider,
// creating it on first lookup.
func (w *Workspace) providerGeneratorFor(addr tfaddr.Provider) *providerGenerator {
	if gen, ok := w.providerGen[addr]; ok {
		return gen
	}
	gen := &providerGenerator{addr: addr, ctors: map[string]string{}}
	w.providerGen[addr] = gen
	return gen
}

// ConstructName returns the binding constructor name for a resource or
// data source type, caching per provider.
func (w *Workspace) ConstructName(addr tfaddr.Provider, kind NodeKind, typeName string) string {
	gen := w.providerGeneratorFor(addr)
	key := string(kind) + "." + typeName
	if ctor, ok := gen.ctors[key]; ok {
		return ctor
	}
	ctor := pascalCase(typeName)
	if kind == KindData {
		ctor = "Data" + ctor
	}
	gen.ctors[key] = ctor
	return ctor
}
