// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/core/tensors"
)

// SubmoduleKind classifies a child submodule after partitioning.
type SubmoduleKind int

//go:generate go tool enumer -type=SubmoduleKind -output=gen_submodulekind_enumer.go module.go

const (
	// Unclassified submodules are plain children, not produced by partitioning.
	Unclassified SubmoduleKind = iota

	// Accelerated submodules were compiled to an engine: their implementation is an engine module.
	Accelerated

	// HostExecuted submodules run on the host, as their own graph.
	HostExecuted
)

// Forwarder is implemented by opaque modules, whose computation is not described by a Graph.
type Forwarder interface {
	Forward(inputs ...any) (any, error)
}

// Module is a Graph together with its state and its child submodules. Opaque modules (e.g. compiled
// engines) have no graph and delegate their execution to a Forwarder.
//
// The state table is flattened: it holds the module's own entries plus the entries of all descendants,
// under their qualified names ("child.weight", "child.grandchild.bias").
type Module struct {
	name     string
	graph    *Graph
	impl     Forwarder
	kind     SubmoduleKind
	state    *StateTable
	children []*Module
}

// NewModule creates a module for graph. The graph must not be owned by another module.
func NewModule(name string, graph *Graph) *Module {
	if graph.owner != nil {
		exceptions.Panicf("graph already belongs to module %q", graph.owner.name)
	}
	m := &Module{name: name, graph: graph, state: NewStateTable()}
	graph.owner = m
	return m
}

// NewOpaqueModule creates a module without graph, executed by impl.
func NewOpaqueModule(name string, impl Forwarder) *Module {
	return &Module{name: name, impl: impl, state: NewStateTable()}
}

// Name of the module: for submodules, the name under which it is registered in its parent.
func (m *Module) Name() string { return m.name }

// Graph of the module, nil for opaque modules.
func (m *Module) Graph() *Graph { return m.graph }

// Impl returns the implementation of opaque modules, nil otherwise.
func (m *Module) Impl() Forwarder { return m.impl }

// Kind returns how the module was classified when added to its parent.
func (m *Module) Kind() SubmoduleKind { return m.kind }

// State returns the flattened state table of the module.
func (m *Module) State() *StateTable { return m.state }

// RegisterState sets a state entry of the module. Entries of children should be registered in the
// child before it is added with AddSubmodule.
func (m *Module) RegisterState(name string, kind StateKind, value *tensors.Tensor) {
	m.state.Set(name, kind, value)
}

// AddSubmodule registers child under name, and merges the child's state table into the module's with
// the "<name>." prefix.
func (m *Module) AddSubmodule(name string, kind SubmoduleKind, child *Module) {
	if name == "" || strings.Contains(name, ".") {
		exceptions.Panicf("invalid submodule name %q", name)
	}
	if m.Submodule(name) != nil {
		exceptions.Panicf("module %q already has a submodule named %q", m.name, name)
	}
	child.name = name
	child.kind = kind
	m.children = append(m.children, child)
	for _, key := range child.state.Names() {
		entry, _ := child.state.Get(key)
		m.state.Set(name+"."+key, entry.Kind, entry.Value)
	}
}

// Submodule returns the child with the given name, or nil. A dotted path ("a.b") is resolved recursively.
func (m *Module) Submodule(path string) *Module {
	name, rest, nested := strings.Cut(path, ".")
	for _, child := range m.children {
		if child.name == name {
			if nested {
				return child.Submodule(rest)
			}
			return child
		}
	}
	return nil
}

// Submodules returns the direct children, in registration order.
func (m *Module) Submodules() []*Module { return slices.Clone(m.children) }

// DeleteSubmodule removes the direct child name, and all its entries from the state table.
// It returns whether the child existed.
func (m *Module) DeleteSubmodule(name string) bool {
	idx := slices.IndexFunc(m.children, func(child *Module) bool { return child.name == name })
	if idx < 0 {
		return false
	}
	m.children = slices.Delete(m.children, idx, idx+1)
	m.state.DeletePrefix(name + ".")
	return true
}

// DeleteAllUnusedSubmodules removes the children not referenced by any OpCallModule node of the graph.
// It returns the names of the removed children.
func (m *Module) DeleteAllUnusedSubmodules() []string {
	if m.graph == nil {
		return nil
	}
	var removed []string
	for _, child := range m.Submodules() {
		if len(m.graph.FindNodes(OpCallModule, child.name)) == 0 {
			m.DeleteSubmodule(child.name)
			removed = append(removed, child.name)
		}
	}
	return removed
}

// String implements fmt.Stringer.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Module %q", m.name)
	if m.kind != Unclassified {
		fmt.Fprintf(&sb, " (%s)", m.kind)
	}
	if m.impl != nil {
		fmt.Fprintf(&sb, " opaque %T", m.impl)
	}
	fmt.Fprintf(&sb, ", %d state entries, %d submodules\n", m.state.Len(), len(m.children))
	if m.graph != nil {
		sb.WriteString(m.graph.String())
	}
	return sb.String()
}
