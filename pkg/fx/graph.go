// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fx implements the graph intermediate representation used by the exporter: a Graph is an
// ordered list of Node (placeholders, state references, submodule calls, function calls and one output),
// and a Module pairs a Graph with its state (parameters, buffers and constants) and its child submodules.
//
// Graph transformations panic (with exceptions.Panicf) on invalid operations, and are expected to be
// wrapped with exceptions.TryCatch at the public API boundary.
package fx

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
)

// Graph is an ordered list of nodes. The order is a valid topological order: every argument is
// defined before its users.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	nodes []*Node
	names map[string]*Node

	// insertBefore is the current insertion point: new nodes are inserted before it, or appended if nil.
	insertBefore *Node

	// owner is the Module holding this graph, if any.
	owner *Module
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{names: make(map[string]*Node)}
}

// Owner returns the Module holding the graph, or nil.
func (g *Graph) Owner() *Module { return g.owner }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns a snapshot of the nodes in order: it is safe to mutate the graph while iterating over it.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// NodeByName returns the node with the given name, or nil.
func (g *Graph) NodeByName(name string) *Node { return g.names[name] }

// Placeholders returns the input nodes, in order.
func (g *Graph) Placeholders() []*Node { return g.FindNodes(OpPlaceholder, "") }

// OutputNode returns the output node, or nil if the graph has none yet.
func (g *Graph) OutputNode() *Node {
	for _, node := range slices.Backward(g.nodes) {
		if node.op == OpOutput {
			return node
		}
	}
	return nil
}

// FindNodes returns the nodes with the given op. If target is not empty, only those with a matching target.
func (g *Graph) FindNodes(op Op, target string) []*Node {
	var found []*Node
	for _, node := range g.nodes {
		if node.op == op && (target == "" || node.target == target) {
			found = append(found, node)
		}
	}
	return found
}

// FindCallModule returns the call_module nodes calling the submodule target.
func (g *Graph) FindCallModule(target string) []*Node { return g.FindNodes(OpCallModule, target) }

// Index returns the position of the node in the graph, or -1 if it is not part of it.
func (g *Graph) Index(n *Node) int {
	return slices.Index(g.nodes, n)
}

// InsertingBefore sets the insertion point so new nodes are created before anchor, in the order
// they are created. If anchor is nil, new nodes are inserted at the start of the graph.
//
// It returns a function that restores the previous insertion point, typically used with defer.
func (g *Graph) InsertingBefore(anchor *Node) (restore func()) {
	previous := g.insertBefore
	if anchor == nil {
		if len(g.nodes) > 0 {
			anchor = g.nodes[0]
		}
	} else {
		g.assertOwns(anchor)
	}
	g.insertBefore = anchor
	return func() { g.insertBefore = previous }
}

// InsertingAfter sets the insertion point so new nodes are created right after anchor, in the order
// they are created.
//
// It returns a function that restores the previous insertion point.
func (g *Graph) InsertingAfter(anchor *Node) (restore func()) {
	g.assertOwns(anchor)
	previous := g.insertBefore
	idx := g.Index(anchor)
	if idx+1 < len(g.nodes) {
		g.insertBefore = g.nodes[idx+1]
	} else {
		g.insertBefore = nil
	}
	return func() { g.insertBefore = previous }
}

func (g *Graph) assertOwns(n *Node) {
	if n == nil || n.graph != g || n.erased {
		exceptions.Panicf("node %s does not belong to the graph, or was erased", n)
	}
}

// Placeholder creates a graph input. The node name is derived from name, and the target is name itself.
func (g *Graph) Placeholder(name string) *Node {
	return g.createNode(OpPlaceholder, name, nil, nil, name)
}

// GetAttr creates a reference to the owning module state entry with the qualified name target.
func (g *Graph) GetAttr(target string) *Node {
	return g.createNode(OpGetAttr, target, nil, nil, target)
}

// CallModule creates a call to the child submodule target with the given arguments.
func (g *Graph) CallModule(target string, args ...any) *Node {
	return g.createNode(OpCallModule, target, nil, args, target)
}

// CallFunction creates a call to fn with the given arguments.
func (g *Graph) CallFunction(fn *Function, args ...any) *Node {
	if fn == nil {
		exceptions.Panicf("CallFunction with nil function")
	}
	return g.createNode(OpCallFunction, fn.Name, fn, args, fn.NodeName())
}

// Output creates the output node returning result: usually a node, or a list ([]any) of nodes for graphs
// with multiple outputs. There can only be one output node.
func (g *Graph) Output(result any) *Node {
	if g.OutputNode() != nil {
		exceptions.Panicf("graph already has an output node")
	}
	return g.createNode(OpOutput, "output", nil, []any{result}, "output")
}

// NodeCopy creates a copy of node (from any graph) in g, at the current insertion point, transforming
// its arguments with argTransform. Meta entries are shallow copied and the name is preserved if available.
func (g *Graph) NodeCopy(node *Node, argTransform func(*Node) any) *Node {
	args := mapArgs(node.args, argTransform)
	newNode := g.createNode(node.op, node.target, node.function, args, node.name)
	for key, value := range node.Meta {
		newNode.Meta[key] = value
	}
	return newNode
}

func (g *Graph) createNode(op Op, target string, fn *Function, args []any, nameHint string) *Node {
	n := &Node{
		graph:    g,
		op:       op,
		target:   target,
		function: fn,
		args:     normalizeArgs(g, args),
		Meta:     make(map[string]any),
	}
	n.name = g.uniqueName(nameHint)
	g.names[n.name] = n
	for _, input := range inputNodes(n.args) {
		input.addUser(n)
	}
	g.insert(n)
	return n
}

func (g *Graph) insert(n *Node) {
	if g.insertBefore == nil {
		g.nodes = append(g.nodes, n)
		return
	}
	idx := g.Index(g.insertBefore)
	if idx < 0 {
		exceptions.Panicf("insertion point %q is no longer part of the graph", g.insertBefore.name)
	}
	g.nodes = slices.Insert(g.nodes, idx, n)
}

// createNodeWithName is used when decoding a graph: the name must be kept exactly.
func (g *Graph) createNodeWithName(op Op, target string, fn *Function, args []any, name string) *Node {
	if _, found := g.names[name]; found || name == "" {
		exceptions.Panicf("duplicate or empty node name %q", name)
	}
	n := &Node{graph: g, name: name, op: op, target: target, function: fn, args: normalizeArgs(g, args),
		Meta: make(map[string]any)}
	g.names[name] = n
	for _, input := range inputNodes(n.args) {
		input.addUser(n)
	}
	g.insert(n)
	return n
}

// SanitizeName converts a qualified name (e.g. "stage.weight") to a valid node name ("stage_weight").
func SanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	sanitized := sb.String()
	if sanitized == "" || (sanitized[0] >= '0' && sanitized[0] <= '9') {
		sanitized = "_" + sanitized
	}
	return sanitized
}

// uniqueName returns a sanitized version of hint, with a numeric suffix "_<n>" if it is already taken.
func (g *Graph) uniqueName(hint string) string {
	base := SanitizeName(hint)
	if _, found := g.names[base]; !found {
		return base
	}
	for ii := 1; ; ii++ {
		candidate := base + "_" + strconv.Itoa(ii)
		if _, found := g.names[candidate]; !found {
			return candidate
		}
	}
}

// EraseNode removes a node without users from the graph.
func (g *Graph) EraseNode(n *Node) {
	g.assertOwns(n)
	if len(n.users) > 0 {
		exceptions.Panicf("cannot erase node %q: it still has %d user(s), e.g. %q", n.name, len(n.users), n.users[0].name)
	}
	if n == g.insertBefore {
		exceptions.Panicf("cannot erase node %q: it is the current insertion point", n.name)
	}
	for _, input := range inputNodes(n.args) {
		input.removeUser(n)
	}
	g.nodes = slices.DeleteFunc(g.nodes, func(node *Node) bool { return node == n })
	delete(g.names, n.name)
	n.erased = true
}

// String implements fmt.Stringer, listing the nodes in order.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Graph: %d nodes\n", len(g.nodes))
	for ii, node := range g.nodes {
		fmt.Fprintf(&sb, "\t#%d\t%s\n", ii, node)
	}
	return sb.String()
}
