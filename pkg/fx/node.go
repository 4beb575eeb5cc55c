// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/core/shapes"
)

// Op is the kind of a Node.
type Op int

//go:generate go tool enumer -type=Op -trimprefix=Op -transform=snake -text -output=gen_op_enumer.go node.go

const (
	// OpPlaceholder is a graph input.
	OpPlaceholder Op = iota

	// OpGetAttr reads a named entry (parameter, buffer or constant) of the owning Module's state.
	OpGetAttr

	// OpCallModule calls a child submodule of the owning Module.
	OpCallModule

	// OpCallFunction calls a registered Function.
	OpCallFunction

	// OpOutput is the terminal node, its only argument is the value returned by the graph.
	OpOutput
)

// MetaVal is the Node.Meta key holding the symbolic value of the node: a *fake.Tensor, or a
// []*fake.Tensor for nodes returning multiple values.
const MetaVal = "val"

// Node is one operation, reference, input or output of a Graph.
//
// Args can hold other *Node of the same graph, lists ([]any) of args, literals (int, float64, bool,
// string, nil) or opaque objects (e.g. an engine handle). The users of a node, that is the nodes whose
// args reference it, are kept up-to-date automatically.
type Node struct {
	graph    *Graph
	name     string
	op       Op
	target   string
	function *Function
	args     []any
	users    []*Node
	erased   bool

	// Meta holds metadata about the node. See MetaVal.
	Meta map[string]any
}

// Graph the node belongs to.
func (n *Node) Graph() *Graph { return n.graph }

// Name of the node, unique within its graph.
func (n *Node) Name() string { return n.name }

// Op returns the kind of the node.
func (n *Node) Op() Op { return n.op }

// Target of the node: the placeholder name, the qualified state name (OpGetAttr), the submodule
// name (OpCallModule) or the function name (OpCallFunction).
func (n *Node) Target() string { return n.target }

// Function called by an OpCallFunction node, nil otherwise.
func (n *Node) Function() *Function { return n.function }

// Args returns a shallow copy of the node arguments.
func (n *Node) Args() []any { return slices.Clone(n.args) }

// NumArgs returns the number of top-level arguments.
func (n *Node) NumArgs() int { return len(n.args) }

// Arg returns the i-th argument.
func (n *Node) Arg(i int) any { return n.args[i] }

// Users returns the nodes that use this node as an argument, in the order they started using it.
func (n *Node) Users() []*Node { return slices.Clone(n.users) }

// NumUsers returns the number of users of the node.
func (n *Node) NumUsers() int { return len(n.users) }

// IsErased returns whether the node was removed from its graph.
func (n *Node) IsErased() bool { return n.erased }

// Val returns the value stored under MetaVal, or nil.
func (n *Node) Val() any { return n.Meta[MetaVal] }

// SetArgs replaces the arguments of the node, updating the users of the old and new argument nodes.
func (n *Node) SetArgs(args ...any) {
	n.graph.assertOwns(n)
	normalized := normalizeArgs(n.graph, args)
	for _, input := range inputNodes(n.args) {
		input.removeUser(n)
	}
	n.args = normalized
	for _, input := range inputNodes(n.args) {
		input.addUser(n)
	}
}

// ReplaceAllUsesWith rewrites every user of n to use replacement instead. It returns the users that were changed.
func (n *Node) ReplaceAllUsesWith(replacement *Node) []*Node {
	if replacement == n {
		exceptions.Panicf("ReplaceAllUsesWith(%s): node cannot replace itself", n.name)
	}
	return n.ReplaceAllUsesWithValue(replacement)
}

// ReplaceAllUsesWithValue rewrites every user of n to use value (a node of the same graph, a list or a
// literal) instead. It returns the users that were changed.
func (n *Node) ReplaceAllUsesWithValue(value any) []*Node {
	users := slices.Clone(n.users)
	for _, user := range users {
		user.SetArgs(mapArgs(user.args, func(input *Node) any {
			if input == n {
				return value
			}
			return input
		})...)
	}
	return users
}

func (n *Node) addUser(user *Node) {
	if !slices.Contains(n.users, user) {
		n.users = append(n.users, user)
	}
}

func (n *Node) removeUser(user *Node) {
	n.users = slices.DeleteFunc(n.users, func(u *Node) bool { return u == user })
}

// InputNodes returns the distinct nodes referenced by the arguments, in order of first appearance.
func (n *Node) InputNodes() []*Node { return inputNodes(n.args) }

// inputNodes walks args (recursively into lists) and returns the distinct nodes found.
func inputNodes(args []any) []*Node {
	var nodes []*Node
	var walk func(arg any)
	walk = func(arg any) {
		switch a := arg.(type) {
		case *Node:
			if !slices.Contains(nodes, a) {
				nodes = append(nodes, a)
			}
		case []any:
			for _, e := range a {
				walk(e)
			}
		}
	}
	for _, arg := range args {
		walk(arg)
	}
	return nodes
}

// mapArg rebuilds arg (recursively for lists), replacing every node by fn(node).
func mapArg(arg any, fn func(*Node) any) any {
	switch a := arg.(type) {
	case *Node:
		return fn(a)
	case []any:
		result := make([]any, len(a))
		for ii, e := range a {
			result[ii] = mapArg(e, fn)
		}
		return result
	}
	return arg
}

func mapArgs(args []any, fn func(*Node) any) []any {
	result := make([]any, len(args))
	for ii, arg := range args {
		result[ii] = mapArg(arg, fn)
	}
	return result
}

// normalizeArgs converts []*Node into []any and checks that all nodes belong to g.
func normalizeArgs(g *Graph, args []any) []any {
	var normalize func(arg any) any
	normalize = func(arg any) any {
		switch a := arg.(type) {
		case *Node:
			if a.graph != g || a.erased {
				exceptions.Panicf("node %q used as argument does not belong to the graph (or was erased)", a.name)
			}
			return a
		case []*Node:
			result := make([]any, len(a))
			for ii, e := range a {
				result[ii] = normalize(e)
			}
			return result
		case []any:
			result := make([]any, len(a))
			for ii, e := range a {
				result[ii] = normalize(e)
			}
			return result
		}
		return arg
	}
	result := make([]any, len(args))
	for ii, arg := range args {
		result[ii] = normalize(arg)
	}
	return result
}

// String implements fmt.Stringer. E.g.: `%add = call_function[target=aten.add](%x, 1) (Float32)[1] 4 B`.
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%%%s = %s", n.name, n.op)
	if n.op != OpOutput && n.target != n.name {
		fmt.Fprintf(&sb, "[target=%s]", n.target)
	}
	if len(n.args) > 0 {
		parts := make([]string, len(n.args))
		for ii, arg := range n.args {
			parts[ii] = argString(arg)
		}
		fmt.Fprintf(&sb, "(%s)", strings.Join(parts, ", "))
	}
	for _, shape := range fake.Shapes(n.Val()) {
		fmt.Fprintf(&sb, " %s %s", shape, humanize.Bytes(uint64(shape.Memory())))
	}
	return sb.String()
}

func argString(arg any) string {
	switch a := arg.(type) {
	case *Node:
		return "%" + a.name
	case []any:
		parts := make([]string, len(a))
		for ii, e := range a {
			parts[ii] = argString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case nil:
		return "None"
	case string:
		return fmt.Sprintf("%q", a)
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", a)
	case shapes.HasShape:
		return fmt.Sprintf("<%T %s>", a, a.Shape())
	case fmt.Stringer:
		return "<" + a.String() + ">"
	}
	return fmt.Sprintf("<%T>", arg)
}
