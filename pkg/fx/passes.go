// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// isImpure returns whether the node must be kept even without users.
func (n *Node) isImpure() bool {
	switch n.op {
	case OpPlaceholder, OpOutput:
		return true
	case OpCallFunction:
		return n.function != nil && n.function.Impure
	}
	return false
}

// EliminateDeadCode erases the nodes without users, except inputs, the output and impure function calls.
// It returns whether any node was erased.
func (g *Graph) EliminateDeadCode() (changed bool) {
	for _, node := range slices.Backward(g.Nodes()) {
		if node.isImpure() || len(node.users) > 0 {
			continue
		}
		klog.V(2).Infof("fx: dead-code elimination erased %s", node)
		g.EraseNode(node)
		changed = true
	}
	return
}

// Lint checks the structural invariants of the graph, returning all violations found:
//
//   - node names are unique, and match the name index;
//   - every node referenced as an argument belongs to the graph, and is defined before its user;
//   - the users of each node are exactly the nodes referencing it;
//   - there is at most one output node, and call_function nodes have a function;
//   - if the graph is owned by a Module, get_attr targets resolve in its state, and call_module
//     targets resolve to one of its submodules.
func (g *Graph) Lint() error {
	var err error
	position := make(map[*Node]int, len(g.nodes))
	seenNames := make(map[string]bool, len(g.nodes))
	numOutputs := 0
	for ii, node := range g.nodes {
		if node.graph != g || node.erased {
			err = multierr.Append(err, errors.Errorf("node %q (#%d) is erased or belongs to another graph", node.name, ii))
		}
		if seenNames[node.name] {
			err = multierr.Append(err, errors.Errorf("duplicate node name %q", node.name))
		}
		seenNames[node.name] = true
		if g.names[node.name] != node {
			err = multierr.Append(err, errors.Errorf("node %q (#%d) missing from the name index", node.name, ii))
		}
		for _, input := range inputNodes(node.args) {
			if _, found := position[input]; !found || input.graph != g {
				err = multierr.Append(err, errors.Errorf("node %q uses %q, which is not defined before it in the graph", node.name, input.name))
				continue
			}
			if !slices.Contains(input.users, node) {
				err = multierr.Append(err, errors.Errorf("node %q uses %q, but is not listed among its users", node.name, input.name))
			}
		}
		for _, user := range node.users {
			if !slices.Contains(inputNodes(user.args), node) {
				err = multierr.Append(err, errors.Errorf("node %q lists %q as a user, but it is not used by it", node.name, user.name))
			}
		}
		switch node.op {
		case OpOutput:
			numOutputs++
		case OpCallFunction:
			if node.function == nil {
				err = multierr.Append(err, errors.Errorf("call_function node %q has no function", node.name))
			}
		case OpGetAttr:
			if g.owner != nil && !g.owner.state.Has(node.target) {
				err = multierr.Append(err, errors.Errorf("get_attr node %q references unknown state entry %q", node.name, node.target))
			}
		case OpCallModule:
			if g.owner != nil && g.owner.Submodule(node.target) == nil {
				err = multierr.Append(err, errors.Errorf("call_module node %q references unknown submodule %q", node.name, node.target))
			}
		}
		position[node] = ii
	}
	if len(g.names) != len(g.nodes) {
		err = multierr.Append(err, errors.Errorf("name index has %d entries, but the graph has %d nodes", len(g.names), len(g.nodes)))
	}
	if numOutputs > 1 {
		err = multierr.Append(err, errors.Errorf("graph has %d output nodes", numOutputs))
	}
	return err
}
