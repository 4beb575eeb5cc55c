// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Interpreter executes a Module node by node on concrete values (usually *tensors.Tensor, or
// []any for multiple values).
type Interpreter struct {
	Module *Module

	// BeforeCallModule, if set, is called before each call_module node of the top-level graph is executed.
	BeforeCallModule func(node *Node, child *Module, inputs []any)

	// AfterCallModule, if set, is called with the result of each call_module node of the top-level graph.
	AfterCallModule func(node *Node, child *Module, result any)
}

// Run executes m with the given inputs, see Interpreter.Run.
func Run(m *Module, inputs ...any) (any, error) {
	return (&Interpreter{Module: m}).Run(inputs...)
}

// Run executes the module: inputs are bound to the placeholders in order, and the value of the output
// node is returned. A list output is returned as []any.
func (it *Interpreter) Run(inputs ...any) (any, error) {
	m := it.Module
	if m.graph == nil {
		if m.impl == nil {
			return nil, errors.Errorf("module %q has neither a graph nor an implementation", m.name)
		}
		return m.impl.Forward(inputs...)
	}
	g := m.graph
	numPlaceholders := len(g.Placeholders())
	if len(inputs) != numPlaceholders {
		return nil, errors.Errorf("module %q takes %d inputs, %d given", m.name, numPlaceholders, len(inputs))
	}

	env := make(map[*Node]any, len(g.nodes))
	resolve := func(args []any) []any {
		return mapArgs(args, func(n *Node) any { return env[n] })
	}
	inputIdx := 0
	for _, node := range g.nodes {
		switch node.op {
		case OpPlaceholder:
			env[node] = inputs[inputIdx]
			inputIdx++

		case OpGetAttr:
			entry, found := m.state.Get(node.target)
			if !found {
				return nil, errors.Errorf("node %q: state entry %q not found in module %q", node.name, node.target, m.name)
			}
			env[node] = entry.Value

		case OpCallModule:
			child := m.Submodule(node.target)
			if child == nil {
				return nil, errors.Errorf("node %q: submodule %q not found in module %q", node.name, node.target, m.name)
			}
			args := resolve(node.args)
			if it.BeforeCallModule != nil {
				it.BeforeCallModule(node, child, args)
			}
			result, err := Run(child, args...)
			if err != nil {
				return nil, errors.WithMessagef(err, "node %q: calling submodule %q", node.name, node.target)
			}
			if it.AfterCallModule != nil {
				it.AfterCallModule(node, child, result)
			}
			env[node] = result

		case OpCallFunction:
			if node.function == nil || node.function.Eval == nil {
				return nil, errors.Errorf("node %q: function %q cannot be evaluated", node.name, node.target)
			}
			result, err := node.function.Eval(resolve(node.args))
			if err != nil {
				return nil, errors.WithMessagef(err, "node %q: evaluating %s", node.name, node.target)
			}
			env[node] = result

		case OpOutput:
			klog.V(3).Infof("fx: module %q executed %d nodes", m.name, len(env))
			return resolve(node.args)[0], nil
		}
	}
	return nil, errors.Errorf("module %q graph has no output node", m.name)
}
