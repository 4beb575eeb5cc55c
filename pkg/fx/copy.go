// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import "github.com/gomlx/exceptions"

// Copy copies all nodes of src into g, at the current insertion point, except its output node.
//
// valMap maps nodes of src to nodes of g: nodes already present in valMap are not copied (typically the
// placeholders of src, pre-mapped to the values that feed them), and every copied node is added to it.
//
// It returns the argument of the src output node (a node or a list of nodes), mapped to g, or nil if
// src has no output node.
func (g *Graph) Copy(src *Graph, valMap map[*Node]*Node) (output any) {
	if src == g {
		exceptions.Panicf("cannot copy a graph into itself")
	}
	transform := func(n *Node) any {
		mapped, found := valMap[n]
		if !found {
			exceptions.Panicf("copying graph: node %q used before it was mapped", n.name)
		}
		return mapped
	}
	for _, node := range src.nodes {
		if _, found := valMap[node]; found {
			continue
		}
		if node.op == OpOutput {
			output = mapArg(node.args[0], transform)
			continue
		}
		valMap[node] = g.NodeCopy(node, transform)
	}
	return output
}
