// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/fx"
	"k8s.io/klog/v2"
)

// Lift converts every get_attr node of module's graph into a placeholder, inserted before the first
// user input of signature, and adds the corresponding input specs before the user inputs.
//
// Lifted inputs are ordered by kind (parameters, then buffers, then constants) and by graph order within
// a kind. Their values are fake tensors of the fake.Mode used by the existing placeholders.
//
// It returns the module, the updated signature, and the state table holding the values of the lifted
// inputs, keyed by their targets. It panics if a get_attr target is not in the module state, or if no
// fake.Mode can be detected from the placeholders.
func Lift(module *fx.Module, signature GraphSignature) (*fx.Module, GraphSignature, *fx.StateTable) {
	g := module.Graph()
	state := module.State()
	signature.InputSpecs = slices.Clone(signature.InputSpecs)

	var placeholderVals []any
	for _, placeholder := range g.Placeholders() {
		placeholderVals = append(placeholderVals, placeholder.Val())
	}
	mode, err := fake.Detect(placeholderVals...)
	if err != nil {
		panic(err)
	}
	if mode == nil {
		exceptions.Panicf("lifting constants: no fake mode found in the values of the graph placeholders")
	}

	var firstUserInput *fx.Node
	userInputs := signature.UserInputs()
	for _, placeholder := range g.Placeholders() {
		if slices.Contains(userInputs, placeholder.Name()) {
			firstUserInput = placeholder
			break
		}
	}

	getAttrs := g.FindNodes(fx.OpGetAttr, "")
	entries := make(map[*fx.Node]fx.StateEntry, len(getAttrs))
	for _, node := range getAttrs {
		entry, found := state.Get(node.Target())
		if !found {
			exceptions.Panicf("get_attr node %q with target %q could not be found in the module state", node.Name(), node.Target())
		}
		entries[node] = entry
	}
	slices.SortStableFunc(getAttrs, func(a, b *fx.Node) int {
		return int(inputKindOf(entries[a].Kind)) - int(inputKindOf(entries[b].Kind))
	})

	lifted := fx.NewStateTable()
	nonUserInputIdx := 0
	var lastLifted *fx.Node
	for _, node := range getAttrs {
		entry := entries[node]
		var restore func()
		switch {
		case firstUserInput != nil:
			restore = g.InsertingBefore(firstUserInput)
		case lastLifted != nil:
			restore = g.InsertingAfter(lastLifted)
		default:
			restore = g.InsertingBefore(nil)
		}
		placeholder := g.Placeholder(node.Target())
		restore()
		lastLifted = placeholder
		for key, value := range node.Meta {
			placeholder.Meta[key] = value
		}
		placeholder.Meta[fx.MetaVal] = mode.FromTensor(entry.Value)
		node.ReplaceAllUsesWith(placeholder)
		g.EraseNode(node)

		kind := inputKindOf(entry.Kind)
		signature.insertInputSpec(nonUserInputIdx, InputSpec{
			Kind:   kind,
			Arg:    TensorArgument{Name: placeholder.Name()},
			Target: node.Target(),
		})
		nonUserInputIdx++
		lifted.Set(node.Target(), entry.Kind, entry.Value)
		klog.V(2).Infof("exporter: lifted %s %q as placeholder %q", kind, node.Target(), placeholder.Name())
	}

	g.EliminateDeadCode()
	mustLint(g, "after lifting constants")
	return module, signature, lifted
}
