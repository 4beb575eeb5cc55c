// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/fx"
	"k8s.io/klog/v2"
)

// InlineHostModules copies the graph of every HostExecuted submodule of module in place of its calls,
// and moves the submodule state entries to the top-level names used by the copied nodes.
//
// Submodule placeholders whose names match nodes of the parent graph are considered the same values
// (this happens when the host submodule is the first block and reads the parent inputs directly), and
// are not copied. The other placeholders are replaced by the corresponding call arguments.
//
// It panics on malformed partitions and on host submodules that call submodules themselves.
func InlineHostModules(module *fx.Module) {
	g := module.Graph()
	g.EliminateDeadCode()
	mustLint(g, "before inlining host submodules")
	for _, child := range module.Submodules() {
		if child.Kind() != fx.HostExecuted {
			continue
		}
		for _, call := range g.FindCallModule(child.Name()) {
			inlineHostModule(g, child, call)
		}
		mergeSubmoduleState(module, child)
		g.EliminateDeadCode()
		mustLint(g, "after inlining host submodule %q", child.Name())
	}
}

func inlineHostModule(g *fx.Graph, child *fx.Module, call *fx.Node) {
	name := child.Name()
	sub := child.Graph()
	if sub == nil {
		exceptions.Panicf("host submodule %q has no graph", name)
	}
	if nested := sub.FindNodes(fx.OpCallModule, ""); len(nested) > 0 {
		exceptions.Panicf("host submodule %q calls submodule %q: nested submodule hierarchies are not supported",
			name, nested[0].Target())
	}
	subPlaceholders := sub.Placeholders()
	if len(subPlaceholders) != call.NumArgs() {
		exceptions.Panicf("host submodule %q takes %d inputs, but it is called by %q with %d arguments",
			name, len(subPlaceholders), call.Name(), call.NumArgs())
	}

	subDuplicates, parentDuplicates := duplicateNodes(g, sub)
	if len(subDuplicates) != len(parentDuplicates) {
		exceptions.Panicf("host submodule %q: %d of its placeholders match parent nodes by name, but %d parent nodes match",
			name, len(subDuplicates), len(parentDuplicates))
	}
	valMap := make(map[*fx.Node]*fx.Node, sub.Len())
	for _, node := range subDuplicates {
		valMap[node] = g.NodeByName(node.Name())
	}

	restore := g.InsertingBefore(call)
	output := g.Copy(sub, valMap)
	restore()

	// Fresh copies of the placeholders are replaced by the call arguments.
	for ii, placeholder := range subPlaceholders {
		if slices.Contains(subDuplicates, placeholder) {
			continue
		}
		fresh := valMap[placeholder]
		fresh.ReplaceAllUsesWithValue(call.Arg(ii))
		g.EraseNode(fresh)
	}

	switch result := output.(type) {
	case *fx.Node:
		call.ReplaceAllUsesWith(result)
	case []any:
		for _, user := range call.Users() {
			idx := getItemIndex(user, call)
			if idx < 0 || idx >= len(result) {
				exceptions.Panicf("host submodule %q returns %d values, but node %q uses value #%d", name, len(result), user.Name(), idx)
			}
			user.ReplaceAllUsesWithValue(result[idx])
			g.EraseNode(user)
		}
	default:
		exceptions.Panicf("host submodule %q has no output", name)
	}
	g.EraseNode(call)
	klog.V(1).Infof("exporter: inlined host submodule %q (%d duplicate inputs)", name, len(subDuplicates))
}

// duplicateNodes returns the placeholders of sub whose names are used by nodes of g, and the nodes of g
// whose names are used by placeholders of sub, each in its own graph order. The two lists are only
// compared by length: pairs are matched by name.
func duplicateNodes(g, sub *fx.Graph) (subDuplicates, parentDuplicates []*fx.Node) {
	subPlaceholders := sub.Placeholders()
	for _, placeholder := range subPlaceholders {
		if g.NodeByName(placeholder.Name()) != nil {
			subDuplicates = append(subDuplicates, placeholder)
		}
	}
	for _, node := range g.Nodes() {
		if subNode := sub.NodeByName(node.Name()); subNode != nil && subNode.Op() == fx.OpPlaceholder {
			parentDuplicates = append(parentDuplicates, node)
		}
	}
	return
}

// mergeSubmoduleState renames the entries "<child>.<key>" of module's state to "<key>", for the keys
// that the child itself holds: the inlined nodes reference them by their unqualified names.
// Other entries are kept. It panics if the unqualified name is already used by a different entry.
func mergeSubmoduleState(module *fx.Module, child *fx.Module) {
	state := module.State()
	prefix := child.Name() + "."
	for _, key := range state.Names() {
		localKey, found := strings.CutPrefix(key, prefix)
		if !found || !child.State().Has(localKey) {
			continue
		}
		entry, _ := state.Get(key)
		if existing, found := state.Get(localKey); found {
			if existing != entry {
				exceptions.Panicf("inlining host submodule %q: state entry %q collides with existing entry %q",
					child.Name(), key, localKey)
			}
			state.Delete(key)
			continue
		}
		if err := state.Rename(key, localKey); err != nil {
			panic(err)
		}
	}
}

func mustLint(g *fx.Graph, context string, args ...any) {
	if err := g.Lint(); err != nil {
		exceptions.Panicf("graph lint failed %s: %+v", fmt.Sprintf(context, args...), err)
	}
}
