// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/ops"
	"github.com/gomlx/trtexport/pkg/partitioning"
	"github.com/gomlx/trtexport/pkg/runtime"
	"k8s.io/klog/v2"
)

// InlineEngineModules replaces the call of every Accelerated submodule of module by a call to
// runtime.ExecuteEngine, whose value ("val") is built from outputShapes (see partitioning.RunShapeAnalysis).
//
// An engine with one output is followed by a getitem(engine, 0) node, which replaces the uses of the
// submodule call. For engines with multiple outputs, the uses (getitem nodes created by the partitioner)
// are redirected to the engine node, and their values are set from the corresponding output shape.
//
// It panics on malformed partitions: a submodule not called exactly once, a call without arguments,
// missing output shapes or an Accelerated submodule that is not an engine module.
func InlineEngineModules(module *fx.Module, outputShapes partitioning.SubgraphShapes) {
	for _, child := range module.Submodules() {
		if child.Kind() != fx.Accelerated {
			continue
		}
		inlineEngineModule(module.Graph(), child, outputShapes)
	}
}

func inlineEngineModule(g *fx.Graph, child *fx.Module, outputShapes partitioning.SubgraphShapes) {
	name := child.Name()
	trtModule, ok := child.Impl().(*runtime.TRTModule)
	if !ok {
		exceptions.Panicf("accelerated submodule %q is not an engine module (implementation is %T)", name, child.Impl())
	}
	if trtModule.Engine() == nil {
		exceptions.Panicf("accelerated submodule %q has no engine", name)
	}
	calls := g.FindCallModule(name)
	if len(calls) != 1 {
		exceptions.Panicf("accelerated submodule %q must be called exactly once, found %d calls", name, len(calls))
	}
	call := calls[0]
	if call.NumArgs() == 0 {
		exceptions.Panicf("call to accelerated submodule %q has no arguments", name)
	}
	shapesOf := outputShapes[name]
	if len(shapesOf) == 0 {
		exceptions.Panicf("no output shapes for accelerated submodule %q", name)
	}

	restore := g.InsertingBefore(call)
	engineNode := g.CallFunction(runtime.ExecuteEngine, call.Args(), trtModule.Engine())
	restore()
	vals := make([]*fake.Tensor, len(shapesOf))
	for ii, shape := range shapesOf {
		vals[ii] = fake.EmptyStrided(shape, fake.Ones(shape.Rank()))
	}
	engineNode.Meta[fx.MetaVal] = vals

	if len(vals) == 1 {
		restore = g.InsertingAfter(engineNode)
		output := g.CallFunction(ops.GetItem, engineNode, 0)
		restore()
		output.Meta[fx.MetaVal] = vals[0]
		call.ReplaceAllUsesWith(output)
	} else {
		for _, user := range call.ReplaceAllUsesWith(engineNode) {
			idx := getItemIndex(user, engineNode)
			if idx < 0 || idx >= len(vals) {
				exceptions.Panicf("engine %q has %d outputs, but node %q uses output #%d", name, len(vals), user.Name(), idx)
			}
			user.Meta[fx.MetaVal] = vals[idx]
		}
	}
	g.EraseNode(call)
	klog.V(1).Infof("exporter: inlined engine %q with %d output(s) as node %q", name, len(vals), engineNode.Name())
}

// getItemIndex returns the index of a getitem(tuple, index) node reading from tuple. It panics if user
// is not such a node.
func getItemIndex(user, tuple *fx.Node) int {
	if user.Function() != ops.GetItem || user.NumArgs() != 2 || user.Arg(0) != tuple {
		exceptions.Panicf("node %q uses the multiple outputs of %q, but it is not a getitem node", user.Name(), tuple.Name())
	}
	idx, ok := user.Arg(1).(int)
	if !ok {
		exceptions.Panicf("getitem node %q has a non-integer index %v", user.Name(), user.Arg(1))
	}
	return idx
}
