// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/trtexport/internal/fxtest"
	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/core/shapes"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/ops"
	"github.com/gomlx/trtexport/pkg/partitioning"
	"github.com/gomlx/trtexport/pkg/runtime"
	"github.com/gomlx/trtexport/pkg/settings"
	"github.com/google/go-cmp/cmp"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeNames(g *fx.Graph) []string {
	var names []string
	for _, node := range g.Nodes() {
		names = append(names, node.Name())
	}
	return names
}

func countNodes(g *fx.Graph, op fx.Op, target string) int {
	return len(g.FindNodes(op, target))
}

func TestParseOutputFormat(t *testing.T) {
	for name, want := range map[string]OutputFormat{
		"exported_program": ExportedProgramFormat,
		"ep":               ExportedProgramFormat,
		"torchscript":      TorchScriptFormat,
		"ts":               TorchScriptFormat,
		"graph_module":     GraphModuleFormat,
		"fx":               GraphModuleFormat,
	} {
		got, err := ParseOutputFormat(name)
		require.NoError(t, err, "format %q", name)
		assert.Equal(t, want, got, "format %q", name)
	}
	_, err := ParseOutputFormat("onnx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"onnx"`)
	assert.Contains(t, err.Error(), "exported_program (or) ep | torchscript (or) ts | graph_module (or) fx")

	assert.Equal(t, "graph_module", GraphModuleFormat.String())
	assert.Equal(t, []string{"USER_INPUT", "PARAMETER", "BUFFER", "CONSTANT_TENSOR"}, InputKindStrings())
	assert.Equal(t, "USER_OUTPUT", UserOutput.String())
}

func TestEliminateDeadCodeIdempotent(t *testing.T) {
	m := fxtest.WithState()
	g := m.Graph()
	restore := g.InsertingBefore(g.OutputNode())
	unused := g.CallFunction(ops.Neg, g.NodeByName("x"))
	g.CallFunction(ops.Add, unused, 1)
	restore()

	g.EliminateDeadCode()
	require.NoError(t, g.Lint())
	once := nodeNames(g)
	assert.NotContains(t, once, "neg")

	changed := g.EliminateDeadCode()
	require.NoError(t, g.Lint())
	assert.False(t, changed)
	if diff := cmp.Diff(once, nodeNames(g)); diff != "" {
		t.Errorf("second dead code elimination changed the graph (-once +twice):\n%s", diff)
	}
}

func TestInlineEngineModulesSingleOutput(t *testing.T) {
	m := fxtest.TwoStage()
	g := m.Graph()
	_, outputShapes, err := partitioning.RunShapeAnalysis(m, fxtest.TwoStageInputs()...)
	require.NoError(t, err)

	numNodes := g.Len()
	numCalls := countNodes(g, fx.OpCallModule, "stage_b")
	numEngines := countNodes(g, fx.OpCallFunction, runtime.ExecuteEngine.Name)
	numGetItems := countNodes(g, fx.OpCallFunction, ops.GetItem.Name)
	InlineEngineModules(m, outputShapes)
	require.NoError(t, g.Lint())

	assert.Equal(t, numCalls-1, countNodes(g, fx.OpCallModule, "stage_b"))
	assert.Equal(t, numEngines+1, countNodes(g, fx.OpCallFunction, runtime.ExecuteEngine.Name))
	assert.Equal(t, numGetItems+1, countNodes(g, fx.OpCallFunction, ops.GetItem.Name))
	assert.Equal(t, numNodes+1, g.Len())

	engineNode := g.FindNodes(fx.OpCallFunction, runtime.ExecuteEngine.Name)[0]
	require.Equal(t, 1, engineNode.NumUsers())
	getItem := engineNode.Users()[0]
	assert.Equal(t, ops.GetItem, getItem.Function())
	assert.Equal(t, 0, getItem.Arg(1))
	assert.Equal(t, getItem, g.OutputNode().Arg(0))
	val := getItem.Val().(*fake.Tensor)
	assert.True(t, shapes.Make(dtypes.Float32, 1).Equal(val.Shape()))
}

func TestInlineEngineModulesMultiOutput(t *testing.T) {
	m := fxtest.MultiOutputEngine()
	g := m.Graph()
	_, outputShapes, err := partitioning.RunShapeAnalysis(m, fxtest.MultiOutputEngineInputs()...)
	require.NoError(t, err)
	InlineEngineModules(m, outputShapes)
	require.NoError(t, g.Lint())

	engines := g.FindNodes(fx.OpCallFunction, runtime.ExecuteEngine.Name)
	require.Len(t, engines, 1)
	vals := engines[0].Val().([]*fake.Tensor)
	require.Len(t, vals, 2)
	assert.Equal(t, []int{2, 3}, vals[0].Shape().Dimensions)
	assert.Equal(t, []int{4}, vals[1].Shape().Dimensions)
	assert.Equal(t, []int{1, 1}, vals[0].Strides())

	getItems := g.FindNodes(fx.OpCallFunction, ops.GetItem.Name)
	require.Len(t, getItems, 2)
	for ii, getItem := range getItems {
		assert.Equal(t, engines[0], getItem.Arg(0))
		assert.Equal(t, ii, getItem.Arg(1))
	}
	assert.Equal(t, []int{2, 3}, getItems[0].Val().(*fake.Tensor).Shape().Dimensions)
	assert.Equal(t, []int{4}, getItems[1].Val().(*fake.Tensor).Shape().Dimensions)
	assert.Zero(t, countNodes(g, fx.OpCallModule, ""))
}

func TestInlineEngineModulesErrors(t *testing.T) {
	m := fxtest.TwoStage()
	_, outputShapes, err := partitioning.RunShapeAnalysis(m, fxtest.TwoStageInputs()...)
	require.NoError(t, err)
	delete(outputShapes, "stage_b")
	require.Panics(t, func() { InlineEngineModules(m, outputShapes) })

	// Engine called twice.
	m = fxtest.TwoStage()
	g := m.Graph()
	restore := g.InsertingBefore(g.OutputNode())
	g.CallModule("stage_b", g.NodeByName("x"))
	restore()
	_, outputShapes, err = partitioning.RunShapeAnalysis(m, fxtest.TwoStageInputs()...)
	require.NoError(t, err)
	require.Panics(t, func() { InlineEngineModules(m, outputShapes) })
}

func TestInlineHostModulesDuplicateBoundary(t *testing.T) {
	m := fxtest.TwoStage()
	g := m.Graph()
	numPlaceholders := len(g.Placeholders())
	InlineHostModules(m)
	require.NoError(t, g.Lint())

	assert.Len(t, g.Placeholders(), numPlaceholders)
	assert.Zero(t, countNodes(g, fx.OpCallModule, "stage_a"))
	add := g.FindNodes(fx.OpCallFunction, ops.Add.Name)
	require.Len(t, add, 1)
	assert.Equal(t, g.NodeByName("x"), add[0].Arg(0))
	callB := g.FindCallModule("stage_b")
	require.Len(t, callB, 1)
	assert.Equal(t, add[0], callB[0].Arg(0))
}

func TestInlineHostModulesDuplicatesOutOfOrder(t *testing.T) {
	// The submodule placeholders [y, x] are both named after parent placeholders, declared as [x, y].
	sub := fx.NewGraph()
	subY := sub.Placeholder("y")
	subX := sub.Placeholder("x")
	sub.Output(sub.CallFunction(ops.Sub, subY, subX))
	g := fx.NewGraph()
	x := g.Placeholder("x")
	y := g.Placeholder("y")
	g.Output(g.CallModule("stage", y, x))
	m := fx.NewModule("reordered", g)
	m.AddSubmodule("stage", fx.HostExecuted, fx.NewModule("stage", sub))

	inputs := []any{
		tensors.FromFlatDataAndDimensions([]float32{1}, 1),
		tensors.FromFlatDataAndDimensions([]float32{10}, 1),
	}
	before := must.M1(fx.Run(m, inputs...)).(*tensors.Tensor)
	require.Equal(t, []float32{9}, fxtest.Float32(before))

	InlineHostModules(m)
	require.NoError(t, g.Lint())
	assert.Len(t, g.Placeholders(), 2)
	subNodes := g.FindNodes(fx.OpCallFunction, ops.Sub.Name)
	require.Len(t, subNodes, 1)
	assert.Equal(t, y, subNodes[0].Arg(0))
	assert.Equal(t, x, subNodes[0].Arg(1))

	after := must.M1(fx.Run(m, inputs...)).(*tensors.Tensor)
	assert.Equal(t, fxtest.Float32(before), fxtest.Float32(after))
}

func TestInlineHostModulesState(t *testing.T) {
	m := fxtest.WithState()
	InlineHostModules(m)
	g := m.Graph()
	require.NoError(t, g.Lint())

	scale := g.FindNodes(fx.OpGetAttr, "scale")
	require.Len(t, scale, 1)
	assert.True(t, m.State().Has("scale"))
	assert.False(t, m.State().Has("stage.scale"))

	// Merging a child entry colliding with a different top-level entry fails.
	m = fxtest.WithState()
	m.RegisterState("scale", fx.Parameter, tensors.FromScalar(float32(1)))
	require.Panics(t, func() { InlineHostModules(m) })
}

func TestInlineHostModulesTupleOutput(t *testing.T) {
	sub := fx.NewGraph()
	a := sub.Placeholder("a")
	sub.Output([]any{sub.CallFunction(ops.Neg, a), sub.CallFunction(ops.Mul, a, 3)})
	g := fx.NewGraph()
	x := g.Placeholder("x")
	call := g.CallModule("pair", x)
	first := g.CallFunction(ops.GetItem, call, 0)
	second := g.CallFunction(ops.GetItem, call, 1)
	g.Output([]any{second, first})
	m := fx.NewModule("tuple", g)
	m.AddSubmodule("pair", fx.HostExecuted, fx.NewModule("pair", sub))

	InlineHostModules(m)
	require.NoError(t, g.Lint())
	assert.Equal(t, []string{"x", "neg", "mul", "output"}, nodeNames(g))
	outputs := must.M1(fx.Run(m, tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2))).([]any)
	assert.Equal(t, []float32{3, 6}, fxtest.Float32(outputs[0].(*tensors.Tensor)))
	assert.Equal(t, []float32{-1, -2}, fxtest.Float32(outputs[1].(*tensors.Tensor)))
}

func TestInlineHostModulesNested(t *testing.T) {
	inner := fx.NewGraph()
	inner.Output(inner.CallFunction(ops.Neg, inner.Placeholder("b")))
	sub := fx.NewGraph()
	sub.Output(sub.CallModule("inner", sub.Placeholder("a")))
	child := fx.NewModule("outer", sub)
	child.AddSubmodule("inner", fx.HostExecuted, fx.NewModule("inner", inner))
	g := fx.NewGraph()
	g.Output(g.CallModule("outer", g.Placeholder("x")))
	m := fx.NewModule("nested", g)
	m.AddSubmodule("outer", fx.HostExecuted, child)

	require.PanicsWithError(t, `host submodule "outer" calls submodule "inner": nested submodule hierarchies are not supported`,
		func() { InlineHostModules(m) })
}

func TestLiftOrdering(t *testing.T) {
	m := fxtest.WithState()
	require.NoError(t, Transform(m, fxtest.WithStateInputs()...))
	ep, err := CreateExportedProgram(m)
	require.NoError(t, err)

	sig := ep.Signature()
	var kinds []InputKind
	var targets []string
	for _, spec := range sig.InputSpecs {
		kinds = append(kinds, spec.Kind)
		targets = append(targets, spec.Target)
	}
	assert.Equal(t, []InputKind{Parameter, Parameter, Buffer, ConstantTensor, UserInput}, kinds)
	if diff := cmp.Diff([]string{"weight", "scale", "running_mean", "offset", "x"}, targets); diff != "" {
		t.Errorf("unexpected input targets (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"x"}, sig.UserInputs())

	// Placeholders are in signature order, and there are no get_attr nodes left.
	g := ep.Graph()
	placeholders := g.Placeholders()
	require.Len(t, placeholders, len(sig.InputSpecs))
	for ii, placeholder := range placeholders {
		assert.Equal(t, sig.InputSpecs[ii].Arg.Name, placeholder.Name())
		assert.NotNil(t, placeholder.Val())
	}
	assert.Zero(t, countNodes(g, fx.OpGetAttr, ""))

	// A single fake mode is shared by all placeholders.
	var vals []any
	for _, placeholder := range placeholders {
		vals = append(vals, placeholder.Val())
	}
	mode, err := fake.Detect(vals...)
	require.NoError(t, err)
	require.NotNil(t, mode)

	assert.Equal(t, 4, ep.State().Len())
	entry, found := ep.State().Get("weight")
	require.True(t, found)
	assert.Equal(t, fx.Parameter, entry.Kind)

	outputs, err := ep.Call(fxtest.WithStateInputs()...)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, []float32{25, 45}, fxtest.Float32(outputs[0]))
}

func TestLiftErrors(t *testing.T) {
	// Missing state entry.
	g := fx.NewGraph()
	x := g.Placeholder("x")
	x.Meta[fx.MetaVal] = fake.NewMode().FromShape(shapes.Make(dtypes.Float32, 2))
	g.Output(g.CallFunction(ops.Add, x, g.GetAttr("missing")))
	m := fx.NewModule("broken", g)
	signature := GraphSignature{InputSpecs: []InputSpec{{Kind: UserInput, Arg: TensorArgument{Name: "x"}}}}
	require.PanicsWithError(t, `get_attr node "missing" with target "missing" could not be found in the module state`,
		func() { Lift(m, signature) })

	// No fake mode.
	g = fx.NewGraph()
	g.Output(g.CallFunction(ops.Neg, g.Placeholder("x")))
	m = fx.NewModule("no_mode", g)
	require.Panics(t, func() { Lift(m, signature) })
}

func TestCreateExportedProgramErrors(t *testing.T) {
	g := fx.NewGraph()
	g.Placeholder("x")
	_, err := CreateExportedProgram(fx.NewModule("no_output", g))
	require.ErrorContains(t, err, "has no output node")
}

func TestTwoStageScenario(t *testing.T) {
	m := fxtest.TwoStage()
	inputs := fxtest.TwoStageInputs()
	_, outputShapes, err := partitioning.RunShapeAnalysis(m, inputs...)
	require.NoError(t, err)
	require.Len(t, outputShapes["stage_b"], 1)
	assert.Equal(t, []int{1}, outputShapes["stage_b"][0].Dimensions)

	artifact, err := Export(m, inputs, ExportedProgramFormat)
	require.NoError(t, err)
	ep := artifact.(*ExportedProgram)
	g := ep.Graph()
	assert.Equal(t, 1, countNodes(g, fx.OpCallFunction, runtime.ExecuteEngine.Name))
	assert.Zero(t, countNodes(g, fx.OpCallModule, ""))
	assert.Empty(t, ep.Module().Submodules())
	assert.Len(t, g.Placeholders(), 1)

	outputs, err := ep.Call(inputs...)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, []float32{8}, fxtest.Float32(outputs[0]))
	assert.Contains(t, ep.Summary(), "stage_b_engine")
}

func TestExportFormats(t *testing.T) {
	m := fxtest.TwoStage()
	artifact, err := Export(m, fxtest.TwoStageInputs(), GraphModuleFormat)
	require.NoError(t, err)
	assert.Equal(t, GraphModuleFormat, artifact.Format())
	assert.Same(t, m, artifact.(GraphModule).Module)

	artifact, err = Export(m, fxtest.TwoStageInputs(), TorchScriptFormat)
	require.NoError(t, err)
	traced := artifact.(*TracedModule)
	assert.Equal(t, []int{1}, traced.OutputShapes()[0].Dimensions)
	outputs, err := traced.Call(tensors.FromFlatDataAndDimensions([]float32{0}, 1))
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, fxtest.Float32(outputs[0]))
	_, err = traced.Call(tensors.FromFlatDataAndDimensions([]float32{0, 1}, 2))
	require.ErrorContains(t, err, "traced with shape")

	s := settings.Default()
	s.OutputFormat = "pt2"
	_, err = ExportWithSettings(m, fxtest.TwoStageInputs(), s)
	require.ErrorContains(t, err, "invalid output format")
	s.OutputFormat = "ep"
	s.Debug = true
	artifact, err = ExportWithSettings(m, fxtest.TwoStageInputs(), s)
	require.NoError(t, err)
	assert.Equal(t, ExportedProgramFormat, artifact.Format())
}

func TestTransformErrors(t *testing.T) {
	m := fxtest.TwoStage()
	err := Transform(m)
	require.ErrorContains(t, err, "takes 1 inputs")

	// Host submodule with the wrong number of arguments.
	sub := fx.NewGraph()
	sub.Output(sub.CallFunction(ops.Add, sub.Placeholder("a"), sub.Placeholder("b")))
	g := fx.NewGraph()
	g.Output(g.CallModule("stage", g.Placeholder("x")))
	m = fx.NewModule("arity", g)
	m.AddSubmodule("stage", fx.HostExecuted, fx.NewModule("stage", sub))
	require.Panics(t, func() { InlineHostModules(m) })
}
