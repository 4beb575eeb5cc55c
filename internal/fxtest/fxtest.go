// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fxtest builds partitioned modules used as fixtures by tests of several packages.
//
// Accelerated submodules are engines of the host runtime (hostrt), so the fixtures can be executed.
package fxtest

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/ops"
	"github.com/gomlx/trtexport/pkg/runtime"
	"github.com/gomlx/trtexport/pkg/runtime/hostrt"
	"github.com/janpfeifer/must"
)

// Engine builds an Accelerated submodule from graph g (and its state, set by the optional setState),
// executed by the host runtime.
func Engine(name string, g *fx.Graph, setState func(m *fx.Module)) *fx.Module {
	m := fx.NewModule(name, g)
	if setState != nil {
		setState(m)
	}
	trt := must.M1(hostrt.BuildEngine(m, name, nil, nil, nil))
	return runtime.NewEngineModule(trt)
}

// TwoStage returns a module with a host-executed stage "stage_a" computing x+1, followed by an
// accelerated stage "stage_b" computing 2*a. For x=[3] it returns [8].
//
// The placeholder of "stage_a" is named "x", like the input of the parent graph that it receives.
func TwoStage() *fx.Module {
	subA := fx.NewGraph()
	x := subA.Placeholder("x")
	subA.Output(subA.CallFunction(ops.Add, x, 1))
	stageA := fx.NewModule("stage_a", subA)

	subB := fx.NewGraph()
	a := subB.Placeholder("a")
	subB.Output(subB.CallFunction(ops.Mul, a, 2))
	stageB := Engine("stage_b", subB, nil)

	g := fx.NewGraph()
	x = g.Placeholder("x")
	callA := g.CallModule("stage_a", x)
	callB := g.CallModule("stage_b", callA)
	g.Output(callB)
	m := fx.NewModule("two_stage", g)
	m.AddSubmodule("stage_a", fx.HostExecuted, stageA)
	m.AddSubmodule("stage_b", fx.Accelerated, stageB)
	return m
}

// TwoStageInputs returns the sample inputs of TwoStage: x=[3].
func TwoStageInputs() []*tensors.Tensor {
	return []*tensors.Tensor{tensors.FromFlatDataAndDimensions([]float32{3}, 1)}
}

// MultiOutputEngine returns a module calling one accelerated submodule "engine" with two outputs:
// 2*x, shaped (2,3), and y+1, shaped (4,). Its outputs are read with getitem nodes.
func MultiOutputEngine() *fx.Module {
	sub := fx.NewGraph()
	x := sub.Placeholder("x")
	y := sub.Placeholder("y")
	sub.Output([]any{sub.CallFunction(ops.Mul, x, 2), sub.CallFunction(ops.Add, y, 1)})
	engine := Engine("engine", sub, nil)

	g := fx.NewGraph()
	x = g.Placeholder("x")
	y = g.Placeholder("y")
	call := g.CallModule("engine", x, y)
	first := g.CallFunction(ops.GetItem, call, 0)
	second := g.CallFunction(ops.GetItem, call, 1)
	g.Output([]any{first, second})
	m := fx.NewModule("multi_output", g)
	m.AddSubmodule("engine", fx.Accelerated, engine)
	return m
}

// MultiOutputEngineInputs returns sample inputs of MultiOutputEngine, shaped (2,3) and (4,).
func MultiOutputEngineInputs() []*tensors.Tensor {
	return []*tensors.Tensor{
		tensors.FromFlatDataAndDimensions([]float32{0, 1, 2, 3, 4, 5}, 2, 3),
		tensors.FromFlatDataAndDimensions([]float32{0, 1, 2, 3}, 4),
	}
}

// WithState returns a module computing ((x*weight + running_mean) - offset) * scale, where weight is a
// parameter, running_mean a buffer, offset a constant, and scale a parameter of the host-executed
// submodule "stage". The constant is read first, so graph order differs from the lifted inputs order.
//
// For x=[1, 2] it returns [25, 45].
func WithState() *fx.Module {
	sub := fx.NewGraph()
	h := sub.Placeholder("h")
	sub.Output(sub.CallFunction(ops.Mul, h, sub.GetAttr("scale")))
	stage := fx.NewModule("stage", sub)
	stage.RegisterState("scale", fx.Parameter, tensors.FromScalar(float32(10)))

	g := fx.NewGraph()
	x := g.Placeholder("x")
	offset := g.GetAttr("offset")
	runningMean := g.GetAttr("running_mean")
	weight := g.GetAttr("weight")
	y := g.CallFunction(ops.Mul, x, weight)
	y = g.CallFunction(ops.Add, y, runningMean)
	y = g.CallFunction(ops.Sub, y, offset)
	g.Output(g.CallModule("stage", y))
	m := fx.NewModule("with_state", g)
	m.RegisterState("weight", fx.Parameter, tensors.FromFlatDataAndDimensions([]float32{2, 2}, 2))
	m.RegisterState("running_mean", fx.Buffer, tensors.FromFlatDataAndDimensions([]float32{1, 1}, 2))
	m.RegisterState("offset", fx.Constant, tensors.FromScalar(float32(0.5)))
	m.AddSubmodule("stage", fx.HostExecuted, stage)
	return m
}

// WithStateInputs returns the sample inputs of WithState: x=[1, 2].
func WithStateInputs() []*tensors.Tensor {
	return []*tensors.Tensor{tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)}
}

// Float32 returns the flat values of a float32 tensor.
func Float32(t *tensors.Tensor) []float32 {
	if t.DType() != dtypes.Float32 {
		panic("fxtest.Float32: tensor is " + t.DType().String())
	}
	return tensors.CopyFlatData[float32](t)
}
