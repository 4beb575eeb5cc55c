// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type forwardFunc func(inputs ...any) (any, error)

func (f forwardFunc) Forward(inputs ...any) (any, error) { return f(inputs...) }

func TestInterpreter(t *testing.T) {
	childGraph := NewGraph()
	a := childGraph.Placeholder("a")
	childGraph.Output(childGraph.CallFunction(testAdd, a, 1))
	child := NewModule("", childGraph)

	g := NewGraph()
	x := g.Placeholder("x")
	y := g.Placeholder("y")
	stage := g.CallModule("stage", x)
	double := g.CallModule("double", stage, y)
	first := g.CallFunction(testGetItem, double, 0)
	g.Output([]any{first, double})
	top := NewModule("top", g)
	top.AddSubmodule("stage", HostExecuted, child)
	top.AddSubmodule("double", Accelerated, NewOpaqueModule("", forwardFunc(func(inputs ...any) (any, error) {
		return []any{2 * inputs[0].(int), 2 * inputs[1].(int)}, nil
	})))

	var called []string
	it := &Interpreter{
		Module: top,
		BeforeCallModule: func(node *Node, child *Module, inputs []any) {
			called = append(called, node.Name())
			assert.Len(t, inputs, node.NumArgs())
		},
		AfterCallModule: func(node *Node, child *Module, result any) {
			called = append(called, child.Kind().String())
		},
	}
	result, err := it.Run(3, 5)
	require.NoError(t, err)
	assert.Equal(t, []any{8, []any{8, 10}}, result)
	assert.Equal(t, []string{"stage", "HostExecuted", "double", "Accelerated"}, called)

	_, err = Run(top, 1)
	require.ErrorContains(t, err, "takes 2 inputs")
}

func TestInterpreterErrors(t *testing.T) {
	g := NewGraph()
	x := g.Placeholder("x")
	g.Output(g.CallModule("failing", x))
	top := NewModule("top", g)
	top.AddSubmodule("failing", Accelerated, NewOpaqueModule("", forwardFunc(func(inputs ...any) (any, error) {
		return nil, errors.New("engine failure")
	})))
	_, err := Run(top, 1)
	require.ErrorContains(t, err, "engine failure")

	g2 := NewGraph()
	g2.Output(g2.GetAttr("missing"))
	_, err = Run(NewModule("m", g2))
	require.ErrorContains(t, err, `state entry "missing" not found`)

	_, err = Run(NewOpaqueModule("empty", nil))
	require.Error(t, err)
}
