// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"testing"

	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestBinary(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)
	y := tensors.FromFlatDataAndDimensions([]float32{4, 5, 6}, 3)

	sum := must.M1(Add.Eval([]any{x, y})).(*tensors.Tensor)
	assert.Equal(t, []float32{5, 7, 9}, tensors.CopyFlatData[float32](sum))

	diff := must.M1(Sub.Eval([]any{x, 1})).(*tensors.Tensor)
	assert.Equal(t, []float32{0, 1, 2}, tensors.CopyFlatData[float32](diff))

	prod := must.M1(Mul.Eval([]any{2.0, x})).(*tensors.Tensor)
	assert.Equal(t, []float32{2, 4, 6}, tensors.CopyFlatData[float32](prod))

	quot := must.M1(Div.Eval([]any{y, tensors.FromScalar(float32(2))})).(*tensors.Tensor)
	assert.Equal(t, []float32{2, 2.5, 3}, tensors.CopyFlatData[float32](quot))

	ints := tensors.FromFlatDataAndDimensions([]int64{7, -8}, 2)
	intQuot := must.M1(Div.Eval([]any{ints, 2})).(*tensors.Tensor)
	assert.Equal(t, []int64{3, -4}, tensors.CopyFlatData[int64](intQuot))
	_, err := Div.Eval([]any{ints, 0})
	require.ErrorContains(t, err, "division by zero")

	_, err = Add.Eval([]any{x, ints})
	require.ErrorContains(t, err, "dtype mismatch")
	_, err = Add.Eval([]any{x, tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)})
	require.ErrorContains(t, err, "incompatible shapes")
	_, err = Add.Eval([]any{x})
	require.Error(t, err)

	assert.Equal(t, 7, must.M1(Add.Eval([]any{3, 4})))
	assert.Equal(t, 1.5, must.M1(Div.Eval([]any{3, 2.0})))
}

func TestFloat16(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)}, 2)
	result := must.M1(Mul.Eval([]any{x, 2})).(*tensors.Tensor)
	got := tensors.CopyFlatData[float16.Float16](result)
	assert.Equal(t, float32(3), got[0].Float32())
	assert.Equal(t, float32(-4), got[1].Float32())

	neg := must.M1(Neg.Eval([]any{x})).(*tensors.Tensor)
	assert.Equal(t, float32(-1.5), tensors.CopyFlatData[float16.Float16](neg)[0].Float32())
}

func TestNeg(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]int32{1, -2}, 2)
	neg := must.M1(Neg.Eval([]any{x})).(*tensors.Tensor)
	assert.Equal(t, []int32{-1, 2}, tensors.CopyFlatData[int32](neg))
	assert.Equal(t, -2.5, must.M1(Neg.Eval([]any{2.5})))
}

func TestGetItem(t *testing.T) {
	a, b := tensors.FromScalar(int32(1)), tensors.FromScalar(int32(2))
	assert.Same(t, b, must.M1(GetItem.Eval([]any{[]any{a, b}, 1})))
	assert.Same(t, b, must.M1(GetItem.Eval([]any{[]*tensors.Tensor{a, b}, -1})))
	_, err := GetItem.Eval([]any{[]any{a}, 3})
	require.ErrorContains(t, err, "out of range")
	_, err = GetItem.Eval([]any{a, 0})
	require.Error(t, err)
}

func TestRegistered(t *testing.T) {
	for _, fn := range []*fx.Function{Add, Sub, Mul, Div, Neg, GetItem} {
		found, ok := fx.LookupFunction(fn.Name)
		require.True(t, ok, fn.Name)
		assert.Same(t, fn, found)
	}
	assert.Equal(t, "getitem", GetItem.NodeName())
}

func TestGraphEvaluation(t *testing.T) {
	g := fx.NewGraph()
	x := g.Placeholder("x")
	g.Output(g.CallFunction(Mul, g.CallFunction(Add, x, 1), 2))
	result := must.M1(fx.Run(fx.NewModule("m", g), tensors.FromFlatDataAndDimensions([]float32{3}, 1)))
	assert.Equal(t, []float32{8}, tensors.CopyFlatData[float32](result.(*tensors.Tensor)))
}
