// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Len(t, shape0.Dimensions, 0)
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 24, shape1.Size())
	require.Equal(t, 4*24, int(shape1.Memory()))
	require.Equal(t, 2, shape1.Dim(-1))
	require.Equal(t, []int{6, 2, 1}, shape1.Strides())
	require.Panics(t, func() { _ = shape1.Dim(3) })
	require.Panics(t, func() { _ = Make(dtypes.Float32, -1) })

	require.True(t, shape1.Equal(shape1.Clone()))
	require.False(t, shape1.Equal(Make(dtypes.Float64, 4, 3, 2)))
	require.True(t, shape1.EqualDimensions(Make(dtypes.Float64, 4, 3, 2)))
}

func TestGobSerialize(t *testing.T) {
	shape := Make(dtypes.Int32, 2, 0, 5)
	buf := &bytes.Buffer{}
	require.NoError(t, shape.GobSerialize(gob.NewEncoder(buf)))
	got, err := GobDeserialize(gob.NewDecoder(buf))
	require.NoError(t, err)
	require.True(t, shape.Equal(got), "got %s, wanted %s", got, shape)
}
