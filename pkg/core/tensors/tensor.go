// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implement a host-side `Tensor`, a multidimensional array stored as a flat Go slice.
//
// Tensors are the concrete values flowing through the graph interpreter, held in a module's state table
// (parameters, buffers, constants), and handed to engines for execution.
//
// There are various ways to construct a Tensor:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalar[T Supported](value T): a scalar (rank 0) tensor.
//
//   - FromFlatDataAndDimensions[T Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
//
// Float16 support uses github.com/x448/float16.
package tensors

import (
	"encoding/gob"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/trtexport/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Supported lists the Go types that can back a Tensor.
type Supported interface {
	float32 | float64 | int32 | int64 | uint8 | float16.Float16
}

// Tensor represents a multidimensional array, defined by its shape (a dtypes.DType and its axes' dimensions)
// and its content, stored as a flat (1D) slice of the Go type matching the DType.
//
// Tensors are treated as immutable values once built: graph passes share them between state tables
// without copying.
type Tensor struct {
	shape shapes.Shape
	flat  any
}

// DTypeFor returns the DType for the Go type T.
func DTypeFor[T Supported]() dtypes.DType {
	var zero T
	return dtypeOf(zero)
}

func dtypeOf(value any) dtypes.DType {
	switch value.(type) {
	case float32, []float32:
		return dtypes.Float32
	case float64, []float64:
		return dtypes.Float64
	case int32, []int32:
		return dtypes.Int32
	case int64, []int64:
		return dtypes.Int64
	case uint8, []uint8:
		return dtypes.Uint8
	case float16.Float16, []float16.Float16:
		return dtypes.Float16
	}
	return dtypes.InvalidDType
}

// makeFlat allocates a zero-initialized flat slice for dtype.
func makeFlat(dtype dtypes.DType, size int) (any, error) {
	switch dtype {
	case dtypes.Float32:
		return make([]float32, size), nil
	case dtypes.Float64:
		return make([]float64, size), nil
	case dtypes.Int32:
		return make([]int32, size), nil
	case dtypes.Int64:
		return make([]int64, size), nil
	case dtypes.Uint8:
		return make([]uint8, size), nil
	case dtypes.Float16:
		return make([]float16.Float16, size), nil
	}
	return nil, errors.Errorf("dtype %s not supported by host tensors", dtype)
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) *Tensor {
	flat, err := makeFlat(shape.DType, shape.Size())
	if err != nil {
		panic(err)
	}
	return &Tensor{shape: shape.Clone(), flat: flat}
}

// FromScalar creates a rank-0 tensor with the given scalar.
// The `DType` is inferred from the value.
func FromScalar[T Supported](value T) *Tensor {
	return FromFlatDataAndDimensions([]T{value})
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
// The `DType` is inferred from the `data` type.
//
// It panics if the size of data is wrong for the shape.
func FromFlatDataAndDimensions[T Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(DTypeFor[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	return &Tensor{shape: shape, flat: slices.Clone(data)}
}

// FromAnyScalar converts a Go scalar (int, float, or an already supported type) to a rank-0 Tensor.
// Plain `int` becomes Int64 and plain `float64` stays Float64.
func FromAnyScalar(value any) (*Tensor, error) {
	switch v := value.(type) {
	case *Tensor:
		return v, nil
	case int:
		return FromScalar(int64(v)), nil
	case int32:
		return FromScalar(v), nil
	case int64:
		return FromScalar(v), nil
	case uint8:
		return FromScalar(v), nil
	case float32:
		return FromScalar(v), nil
	case float64:
		return FromScalar(v), nil
	case float16.Float16:
		return FromScalar(v), nil
	case bool:
		if v {
			return FromScalar(uint8(1)), nil
		}
		return FromScalar(uint8(0)), nil
	}
	return nil, errors.Errorf("cannot convert value of type %T to a tensor", value)
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor's elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory used by the tensor data, in bytes.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Flat returns the underlying flat slice (e.g. `[]float32`). It must not be mutated.
func (t *Tensor) Flat() any { return t.flat }

// CopyFlatData returns a copy of the flat data of the tensor.
//
// It panics if T doesn't match the tensor DType.
func CopyFlatData[T Supported](t *Tensor) []T {
	flat, ok := t.flat.([]T)
	if !ok {
		exceptions.Panicf("CopyFlatData[%T]: tensor has dtype %s", *new(T), t.shape.DType)
	}
	return slices.Clone(flat)
}

// ToScalar returns the scalar value of a rank-0 (or size 1) tensor.
func ToScalar[T Supported](t *Tensor) T {
	if t.Size() != 1 {
		exceptions.Panicf("ToScalar: tensor %s is not a scalar", t.shape)
	}
	return CopyFlatData[T](t)[0]
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	flatV := reflect.ValueOf(t.flat)
	newFlat := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(newFlat, flatV)
	return &Tensor{shape: t.shape.Clone(), flat: newFlat.Interface()}
}

// Value returns a multidimensional slice (or a scalar for rank 0) with a copy of the tensor values.
func (t *Tensor) Value() any {
	flatV := reflect.ValueOf(t.flat)
	if t.Rank() == 0 {
		return flatV.Index(0).Interface()
	}
	value, _ := buildSlices(flatV, t.shape.Dimensions, 0)
	return value.Interface()
}

// buildSlices recursively creates the multidimensional slice for dims, consuming flat values starting at pos.
func buildSlices(flatV reflect.Value, dims []int, pos int) (reflect.Value, int) {
	if len(dims) == 1 {
		slice := reflect.MakeSlice(flatV.Type(), dims[0], dims[0])
		reflect.Copy(slice, flatV.Slice(pos, pos+dims[0]))
		return slice, pos + dims[0]
	}
	sliceType := flatV.Type()
	for range len(dims) - 1 {
		sliceType = reflect.SliceOf(sliceType)
	}
	slice := reflect.MakeSlice(sliceType, dims[0], dims[0])
	for ii := range dims[0] {
		var sub reflect.Value
		sub, pos = buildSlices(flatV, dims[1:], pos)
		slice.Index(ii).Set(sub)
	}
	return slice, pos
}

// Equal checks weather t == otherTensor: same shape and same values.
// If they are the same pointer, they are considered equal.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	if t == otherTensor {
		return true
	}
	if t == nil || otherTensor == nil {
		return false
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	return reflect.DeepEqual(t.flat, otherTensor.flat)
}

// MaxSizeToPrint is the largest tensor that String prints all values for.
const MaxSizeToPrint = 16

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	if t == nil {
		return "Tensor(nil)"
	}
	if t.Size() > MaxSizeToPrint {
		return fmt.Sprintf("%s(...%d values...)", t.shape, t.Size())
	}
	parts := make([]string, 0, t.Size())
	flatV := reflect.ValueOf(t.flat)
	for ii := range flatV.Len() {
		parts = append(parts, fmt.Sprintf("%v", flatV.Index(ii).Interface()))
	}
	return fmt.Sprintf("%s{%s}", t.shape, strings.Join(parts, ", "))
}

// GobSerialize Tensor in binary format.
func (t *Tensor) GobSerialize(encoder *gob.Encoder) error {
	err := t.shape.GobSerialize(encoder)
	if err != nil {
		return err
	}
	err = encoder.Encode(t.flat)
	if err != nil {
		return errors.Wrapf(err, "failed to write tensor %s data", t.shape)
	}
	return nil
}

// GobDeserialize a Tensor from the decoder.
func GobDeserialize(decoder *gob.Decoder) (*Tensor, error) {
	shape, err := shapes.GobDeserialize(decoder)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize Tensor shape data")
	}
	flat, err := makeFlat(shape.DType, 0)
	if err != nil {
		return nil, err
	}
	flatPtrV := reflect.New(reflect.TypeOf(flat))
	err = decoder.Decode(flatPtrV.Interface())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize Tensor data")
	}
	t := &Tensor{shape: shape, flat: flatPtrV.Elem().Interface()}
	if reflect.ValueOf(t.flat).Len() != shape.Size() {
		return nil, errors.Errorf("deserialized tensor %s has %d values", shape, reflect.ValueOf(t.flat).Len())
	}
	return t, nil
}
