// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/trtexport/pkg/core/shapes"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

type binaryOp int

const (
	opAdd binaryOp = iota
	opSub
	opMul
	opDiv
)

func (op binaryOp) String() string {
	return [...]string{"aten.add", "aten.sub", "aten.mul", "aten.div"}[op]
}

// numeric are the POD types the kernels operate on. Float16 is converted to float32 before.
type numeric interface {
	constraints.Integer | constraints.Float
}

func binaryFn[T numeric](op binaryOp) func(lhs, rhs T) T {
	switch op {
	case opAdd:
		return func(lhs, rhs T) T { return lhs + rhs }
	case opSub:
		return func(lhs, rhs T) T { return lhs - rhs }
	case opMul:
		return func(lhs, rhs T) T { return lhs * rhs }
	default:
		return func(lhs, rhs T) T { return lhs / rhs }
	}
}

// isIntegral returns whether T is an integer type.
func isIntegral[T numeric]() bool {
	var half T = 1
	half /= 2
	return half == 0
}

// scalarLike converts a Go scalar to a scalar tensor with the dtype of like.
func scalarLike(like *tensors.Tensor, value any) (*tensors.Tensor, error) {
	f, err := toFloat64(value)
	if err != nil {
		return nil, err
	}
	switch like.DType() {
	case dtypes.Float32:
		return tensors.FromScalar(float32(f)), nil
	case dtypes.Float64:
		return tensors.FromScalar(f), nil
	case dtypes.Int32:
		return tensors.FromScalar(int32(f)), nil
	case dtypes.Int64:
		return tensors.FromScalar(int64(f)), nil
	case dtypes.Uint8:
		return tensors.FromScalar(uint8(f)), nil
	case dtypes.Float16:
		return tensors.FromScalar(float16.Fromfloat32(float32(f))), nil
	}
	return nil, errors.Errorf("unsupported dtype %s", like.DType())
}

// binaryOutputShape returns the shape of the result: operands must have the same shape, or one of
// them must have size 1 (it is then broadcast).
func binaryOutputShape(op binaryOp, lhs, rhs *tensors.Tensor) (shapes.Shape, error) {
	if lhs.DType() != rhs.DType() {
		return shapes.Invalid(), errors.Errorf("%s: dtype mismatch %s and %s", op, lhs.DType(), rhs.DType())
	}
	switch {
	case lhs.Shape().Equal(rhs.Shape()):
		return lhs.Shape(), nil
	case rhs.Size() == 1 && rhs.Rank() <= lhs.Rank():
		return lhs.Shape(), nil
	case lhs.Size() == 1 && lhs.Rank() <= rhs.Rank():
		return rhs.Shape(), nil
	}
	return shapes.Invalid(), errors.Errorf("%s: incompatible shapes %s and %s", op, lhs.Shape(), rhs.Shape())
}

func execBinary(op binaryOp, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	outputShape, err := binaryOutputShape(op, lhs, rhs)
	if err != nil {
		return nil, err
	}
	output := tensors.FromShape(outputShape)
	switch outputShape.DType {
	case dtypes.Float32:
		err = execBinaryGeneric[float32](op, lhs, rhs, output)
	case dtypes.Float64:
		err = execBinaryGeneric[float64](op, lhs, rhs, output)
	case dtypes.Int32:
		err = execBinaryGeneric[int32](op, lhs, rhs, output)
	case dtypes.Int64:
		err = execBinaryGeneric[int64](op, lhs, rhs, output)
	case dtypes.Uint8:
		err = execBinaryGeneric[uint8](op, lhs, rhs, output)
	case dtypes.Float16:
		err = execBinaryFloat16(op, lhs, rhs, output)
	default:
		err = errors.Errorf("%s: unsupported dtype %s", op, outputShape.DType)
	}
	if err != nil {
		return nil, err
	}
	return output, nil
}

func execBinaryGeneric[T numeric](op binaryOp, lhs, rhs, output *tensors.Tensor) error {
	return binaryKernel(op, lhs.Flat().([]T), rhs.Flat().([]T), output.Flat().([]T))
}

// binaryKernel writes op(lhs, rhs) to output, broadcasting operands of size 1.
func binaryKernel[T numeric](op binaryOp, lhs, rhs, output []T) error {
	fn := binaryFn[T](op)
	lhsIsScalarOr1, rhsIsScalarOr1 := len(lhs) == 1, len(rhs) == 1
	if op == opDiv && isIntegral[T]() {
		for _, v := range rhs {
			if v == 0 {
				return errors.Errorf("%s: integer division by zero", op)
			}
		}
	}
	for ii := range output {
		var l, r T
		if lhsIsScalarOr1 {
			l = lhs[0]
		} else {
			l = lhs[ii]
		}
		if rhsIsScalarOr1 {
			r = rhs[0]
		} else {
			r = rhs[ii]
		}
		output[ii] = fn(l, r)
	}
	return nil
}

func toFloat32s(values []float16.Float16) []float32 {
	result := make([]float32, len(values))
	for ii, v := range values {
		result[ii] = v.Float32()
	}
	return result
}

func execBinaryFloat16(op binaryOp, lhs, rhs, output *tensors.Tensor) error {
	lhs32 := toFloat32s(lhs.Flat().([]float16.Float16))
	rhs32 := toFloat32s(rhs.Flat().([]float16.Float16))
	out16 := output.Flat().([]float16.Float16)
	out32 := make([]float32, len(out16))
	if err := binaryKernel(op, lhs32, rhs32, out32); err != nil {
		return err
	}
	for ii, v := range out32 {
		out16[ii] = float16.Fromfloat32(v)
	}
	return nil
}

func execNeg(x *tensors.Tensor) (*tensors.Tensor, error) {
	output := tensors.FromShape(x.Shape())
	switch x.DType() {
	case dtypes.Float32:
		negKernel(x.Flat().([]float32), output.Flat().([]float32))
	case dtypes.Float64:
		negKernel(x.Flat().([]float64), output.Flat().([]float64))
	case dtypes.Int32:
		negKernel(x.Flat().([]int32), output.Flat().([]int32))
	case dtypes.Int64:
		negKernel(x.Flat().([]int64), output.Flat().([]int64))
	case dtypes.Uint8:
		negKernel(x.Flat().([]uint8), output.Flat().([]uint8))
	case dtypes.Float16:
		out := output.Flat().([]float16.Float16)
		for ii, v := range x.Flat().([]float16.Float16) {
			out[ii] = float16.Fromfloat32(-v.Float32())
		}
	default:
		return nil, errors.Errorf("aten.neg: unsupported dtype %s", x.DType())
	}
	return output, nil
}

func negKernel[T numeric](input, output []T) {
	for ii, v := range input {
		output[ii] = -v
	}
}
