// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops registers the host functions that graphs can call: elementwise arithmetic on tensors
// (with broadcasting of scalars) and tuple indexing.
package ops

import (
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/pkg/errors"
)

var (
	// Add returns lhs + rhs.
	Add = fx.RegisterFunction(&fx.Function{Name: "aten.add", Eval: binaryEval(opAdd)})

	// Sub returns lhs - rhs.
	Sub = fx.RegisterFunction(&fx.Function{Name: "aten.sub", Eval: binaryEval(opSub)})

	// Mul returns lhs * rhs.
	Mul = fx.RegisterFunction(&fx.Function{Name: "aten.mul", Eval: binaryEval(opMul)})

	// Div returns lhs / rhs. Integer division by zero is an error.
	Div = fx.RegisterFunction(&fx.Function{Name: "aten.div", Eval: binaryEval(opDiv)})

	// Neg returns -x.
	Neg = fx.RegisterFunction(&fx.Function{Name: "aten.neg", Eval: negEval})

	// GetItem returns sequence[index] of a tuple value ([]any or []*tensors.Tensor). Negative indices
	// count from the end.
	GetItem = fx.RegisterFunction(&fx.Function{Name: "operator.getitem", Eval: getItemEval})
)

func binaryEval(op binaryOp) func(args []any) (any, error) {
	return func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, errors.Errorf("%s takes 2 arguments, got %d", op, len(args))
		}
		lhs, lhsIsTensor := args[0].(*tensors.Tensor)
		rhs, rhsIsTensor := args[1].(*tensors.Tensor)
		var err error
		switch {
		case lhsIsTensor && rhsIsTensor:
			// Both operands given.
		case lhsIsTensor:
			rhs, err = scalarLike(lhs, args[1])
		case rhsIsTensor:
			lhs, err = scalarLike(rhs, args[0])
		default:
			return scalarBinary(op, args[0], args[1])
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "%s", op)
		}
		return execBinary(op, lhs, rhs)
	}
}

func negEval(args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.Errorf("aten.neg takes 1 argument, got %d", len(args))
	}
	switch x := args[0].(type) {
	case *tensors.Tensor:
		return execNeg(x)
	case int:
		return -x, nil
	case int64:
		return -x, nil
	case float64:
		return -x, nil
	}
	return nil, errors.Errorf("aten.neg: unsupported operand of type %T", args[0])
}

func getItemEval(args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.Errorf("operator.getitem takes 2 arguments, got %d", len(args))
	}
	index, ok := args[1].(int)
	if !ok {
		return nil, errors.Errorf("operator.getitem: index must be an int, got %T", args[1])
	}
	switch sequence := args[0].(type) {
	case []any:
		return itemAt(sequence, index)
	case []*tensors.Tensor:
		return itemAt(sequence, index)
	}
	return nil, errors.Errorf("operator.getitem: cannot index value of type %T", args[0])
}

func itemAt[T any](sequence []T, index int) (item T, err error) {
	if index < 0 {
		index += len(sequence)
	}
	if index < 0 || index >= len(sequence) {
		err = errors.Errorf("operator.getitem: index %d out of range for sequence of length %d", index, len(sequence))
		return
	}
	return sequence[index], nil
}

// scalarBinary handles operations where both operands are Go scalars: int operands stay int, anything
// else is computed as float64.
func scalarBinary(op binaryOp, lhs, rhs any) (any, error) {
	lhsInt, lhsIsInt := lhs.(int)
	rhsInt, rhsIsInt := rhs.(int)
	if lhsIsInt && rhsIsInt {
		if op == opDiv && rhsInt == 0 {
			return nil, errors.Errorf("%s: integer division by zero", op)
		}
		return binaryFn[int](op)(lhsInt, rhsInt), nil
	}
	lhsFloat, err := toFloat64(lhs)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", op)
	}
	rhsFloat, err := toFloat64(rhs)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", op)
	}
	return binaryFn[float64](op)(lhsFloat, rhsFloat), nil
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	}
	return 0, errors.Errorf("unsupported operand of type %T", value)
}
