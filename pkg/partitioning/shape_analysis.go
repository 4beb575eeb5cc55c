// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package partitioning holds the analyses run on a partitioned module, whose children are the
// accelerated and host-executed blocks.
package partitioning

import (
	"github.com/gomlx/trtexport/pkg/core/shapes"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// SubgraphShapes maps a submodule name to the shapes of its inputs (or outputs).
type SubgraphShapes map[string][]shapes.Shape

// RunShapeAnalysis executes module on the sample inputs and records, for each child submodule called,
// the shapes of its inputs and outputs. Submodules called more than once keep the shapes of the last call.
func RunShapeAnalysis(module *fx.Module, inputs ...*tensors.Tensor) (inputShapes, outputShapes SubgraphShapes, err error) {
	if module.Graph() == nil {
		return nil, nil, errors.Errorf("shape analysis requires a module with a graph, %q is opaque", module.Name())
	}
	inputShapes, outputShapes = make(SubgraphShapes), make(SubgraphShapes)
	var hookErr error
	it := &fx.Interpreter{
		Module: module,
		BeforeCallModule: func(node *fx.Node, child *fx.Module, args []any) {
			shapesOf, err := valueShapes(args)
			if err != nil {
				hookErr = multierr.Append(hookErr, errors.WithMessagef(err, "inputs of submodule %q", child.Name()))
				return
			}
			inputShapes[child.Name()] = shapesOf
		},
		AfterCallModule: func(node *fx.Node, child *fx.Module, result any) {
			values, isList := result.([]any)
			if !isList {
				values = []any{result}
			}
			shapesOf, err := valueShapes(values)
			if err != nil {
				hookErr = multierr.Append(hookErr, errors.WithMessagef(err, "outputs of submodule %q", child.Name()))
				return
			}
			outputShapes[child.Name()] = shapesOf
			klog.V(2).Infof("shape analysis: submodule %q: inputs %v, outputs %v", child.Name(),
				inputShapes[child.Name()], shapesOf)
		},
	}
	args := make([]any, len(inputs))
	for ii, input := range inputs {
		args[ii] = input
	}
	if _, err = it.Run(args...); err != nil {
		return nil, nil, errors.WithMessage(err, "shape analysis")
	}
	if hookErr != nil {
		return nil, nil, errors.WithMessage(hookErr, "shape analysis")
	}
	return inputShapes, outputShapes, nil
}

// valueShapes returns the shape of each value: tensors, or Go scalars (as rank-0 shapes).
func valueShapes(values []any) ([]shapes.Shape, error) {
	result := make([]shapes.Shape, len(values))
	for ii, value := range values {
		t, err := tensors.FromAnyScalar(value)
		if err != nil {
			return nil, errors.WithMessagef(err, "value #%d", ii)
		}
		result[ii] = t.Shape()
	}
	return result, nil
}
