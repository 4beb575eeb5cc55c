// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"github.com/gomlx/trtexport/pkg/core/shapes"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// TracedModule is a module specialized to the shapes of the inputs it was traced with.
type TracedModule struct {
	module       *fx.Module
	inputShapes  []shapes.Shape
	outputShapes []shapes.Shape
}

// Trace runs module once on the sample inputs and returns a TracedModule that only accepts inputs of
// the same shapes.
func Trace(module *fx.Module, inputs ...*tensors.Tensor) (*TracedModule, error) {
	tm := &TracedModule{module: module}
	for _, input := range inputs {
		tm.inputShapes = append(tm.inputShapes, input.Shape())
	}
	outputs, err := tm.run(inputs)
	if err != nil {
		return nil, errors.WithMessagef(err, "tracing %q", module.Name())
	}
	for _, output := range outputs {
		tm.outputShapes = append(tm.outputShapes, output.Shape())
	}
	klog.V(1).Infof("exporter: traced %q with inputs %v, outputs %v", module.Name(), tm.inputShapes, tm.outputShapes)
	return tm, nil
}

// Module that was traced.
func (tm *TracedModule) Module() *fx.Module { return tm.module }

// InputShapes recorded when tracing.
func (tm *TracedModule) InputShapes() []shapes.Shape { return tm.inputShapes }

// OutputShapes recorded when tracing.
func (tm *TracedModule) OutputShapes() []shapes.Shape { return tm.outputShapes }

// Call executes the traced module. The inputs must have the traced shapes.
func (tm *TracedModule) Call(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error) {
	if len(inputs) != len(tm.inputShapes) {
		return nil, errors.Errorf("traced module %q takes %d inputs, %d given",
			tm.module.Name(), len(tm.inputShapes), len(inputs))
	}
	for ii, input := range inputs {
		if !input.Shape().Equal(tm.inputShapes[ii]) {
			return nil, errors.Errorf("traced module %q: input #%d has shape %s, but it was traced with shape %s",
				tm.module.Name(), ii, input.Shape(), tm.inputShapes[ii])
		}
	}
	return tm.run(inputs)
}

func (tm *TracedModule) run(inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	args := make([]any, len(inputs))
	for ii, input := range inputs {
		args[ii] = input
	}
	result, err := fx.Run(tm.module, args...)
	if err != nil {
		return nil, err
	}
	return resultTensors(result)
}

// resultTensors converts the result of fx.Run (a value or a []any list of values) to tensors.
func resultTensors(result any) ([]*tensors.Tensor, error) {
	results, isList := result.([]any)
	if !isList {
		results = []any{result}
	}
	outputs := make([]*tensors.Tensor, len(results))
	for ii, value := range results {
		var err error
		if outputs[ii], err = tensors.FromAnyScalar(value); err != nil {
			return nil, errors.WithMessagef(err, "output #%d", ii)
		}
	}
	return outputs, nil
}
