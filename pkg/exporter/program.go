// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ExportedProgram is a self-contained, flattened module: a single graph whose state has been lifted into
// placeholders, the signature describing those placeholders and the outputs, and the state values.
type ExportedProgram struct {
	module    *fx.Module
	signature GraphSignature
	state     *fx.StateTable
}

// Module holding the program graph.
func (ep *ExportedProgram) Module() *fx.Module { return ep.module }

// Graph of the program.
func (ep *ExportedProgram) Graph() *fx.Graph { return ep.module.Graph() }

// Signature of the program.
func (ep *ExportedProgram) Signature() GraphSignature { return ep.signature }

// State holds the values of the lifted (non-user) inputs, keyed by their targets.
func (ep *ExportedProgram) State() *fx.StateTable { return ep.state }

// Name of the program, taken from the module it was created from.
func (ep *ExportedProgram) Name() string { return ep.module.Name() }

// CreateExportedProgram packages a flattened module (no remaining submodule calls) into an ExportedProgram:
// its placeholders become the user inputs, the elements of its output node the user outputs, and its
// state is lifted with Lift.
//
// The module graph is modified in place.
func CreateExportedProgram(module *fx.Module) (ep *ExportedProgram, err error) {
	err = exceptions.TryCatch[error](func() { ep = mustCreateExportedProgram(module) })
	if err != nil {
		return nil, errors.WithMessagef(err, "creating exported program for %q", module.Name())
	}
	return ep, nil
}

func mustCreateExportedProgram(module *fx.Module) *ExportedProgram {
	g := module.Graph()
	if g == nil {
		exceptions.Panicf("module %q has no graph", module.Name())
	}

	var signature GraphSignature
	for _, placeholder := range g.Placeholders() {
		signature.InputSpecs = append(signature.InputSpecs, InputSpec{
			Kind:   UserInput,
			Arg:    TensorArgument{Name: placeholder.Name()},
			Target: placeholder.Target(),
		})
	}

	output := g.OutputNode()
	if output == nil {
		exceptions.Panicf("graph of module %q has no output node", module.Name())
	}
	for ii, result := range outputElements(output) {
		node, ok := result.(*fx.Node)
		if !ok {
			exceptions.Panicf("output #%d of module %q is a constant (%T), only node outputs are supported",
				ii, module.Name(), result)
		}
		signature.OutputSpecs = append(signature.OutputSpecs, OutputSpec{
			Kind:   UserOutput,
			Arg:    TensorArgument{Name: node.Name()},
			Target: node.Target(),
		})
	}

	module, signature, state := Lift(module, signature)
	klog.V(1).Infof("exporter: exported program %q created with %d inputs (%d user inputs) and %d outputs",
		module.Name(), len(signature.InputSpecs), len(signature.UserInputs()), len(signature.OutputSpecs))
	return &ExportedProgram{module: module, signature: signature, state: state}
}

// outputElements returns the results of the output node as a list.
func outputElements(output *fx.Node) []any {
	if output.NumArgs() == 0 {
		return nil
	}
	if list, ok := output.Arg(0).([]any); ok {
		return list
	}
	return []any{output.Arg(0)}
}

// Call evaluates the program on the given user inputs. The lifted inputs are read from the program state.
func (ep *ExportedProgram) Call(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error) {
	userInputs := ep.signature.UserInputs()
	if len(inputs) != len(userInputs) {
		return nil, errors.Errorf("exported program %q takes %d user inputs, %d given",
			ep.Name(), len(userInputs), len(inputs))
	}
	placeholders := ep.Graph().Placeholders()
	args := make([]any, 0, len(placeholders))
	userIdx := 0
	for _, placeholder := range placeholders {
		spec, found := ep.signature.InputSpecByName(placeholder.Name())
		if !found {
			return nil, errors.Errorf("placeholder %q of exported program %q is not in its signature",
				placeholder.Name(), ep.Name())
		}
		if spec.Kind == UserInput {
			args = append(args, inputs[userIdx])
			userIdx++
			continue
		}
		entry, found := ep.state.Get(spec.Target)
		if !found {
			return nil, errors.Errorf("%s input %q of exported program %q has no value for target %q",
				spec.Kind, placeholder.Name(), ep.Name(), spec.Target)
		}
		args = append(args, entry.Value)
	}

	result, err := fx.Run(ep.module, args...)
	if err != nil {
		return nil, errors.WithMessagef(err, "calling exported program %q", ep.Name())
	}
	outputs, err := resultTensors(result)
	if err != nil {
		return nil, errors.WithMessagef(err, "exported program %q", ep.Name())
	}
	return outputs, nil
}

// String implements fmt.Stringer.
func (ep *ExportedProgram) String() string {
	return fmt.Sprintf("ExportedProgram %q:\n%s%s", ep.Name(), ep.Graph(), ep.signature)
}
