// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/trtexport/pkg/fx"
)

// InputKind classifies the inputs of an exported program.
type InputKind int

//go:generate go tool enumer -type=InputKind -transform=snake-upper -json -output=gen_inputkind_enumer.go signature.go

const (
	UserInput InputKind = iota
	Parameter
	Buffer
	ConstantTensor
)

// inputKindOf maps the kind of a state entry to the kind of the lifted input.
func inputKindOf(kind fx.StateKind) InputKind {
	switch kind {
	case fx.Parameter:
		return Parameter
	case fx.Buffer:
		return Buffer
	}
	return ConstantTensor
}

// OutputKind classifies the outputs of an exported program.
type OutputKind int

//go:generate go tool enumer -type=OutputKind -transform=snake-upper -json -output=gen_outputkind_enumer.go signature.go

const (
	UserOutput OutputKind = iota
)

// TensorArgument refers to a graph node by name.
type TensorArgument struct {
	Name string `json:"name"`
}

// InputSpec describes one input (placeholder) of an exported program.
type InputSpec struct {
	Kind InputKind      `json:"kind"`
	Arg  TensorArgument `json:"arg"`

	// Target is the qualified state name for lifted inputs, the placeholder target for user inputs.
	Target string `json:"target,omitempty"`
}

// OutputSpec describes one output of an exported program.
type OutputSpec struct {
	Kind   OutputKind     `json:"kind"`
	Arg    TensorArgument `json:"arg"`
	Target string         `json:"target,omitempty"`
}

// GraphSignature lists the inputs and outputs of an exported program. Input specs are ordered
// [parameters, buffers, constants, user inputs].
type GraphSignature struct {
	InputSpecs  []InputSpec  `json:"input_specs"`
	OutputSpecs []OutputSpec `json:"output_specs"`
}

// UserInputs returns the names of the user inputs, in order.
func (sig GraphSignature) UserInputs() []string {
	var names []string
	for _, spec := range sig.InputSpecs {
		if spec.Kind == UserInput {
			names = append(names, spec.Arg.Name)
		}
	}
	return names
}

// InputSpecByName returns the input spec for the placeholder name.
func (sig GraphSignature) InputSpecByName(name string) (InputSpec, bool) {
	for _, spec := range sig.InputSpecs {
		if spec.Arg.Name == name {
			return spec, true
		}
	}
	return InputSpec{}, false
}

// insertInputSpec inserts spec at position idx.
func (sig *GraphSignature) insertInputSpec(idx int, spec InputSpec) {
	sig.InputSpecs = slices.Insert(sig.InputSpecs, idx, spec)
}

// String implements fmt.Stringer.
func (sig GraphSignature) String() string {
	var sb strings.Builder
	sb.WriteString("Inputs:\n")
	for _, spec := range sig.InputSpecs {
		fmt.Fprintf(&sb, "\t%s %s (target=%q)\n", spec.Kind, spec.Arg.Name, spec.Target)
	}
	sb.WriteString("Outputs:\n")
	for _, spec := range sig.OutputSpecs {
		fmt.Fprintf(&sb, "\t%s %s\n", spec.Kind, spec.Arg.Name)
	}
	return sb.String()
}
