// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package exporter rewrites a partitioned module (a graph calling accelerated engine submodules and
// host-executed submodules) into a single flattened graph, and packages it in one of the supported
// output formats.
//
// The exported-program path runs these stages, each taking ownership of the module and handing it
// to the next:
//
//  1. partitioning.RunShapeAnalysis records the shapes of the outputs of each submodule.
//  2. InlineEngineModules replaces each engine submodule call by a call to runtime.ExecuteEngine.
//  3. InlineHostModules copies host-executed submodule graphs in place of their calls.
//  4. CreateExportedProgram lifts the module state into placeholders (see Lift) and builds the signature.
//
// Graph rewrite stages panic (with exceptions.Panicf) on malformed input, and the public entry points
// (Export, Transform, CreateExportedProgram) convert those panics to errors.
package exporter

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/partitioning"
	"github.com/gomlx/trtexport/pkg/settings"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// OutputFormat selects the artifact returned by Export.
type OutputFormat int

//go:generate go tool enumer -type=OutputFormat -linecomment -text -output=gen_outputformat_enumer.go export.go

const (
	ExportedProgramFormat OutputFormat = iota // exported_program
	TorchScriptFormat                         // torchscript
	GraphModuleFormat                         // graph_module
)

// outputFormatAliases are the short names accepted by ParseOutputFormat.
var outputFormatAliases = map[string]OutputFormat{
	"ep": ExportedProgramFormat,
	"ts": TorchScriptFormat,
	"fx": GraphModuleFormat,
}

// ParseOutputFormat accepts "exported_program" (or "ep"), "torchscript" (or "ts") and "graph_module"
// (or "fx").
func ParseOutputFormat(name string) (OutputFormat, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if format, found := outputFormatAliases[normalized]; found {
		return format, nil
	}
	if format, err := OutputFormatString(normalized); err == nil {
		return format, nil
	}
	return 0, errors.Errorf("invalid output format %q specified: supported options include "+
		"exported_program (or) ep | torchscript (or) ts | graph_module (or) fx", name)
}

// Artifact is the result of Export: a GraphModule, a *TracedModule or an *ExportedProgram.
type Artifact interface {
	Format() OutputFormat
}

// GraphModule is the partitioned module returned unchanged.
type GraphModule struct {
	*fx.Module
}

// Format implements Artifact.
func (GraphModule) Format() OutputFormat { return GraphModuleFormat }

// Format implements Artifact.
func (*TracedModule) Format() OutputFormat { return TorchScriptFormat }

// Format implements Artifact.
func (*ExportedProgram) Format() OutputFormat { return ExportedProgramFormat }

// Export packages the partitioned module in the requested format, using inputs as sample inputs.
//
// For ExportedProgramFormat the module is transformed in place (see Transform).
func Export(module *fx.Module, inputs []*tensors.Tensor, format OutputFormat) (Artifact, error) {
	switch format {
	case GraphModuleFormat:
		return GraphModule{module}, nil
	case TorchScriptFormat:
		traced, err := Trace(module, inputs...)
		if err != nil {
			return nil, err
		}
		return traced, nil
	case ExportedProgramFormat:
		if err := Transform(module, inputs...); err != nil {
			return nil, err
		}
		ep, err := CreateExportedProgram(module)
		if err != nil {
			return nil, err
		}
		return ep, nil
	}
	return nil, errors.Errorf("export of module %q: unsupported output format %s", module.Name(), format)
}

// ExportWithSettings exports module in the output format configured in s.
// With s.Debug set, the transformed graph is logged.
func ExportWithSettings(module *fx.Module, inputs []*tensors.Tensor, s *settings.CompilationSettings) (Artifact, error) {
	format, err := ParseOutputFormat(s.OutputFormat)
	if err != nil {
		return nil, err
	}
	if s.Debug {
		klog.Infof("exporter: exporting %q as %s", module.Name(), format)
	}
	artifact, err := Export(module, inputs, format)
	if err != nil {
		return nil, err
	}
	if s.Debug {
		klog.Infof("exporter: %q exported:\n%v", module.Name(), artifact)
	}
	return artifact, nil
}

// Transform flattens the partitioned module in place: it runs the shape analysis on the sample inputs,
// inlines the engine submodules and the host-executed submodules, and deletes the submodules no longer
// called.
//
// Placeholders without a fake tensor "val" are annotated with the shapes of the sample inputs.
func Transform(module *fx.Module, inputs ...*tensors.Tensor) error {
	if module.Graph() == nil {
		return errors.Errorf("cannot transform opaque module %q", module.Name())
	}
	_, outputShapes, err := partitioning.RunShapeAnalysis(module, inputs...)
	if err != nil {
		return errors.WithMessagef(err, "transforming %q", module.Name())
	}
	err = exceptions.TryCatch[error](func() {
		g := module.Graph()
		annotatePlaceholders(g, inputs)
		InlineEngineModules(module, outputShapes)
		InlineHostModules(module)
		if deleted := module.DeleteAllUnusedSubmodules(); len(deleted) > 0 {
			klog.V(1).Infof("exporter: deleted unused submodules %q", deleted)
		}
		g.EliminateDeadCode()
		mustLint(g, "after transforming %q", module.Name())
		klog.V(2).Infof("exporter: transformed %q:\n%s", module.Name(), g)
	})
	if err != nil {
		return errors.WithMessagef(err, "transforming %q", module.Name())
	}
	return nil
}

// annotatePlaceholders sets the "val" of the placeholders that don't have a fake tensor yet, using the
// fake.Mode already in use by the other placeholders, or a new one.
func annotatePlaceholders(g *fx.Graph, inputs []*tensors.Tensor) {
	placeholders := g.Placeholders()
	vals := make([]any, len(placeholders))
	for ii, placeholder := range placeholders {
		vals[ii] = placeholder.Val()
	}
	mode, err := fake.Detect(vals...)
	if err != nil {
		panic(errors.WithMessage(err, "placeholders of the graph"))
	}
	if mode == nil {
		mode = fake.NewMode()
	}
	for ii, placeholder := range placeholders {
		if _, ok := vals[ii].(*fake.Tensor); ok {
			continue
		}
		placeholder.Meta[fx.MetaVal] = mode.FromTensor(inputs[ii])
	}
}
