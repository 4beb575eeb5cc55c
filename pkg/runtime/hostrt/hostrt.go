// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package hostrt implements a pure Go engine runtime: engines are serialized graph modules (graph and
// state) that are executed on the host by the graph interpreter.
//
// It registers itself as the "host" runtime during initialization, so it's enough to import it:
//
//	import _ "github.com/gomlx/trtexport/pkg/runtime/hostrt"
package hostrt

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/runtime"
	"github.com/gomlx/trtexport/pkg/settings"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	// Functions used by the engine graphs.
	_ "github.com/gomlx/trtexport/pkg/ops"
)

const (
	// Name of the runtime in the registry.
	Name = "host"

	// ABIVersion of the engine records produced and accepted.
	ABIVersion = "5"

	// BindingDelimiter used to pack binding names.
	BindingDelimiter = "%"
)

func init() {
	runtime.Register(Name, func(config string) (runtime.Runtime, error) { return New(config) })
}

// Runtime implements runtime.Runtime.
type Runtime struct {
	// profileDir is the default directory where profiling traces are written.
	profileDir string
}

var _ runtime.Runtime = (*Runtime)(nil)

// New creates the host runtime. The config, if given, is the default directory for profiling traces.
func New(config string) (*Runtime, error) {
	rt := &Runtime{profileDir: config}
	if rt.profileDir == "" {
		rt.profileDir = filepath.Join(os.TempDir(), "trtexport_profiles")
	}
	return rt, nil
}

// Name implements runtime.Runtime.
func (rt *Runtime) Name() string { return Name }

// ABIVersion implements runtime.Runtime.
func (rt *Runtime) ABIVersion() string { return ABIVersion }

// BindingDelimiter implements runtime.Runtime.
func (rt *Runtime) BindingDelimiter() string { return BindingDelimiter }

// NewEngine implements runtime.Runtime: it decodes the module serialized in info.Engine.
func (rt *Runtime) NewEngine(info runtime.EngineInfo) (runtime.Engine, error) {
	if info.ABIVersion != ABIVersion {
		return nil, errors.Errorf("engine %q has ABI version %q, runtime %q requires %q", info.Name, info.ABIVersion, Name, ABIVersion)
	}
	if _, err := runtime.ParseSerializedDevice(info.Device, BindingDelimiter); err != nil {
		return nil, errors.WithMessagef(err, "engine %q", info.Name)
	}
	module, err := fx.ReadModule(bytes.NewReader(info.Engine), nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "deserializing engine %q", info.Name)
	}
	e := &Engine{
		runtime:     rt,
		info:        info,
		module:      module,
		inputNames:  runtime.UnpackBindingNames(info.InputBindingNames, BindingDelimiter),
		outputNames: runtime.UnpackBindingNames(info.OutputBindingNames, BindingDelimiter),
	}
	if numInputs := len(module.Graph().Placeholders()); numInputs != len(e.inputNames) {
		return nil, errors.Errorf("engine %q graph takes %d inputs, but %d input bindings were given",
			info.Name, numInputs, len(e.inputNames))
	}
	klog.V(1).Infof("hostrt: loaded engine %q with inputs %q and outputs %q", info.Name, e.inputNames, e.outputNames)
	return e, nil
}

// BuildEngine compiles module, a graph without submodules, to an engine and wraps it in a
// runtime.TRTModule.
//
// If inputBindingNames is nil, the placeholder names are used. If outputBindingNames is nil, the outputs
// are named "output_<i>".
func BuildEngine(module *fx.Module, name string, inputBindingNames, outputBindingNames []string,
	s *settings.CompilationSettings) (*runtime.TRTModule, error) {
	g := module.Graph()
	if g == nil {
		return nil, errors.Errorf("cannot build engine %q from opaque module", name)
	}
	if inputBindingNames == nil {
		for _, placeholder := range g.Placeholders() {
			inputBindingNames = append(inputBindingNames, placeholder.Name())
		}
	}
	if outputBindingNames == nil {
		outputNode := g.OutputNode()
		if outputNode == nil {
			return nil, errors.Errorf("cannot build engine %q: graph has no output", name)
		}
		numOutputs := 1
		if list, ok := outputNode.Arg(0).([]any); ok {
			numOutputs = len(list)
		}
		for ii := range numOutputs {
			outputBindingNames = append(outputBindingNames, "output_"+strconv.Itoa(ii))
		}
	}
	var buf bytes.Buffer
	if err := fx.WriteModule(&buf, module); err != nil {
		return nil, errors.WithMessagef(err, "building engine %q", name)
	}
	rt, err := New("")
	if err != nil {
		return nil, err
	}
	return runtime.NewTRTModule(rt, buf.Bytes(), name, inputBindingNames, outputBindingNames, s)
}
