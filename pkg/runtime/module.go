// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/settings"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// TRTModule wraps an Engine as a module: it implements fx.Forwarder, and can be registered as an
// Accelerated submodule with NewEngineModule.
type TRTModule struct {
	name                                  string
	engine                                Engine
	inputBindingNames, outputBindingNames []string
	hardwareCompatible                    bool
	settings                              *settings.CompilationSettings
}

var _ fx.Forwarder = (*TRTModule)(nil)

// NewTRTModule creates the engine record for serializedEngine and loads it with rt.
//
// Input and output binding names are the names of the engine inputs and outputs, in the order they are
// passed and returned. If serializedEngine is nil, the module is created without an engine, and it
// must be initialized later with SetExtraState.
func NewTRTModule(rt Runtime, serializedEngine []byte, name string, inputBindingNames, outputBindingNames []string,
	s *settings.CompilationSettings) (*TRTModule, error) {
	if s == nil {
		s = settings.Default()
	}
	m := &TRTModule{
		name:               name,
		inputBindingNames:  slices.Clone(inputBindingNames),
		outputBindingNames: slices.Clone(outputBindingNames),
		hardwareCompatible: s.HardwareCompatible,
		settings:           s.Clone(),
	}
	if serializedEngine == nil {
		return m, nil
	}
	info, err := newEngineInfo(rt, serializedEngine, m)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating engine module %q", name)
	}
	m.engine, err = rt.NewEngine(info)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading engine of module %q", name)
	}
	return m, nil
}

func newEngineInfo(rt Runtime, serializedEngine []byte, m *TRTModule) (info EngineInfo, err error) {
	delim := rt.BindingDelimiter()
	info = EngineInfo{
		ABIVersion:         rt.ABIVersion(),
		Name:               "tensorrt_engine",
		Device:             SerializeDevice(m.settings.Device, delim),
		Engine:             serializedEngine,
		HardwareCompatible: boolField(m.hardwareCompatible),
	}
	if m.name != "" {
		info.Name = m.name + "_engine"
	}
	if info.InputBindingNames, err = PackBindingNames(m.inputBindingNames, delim); err != nil {
		return
	}
	if info.OutputBindingNames, err = PackBindingNames(m.outputBindingNames, delim); err != nil {
		return
	}
	info.SerializedMetadata, err = EncodeMetadata(m.settings)
	return
}

// Name of the module.
func (m *TRTModule) Name() string { return m.name }

// Engine returns the wrapped engine, nil if not initialized.
func (m *TRTModule) Engine() Engine { return m.engine }

// InputBindingNames returns the names of the engine inputs, in order.
func (m *TRTModule) InputBindingNames() []string { return slices.Clone(m.inputBindingNames) }

// OutputBindingNames returns the names of the engine outputs, in order.
func (m *TRTModule) OutputBindingNames() []string { return slices.Clone(m.outputBindingNames) }

// HardwareCompatible returns whether the engine was built hardware compatible.
func (m *TRTModule) HardwareCompatible() bool { return m.hardwareCompatible }

// Settings used to build the engine.
func (m *TRTModule) Settings() *settings.CompilationSettings { return m.settings }

// Forward executes the engine. Inputs that are not tensors (e.g. Go scalars) are converted to tensors.
// A single output is returned as a *tensors.Tensor, multiple outputs as a []any of tensors.
//
// It panics if the engine has not been initialized.
func (m *TRTModule) Forward(inputs ...any) (any, error) {
	if m.engine == nil {
		exceptions.Panicf("engine of module %q has not been initialized yet", m.name)
	}
	if len(inputs) != len(m.inputBindingNames) {
		return nil, errors.Errorf("wrong number of inputs for engine module %q, expected %d got %d",
			m.name, len(m.inputBindingNames), len(inputs))
	}
	inputTensors, err := toTensors(inputs)
	if err != nil {
		return nil, errors.WithMessagef(err, "engine module %q", m.name)
	}
	outputs, err := m.engine.Execute(inputTensors)
	if err != nil {
		return nil, errors.WithMessagef(err, "executing engine module %q", m.name)
	}
	if len(outputs) == 1 {
		return outputs[0], nil
	}
	result := make([]any, len(outputs))
	for ii, output := range outputs {
		result[ii] = output
	}
	return result, nil
}

// toTensors converts the values to tensors, using tensors.FromAnyScalar for non-tensor values.
func toTensors(values []any) ([]*tensors.Tensor, error) {
	result := make([]*tensors.Tensor, len(values))
	for ii, value := range values {
		if t, ok := value.(*tensors.Tensor); ok {
			result[ii] = t
			continue
		}
		t, err := tensors.FromAnyScalar(value)
		if err != nil {
			return nil, errors.WithMessagef(err, "input #%d", ii)
		}
		result[ii] = t
	}
	return result, nil
}

var errNotInitialized = errors.New("engine has not been initialized yet")

// EnableProfiling of the engine executions, with traces written under pathPrefix (runtime default if empty).
func (m *TRTModule) EnableProfiling(pathPrefix string) error {
	if m.engine == nil {
		return errors.WithMessagef(errNotInitialized, "module %q", m.name)
	}
	return m.engine.EnableProfiling(pathPrefix)
}

// DisableProfiling of the engine executions.
func (m *TRTModule) DisableProfiling() error {
	if m.engine == nil {
		return errors.WithMessagef(errNotInitialized, "module %q", m.name)
	}
	m.engine.DisableProfiling()
	return nil
}

// LayerInfo returns the JSON description of the layers of the engine.
func (m *TRTModule) LayerInfo() (string, error) {
	if m.engine == nil {
		return "", errors.WithMessagef(errNotInitialized, "module %q", m.name)
	}
	return m.engine.LayerInfo()
}

// DumpLayerInfo logs the description of the layers of the engine.
func (m *TRTModule) DumpLayerInfo() error {
	layerInfo, err := m.LayerInfo()
	if err != nil {
		return err
	}
	klog.Infof("Layers of engine module %q:\n%s", m.name, layerInfo)
	return nil
}

// ExtraState is the serializable state of a TRTModule.
type ExtraState struct {
	Name string `json:"name"`

	// Runtime is the name of the runtime the engine was loaded with.
	Runtime string `json:"runtime,omitempty"`

	// Engine holds the engine record fields (see EngineInfo.Fields), nil if the module has no engine.
	Engine []string `json:"engine,omitempty"`

	InputBindingNames  []string `json:"input_binding_names"`
	OutputBindingNames []string `json:"output_binding_names"`
}

// ExtraState returns the state from which the module can be recreated with SetExtraState.
func (m *TRTModule) ExtraState() ExtraState {
	state := ExtraState{
		Name:               m.name,
		InputBindingNames:  m.InputBindingNames(),
		OutputBindingNames: m.OutputBindingNames(),
	}
	if m.engine != nil {
		state.Runtime = m.engine.RuntimeName()
		state.Engine = m.engine.Info().Fields()
	}
	return state
}

// SetExtraState reinitializes the module from state. The engine, if any, is loaded with rt, or with the
// runtime recorded in the state if rt is nil.
func (m *TRTModule) SetExtraState(rt Runtime, state ExtraState) error {
	var engine Engine
	s := settings.Default()
	hardwareCompatible := false
	if state.Engine != nil {
		info, err := EngineInfoFromFields(state.Engine)
		if err != nil {
			return errors.WithMessagef(err, "restoring engine module %q", state.Name)
		}
		if rt == nil {
			err = exceptions.TryCatch[error](func() { rt = NewWithName(state.Runtime) })
			if err != nil {
				return errors.WithMessagef(err, "restoring engine module %q", state.Name)
			}
		}
		engine, err = rt.NewEngine(info)
		if err != nil {
			return errors.WithMessagef(err, "restoring engine module %q", state.Name)
		}
		s, err = DecodeMetadata(info.SerializedMetadata)
		if err != nil {
			return errors.WithMessagef(err, "restoring engine module %q", state.Name)
		}
		hardwareCompatible = info.IsHardwareCompatible()
	}
	m.name = state.Name
	m.engine = engine
	m.inputBindingNames = slices.Clone(state.InputBindingNames)
	m.outputBindingNames = slices.Clone(state.OutputBindingNames)
	m.hardwareCompatible = hardwareCompatible
	m.settings = s
	return nil
}

// String implements fmt.Stringer.
func (m *TRTModule) String() string {
	if m.engine == nil {
		return fmt.Sprintf("TRTModule(%q, uninitialized)", m.name)
	}
	return fmt.Sprintf("TRTModule(%q, engine=%q, inputs=%q, outputs=%q)", m.name, m.engine.Name(),
		m.inputBindingNames, m.outputBindingNames)
}

// NewEngineModule wraps m as an opaque fx.Module, to be registered as an fx.Accelerated submodule.
func NewEngineModule(m *TRTModule) *fx.Module {
	return fx.NewOpaqueModule(m.name, m)
}
