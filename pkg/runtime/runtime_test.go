// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/settings"
	"github.com/gomlx/trtexport/pkg/support/sets"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doubleRuntime creates engines that return each input doubled. The engine bytes are ignored.
type doubleRuntime struct{}

func (doubleRuntime) Name() string             { return "double" }
func (doubleRuntime) ABIVersion() string       { return "test" }
func (doubleRuntime) BindingDelimiter() string { return "%" }
func (doubleRuntime) NewEngine(info EngineInfo) (Engine, error) {
	if info.ABIVersion != "test" {
		return nil, errors.Errorf("unsupported ABI %q", info.ABIVersion)
	}
	return &doubleEngine{info: info}, nil
}

type doubleEngine struct {
	info      EngineInfo
	profiling bool
}

func (e *doubleEngine) Name() string        { return e.info.Name }
func (e *doubleEngine) RuntimeName() string { return "double" }
func (e *doubleEngine) Info() EngineInfo    { return e.info }
func (e *doubleEngine) Execute(inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	outputs := make([]*tensors.Tensor, len(inputs))
	for ii, input := range inputs {
		values := tensors.CopyFlatData[float32](input)
		for jj := range values {
			values[jj] *= 2
		}
		outputs[ii] = tensors.FromFlatDataAndDimensions(values, input.Shape().Dimensions...)
	}
	return outputs, nil
}
func (e *doubleEngine) EnableProfiling(string) error { e.profiling = true; return nil }
func (e *doubleEngine) DisableProfiling()            { e.profiling = false }
func (e *doubleEngine) LayerInfo() (string, error)   { return `{"Layers":[]}`, nil }

func init() {
	Register("double", func(config string) (Runtime, error) { return doubleRuntime{}, nil })
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, Registered(), "double")
	assert.Equal(t, "double", NewWithName("double:some_config").Name())
	t.Setenv(TRTEXPORT_RUNTIME, "double")
	assert.Equal(t, "double", New().Name())
	require.Panics(t, func() { NewWithName("missing") })
}

func TestBindingNames(t *testing.T) {
	for _, names := range [][]string{nil, {"x"}, {"x.0", "x.1", "y"}} {
		packed, err := PackBindingNames(names, "%")
		require.NoError(t, err)
		assert.Equal(t, names, UnpackBindingNames(packed, "%"))
	}
	packed, err := PackBindingNames([]string{"a", "b"}, "%")
	require.NoError(t, err)
	assert.Equal(t, "a%b", packed)
	packed, err = PackBindingNames([]string{}, "%")
	require.NoError(t, err)
	assert.Nil(t, UnpackBindingNames(packed, "%"))

	_, err = PackBindingNames([]string{"a%b"}, "%")
	require.ErrorContains(t, err, "contains the delimiter")
	_, err = PackBindingNames([]string{"a", ""}, "%")
	require.ErrorContains(t, err, "is empty")
}

func TestEngineInfoFields(t *testing.T) {
	info := EngineInfo{
		ABIVersion:         "5",
		Name:               "stage_b_engine",
		Device:             SerializeDevice(settings.Device{GPUID: 1}, "%"),
		Engine:             []byte{0, 1, 2, 255},
		InputBindingNames:  "x",
		OutputBindingNames: "out_0%out_1",
		HardwareCompatible: "1",
		SerializedMetadata: "e30=",
	}
	fields := info.Fields()
	require.Len(t, fields, SerializationLen)
	assert.Equal(t, 8, SerializationLen)
	assert.Equal(t, "stage_b_engine", fields[NameIdx])
	assert.Equal(t, "AAEC/w==", fields[EngineIdx])
	assert.Equal(t, "1%0%0", fields[DeviceIdx])
	restored, err := EngineInfoFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, info, restored)
	assert.True(t, restored.IsHardwareCompatible())

	_, err = EngineInfoFromFields(fields[:7])
	require.Error(t, err)

	device, err := ParseSerializedDevice("0%1%2", "%")
	require.NoError(t, err)
	assert.Equal(t, settings.Device{Type: settings.DLA, DLACore: 2, AllowGPUFallback: true}, device)
	_, err = ParseSerializedDevice("0%7%2", "%")
	require.Error(t, err)
}

func TestMetadata(t *testing.T) {
	s := settings.Default()
	s.Debug = true
	s.MinBlockSize = 2
	s.TorchExecutedOps = sets.MakeWith("aten.sub.Tensor", "aten.add.Tensor")
	encoded, err := EncodeMetadata(s)
	require.NoError(t, err)

	decoded, err := DecodeMetadata(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.TorchExecutedOps.Equal(s.TorchExecutedOps))
	assert.True(t, decoded.Debug)
	assert.Equal(t, 2, decoded.MinBlockSize)
	assert.Equal(t, s.Device, decoded.Device)

	// The operators are stored sorted, with the "torch.ops." prefix.
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	var asMap map[string]any
	require.NoError(t, json.Unmarshal(raw, &asMap))
	assert.Equal(t, []any{"torch.ops.aten.add.Tensor", "torch.ops.aten.sub.Tensor"}, asMap["torch_executed_ops"])

	_, err = DecodeMetadata("not base64!")
	require.Error(t, err)
}

func TestTRTModule(t *testing.T) {
	s := settings.Default()
	s.HardwareCompatible = true
	m, err := NewTRTModule(doubleRuntime{}, []byte("engine"), "stage_b", []string{"x", "y"}, []string{"out_0", "out_1"}, s)
	require.NoError(t, err)
	assert.Equal(t, "stage_b_engine", m.Engine().Name())
	assert.Equal(t, "1", m.Engine().Info().HardwareCompatible)

	x := tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)
	result, err := m.Forward(x, float32(3))
	require.NoError(t, err)
	outputs := result.([]any)
	require.Len(t, outputs, 2)
	assert.Equal(t, []float32{2, 4}, tensors.CopyFlatData[float32](outputs[0].(*tensors.Tensor)))
	assert.Equal(t, float32(6), tensors.ToScalar[float32](outputs[1].(*tensors.Tensor)))

	_, err = m.Forward(x)
	require.ErrorContains(t, err, "wrong number of inputs")

	single, err := NewTRTModule(doubleRuntime{}, []byte("engine"), "", []string{"x"}, []string{"y"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tensorrt_engine", single.Engine().Name())
	result, err = single.Forward(x)
	require.NoError(t, err)
	assert.IsType(t, &tensors.Tensor{}, result, "single output is returned bare")

	require.NoError(t, m.EnableProfiling(""))
	assert.True(t, m.Engine().(*doubleEngine).profiling)
	require.NoError(t, m.DisableProfiling())
	require.NoError(t, m.DumpLayerInfo())

	_, err = NewTRTModule(doubleRuntime{}, []byte("engine"), "bad", []string{"a%b"}, nil, nil)
	require.Error(t, err)
}

func TestUninitializedTRTModule(t *testing.T) {
	m, err := NewTRTModule(doubleRuntime{}, nil, "empty", []string{"x"}, []string{"y"}, nil)
	require.NoError(t, err)
	require.Nil(t, m.Engine())
	require.Panics(t, func() { _, _ = m.Forward(tensors.FromScalar(float32(1))) })
	_, err = m.LayerInfo()
	require.Error(t, err)
	require.Error(t, m.EnableProfiling(""))
	assert.Contains(t, m.String(), "uninitialized")
}

func TestExtraState(t *testing.T) {
	s := settings.Default()
	s.TorchExecutedOps.Insert("aten.div.Tensor")
	m, err := NewTRTModule(doubleRuntime{}, []byte("engine"), "stage_b", []string{"x"}, []string{"y"}, s)
	require.NoError(t, err)

	state := m.ExtraState()
	assert.Equal(t, "double", state.Runtime)
	data, err := json.Marshal(state)
	require.NoError(t, err)
	var decodedState ExtraState
	require.NoError(t, json.Unmarshal(data, &decodedState))

	restored := &TRTModule{}
	require.NoError(t, restored.SetExtraState(nil, decodedState))
	assert.Equal(t, "stage_b", restored.Name())
	assert.Equal(t, []string{"x"}, restored.InputBindingNames())
	assert.Equal(t, m.Engine().Info(), restored.Engine().Info())
	assert.True(t, restored.Settings().TorchExecutedOps.Has("aten.div.Tensor"))

	empty := &TRTModule{}
	require.NoError(t, empty.SetExtraState(nil, ExtraState{Name: "no_engine"}))
	assert.Nil(t, empty.Engine())
}

func TestExecuteEngineFunction(t *testing.T) {
	m, err := NewTRTModule(doubleRuntime{}, []byte("engine"), "b", []string{"x"}, []string{"y"}, nil)
	require.NoError(t, err)

	g := fx.NewGraph()
	x := g.Placeholder("x")
	call := g.CallFunction(ExecuteEngine, []any{x}, m.Engine())
	g.Output(call)
	assert.Equal(t, "execute_engine", call.Name())

	result, err := fx.Run(fx.NewModule("top", g), tensors.FromFlatDataAndDimensions([]float32{5}, 1))
	require.NoError(t, err)
	outputs := result.([]any)
	require.Len(t, outputs, 1)
	assert.Equal(t, []float32{10}, tensors.CopyFlatData[float32](outputs[0].(*tensors.Tensor)))

	// The engine argument survives graph serialization.
	sg, err := g.Serialize()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(sg))
	var decoded fx.SerializedGraph
	require.NoError(t, json.NewDecoder(&buf).Decode(&decoded))
	g2, err := decoded.Deserialize(nil)
	require.NoError(t, err)
	engine := g2.NodeByName("execute_engine").Arg(1).(Engine)
	assert.Equal(t, m.Engine().Info(), engine.Info())

	_, err = ExecuteEngine.Eval([]any{x, 1})
	require.ErrorContains(t, err, "tensorrt.execute_engine: inputs must be a list")
	_, err = ExecuteEngine.Eval([]any{[]any{x}})
	require.ErrorContains(t, err, "tensorrt.execute_engine takes 2 arguments")
	registered, found := fx.LookupFunction("tensorrt.execute_engine")
	require.True(t, found)
	assert.Same(t, ExecuteEngine, registered)
}
