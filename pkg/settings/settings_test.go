// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/trtexport/pkg/support/sets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	s, err := Parse("min_block_size=2; debug=true;workspace_size=1_073_741_824;torch_executed_ops=aten.sub.Tensor, aten.mul.Tensor;device=dla:1")
	require.NoError(t, err)
	assert.Equal(t, 2, s.MinBlockSize)
	assert.True(t, s.Debug)
	assert.Equal(t, int64(1<<30), s.WorkspaceSize)
	assert.True(t, s.TorchExecutedOps.Equal(sets.MakeWith("aten.sub.Tensor", "aten.mul.Tensor")))
	assert.Equal(t, Device{Type: DLA, DLACore: 1, AllowGPUFallback: true}, s.Device)
	assert.Equal(t, "exported_program", s.OutputFormat, "untouched settings keep their default")

	_, err = Parse("unknown_key=1")
	require.ErrorContains(t, err, "unknown setting")
	_, err = Parse("min_block_size")
	require.ErrorContains(t, err, "<key>=<value>")
	_, err = Parse("min_block_size=many")
	require.ErrorContains(t, err, "failed to parse value")
	_, err = Parse("device=tpu:0")
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nhardware_compatible=true\n\noptimization_level=4;output_format=ts\n"), 0o644))
	s := Default()
	keys, err := s.Parse("debug=true;file:" + path)
	require.NoError(t, err)
	assert.Equal(t, []string{"debug", "hardware_compatible", "optimization_level", "output_format"}, keys)
	assert.True(t, s.HardwareCompatible)
	assert.Equal(t, 4, s.OptimizationLevel)
	assert.Equal(t, "ts", s.OutputFormat)

	_, err = s.Parse("file:" + filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestDevice(t *testing.T) {
	d, err := ParseDevice("cuda:3")
	require.NoError(t, err)
	assert.Equal(t, Device{Type: GPU, GPUID: 3}, d)
	assert.Equal(t, "cuda:3", d.String())
	d, err = ParseDevice("GPU")
	require.NoError(t, err)
	assert.Equal(t, 0, d.GPUID)
	_, err = ParseDevice("cuda:-1")
	require.Error(t, err)
}

func TestCloneAndString(t *testing.T) {
	s := Default()
	s.TorchExecutedOps.Insert("aten.add.Tensor")
	clone := s.Clone()
	clone.TorchExecutedOps.Insert("aten.sub.Tensor")
	clone.EnabledPrecisions[0] = "Float16"
	assert.Len(t, s.TorchExecutedOps, 1)
	assert.Equal(t, "Float32", s.EnabledPrecisions[0])
	assert.Contains(t, s.String(), "torch_executed_ops=aten.add.Tensor\n")
	assert.Contains(t, s.String(), "device=cuda:0\n")
	assert.Len(t, Keys(), 15)
}
