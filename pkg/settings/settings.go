// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package settings holds the CompilationSettings that control engine building and export, and a
// parser for user-provided "key=value;key=value" settings strings.
package settings

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/trtexport/pkg/support/sets"
	"github.com/pkg/errors"
)

// DeviceType is the kind of device an engine runs on.
type DeviceType int

const (
	GPU DeviceType = iota
	DLA
)

// String implements fmt.Stringer.
func (t DeviceType) String() string {
	if t == DLA {
		return "dla"
	}
	return "gpu"
}

// Device an engine is built for.
type Device struct {
	Type DeviceType `json:"device_type"`

	// GPUID is the id of the GPU, also used when a DLA falls back to the GPU.
	GPUID int `json:"gpu_id"`

	// DLACore is the DLA core used, only meaningful for DLA devices.
	DLACore int `json:"dla_core"`

	AllowGPUFallback bool `json:"allow_gpu_fallback"`
}

// String returns the device in the "cuda:<id>" or "dla:<core>" format accepted by ParseDevice.
func (d Device) String() string {
	if d.Type == DLA {
		return fmt.Sprintf("dla:%d", d.DLACore)
	}
	return fmt.Sprintf("cuda:%d", d.GPUID)
}

// ParseDevice parses "cuda:<id>", "gpu:<id>", "dla:<core>" or just "cuda" (GPU 0).
func ParseDevice(spec string) (Device, error) {
	kind, idStr, hasID := strings.Cut(strings.ToLower(strings.TrimSpace(spec)), ":")
	id := 0
	if hasID {
		var err error
		id, err = strconv.Atoi(idStr)
		if err != nil || id < 0 {
			return Device{}, errors.Errorf("invalid device id in %q", spec)
		}
	}
	switch kind {
	case "cuda", "gpu":
		return Device{Type: GPU, GPUID: id}, nil
	case "dla":
		return Device{Type: DLA, DLACore: id, AllowGPUFallback: true}, nil
	}
	return Device{}, errors.Errorf("invalid device %q: valid formats are \"cuda:<id>\", \"gpu:<id>\" or \"dla:<core>\"", spec)
}

// CompilationSettings configure how engines are built and how the compiled program is exported.
type CompilationSettings struct {
	// EnabledPrecisions lists the dtypes the engine builder may use, e.g. "Float32", "Float16".
	EnabledPrecisions []string `json:"enabled_precisions"`

	// Debug makes the passes log their progress unconditionally.
	Debug bool `json:"debug"`

	// WorkspaceSize in bytes available to the engine builder, 0 for the builder default.
	WorkspaceSize int64 `json:"workspace_size"`

	// MinBlockSize is the minimum number of operators in an accelerated block.
	MinBlockSize int `json:"min_block_size"`

	// TorchExecutedOps are operators that must be executed on the host, e.g. "aten.sub.Tensor".
	TorchExecutedOps sets.Set[string] `json:"-"`

	PassThroughBuildFailures bool `json:"pass_through_build_failures"`
	VersionCompatible        bool `json:"version_compatible"`

	// OptimizationLevel of the engine builder, -1 for the builder default.
	OptimizationLevel int `json:"optimization_level"`

	TruncateDouble         bool `json:"truncate_double"`
	UseFastPartitioner     bool `json:"use_fast_partitioner"`
	RequireFullCompilation bool `json:"require_full_compilation"`
	NumAvgTimingIters      int  `json:"num_avg_timing_iters"`

	Device Device `json:"device"`

	// HardwareCompatible engines can run on other GPU architectures.
	HardwareCompatible bool `json:"hardware_compatible"`

	// OutputFormat of the export: "exported_program", "torchscript" or "graph_module".
	OutputFormat string `json:"output_format"`
}

// Default returns the default settings.
func Default() *CompilationSettings {
	return &CompilationSettings{
		EnabledPrecisions:  []string{"Float32"},
		MinBlockSize:       5,
		TorchExecutedOps:   sets.Make[string](),
		OptimizationLevel:  -1,
		UseFastPartitioner: true,
		NumAvgTimingIters:  1,
		Device:             Device{Type: GPU},
		OutputFormat:       "exported_program",
	}
}

// Clone returns a deep copy of the settings.
func (s *CompilationSettings) Clone() *CompilationSettings {
	clone := *s
	clone.EnabledPrecisions = slices.Clone(s.EnabledPrecisions)
	if s.TorchExecutedOps != nil {
		clone.TorchExecutedOps = s.TorchExecutedOps.Clone()
	}
	return &clone
}

// String lists the settings, one per line, in a stable order.
func (s *CompilationSettings) String() string {
	var sb strings.Builder
	for _, key := range Keys() {
		fmt.Fprintf(&sb, "%s=%s\n", key, s.format(key))
	}
	return sb.String()
}
