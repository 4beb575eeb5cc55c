// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hostrt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/core/tensors"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/runtime"
	"github.com/gomlx/trtexport/pkg/support/fsutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Engine implements runtime.Engine by interpreting its graph module.
type Engine struct {
	runtime                 *Runtime
	info                    runtime.EngineInfo
	module                  *fx.Module
	inputNames, outputNames []string

	mu         sync.Mutex
	profiling  bool
	profileDir string
}

var _ runtime.Engine = (*Engine)(nil)

// Name implements runtime.Engine.
func (e *Engine) Name() string { return e.info.Name }

// RuntimeName implements runtime.Engine.
func (e *Engine) RuntimeName() string { return Name }

// Info implements runtime.Engine.
func (e *Engine) Info() runtime.EngineInfo { return e.info }

// Module returns the graph module executed by the engine.
func (e *Engine) Module() *fx.Module { return e.module }

// Execute implements runtime.Engine.
func (e *Engine) Execute(inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	if len(inputs) != len(e.inputNames) {
		return nil, errors.Errorf("engine %q takes %d inputs (%q), got %d", e.info.Name, len(e.inputNames), e.inputNames, len(inputs))
	}
	args := make([]any, len(inputs))
	for ii, input := range inputs {
		args[ii] = input
	}
	start := time.Now()
	result, err := fx.Run(e.module, args...)
	elapsed := time.Since(start)
	if err != nil {
		return nil, errors.WithMessagef(err, "engine %q", e.info.Name)
	}
	outputs, err := e.collectOutputs(result)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	profiling, profileDir := e.profiling, e.profileDir
	e.mu.Unlock()
	if profiling {
		if err := e.writeTrace(profileDir, start, elapsed); err != nil {
			klog.Warningf("hostrt: failed to write profiling trace for engine %q: %+v", e.info.Name, err)
		}
	}
	return outputs, nil
}

func (e *Engine) collectOutputs(result any) ([]*tensors.Tensor, error) {
	values, isList := result.([]any)
	if !isList {
		values = []any{result}
	}
	if len(values) != len(e.outputNames) {
		return nil, errors.Errorf("engine %q produced %d outputs, but has %d output bindings (%q)",
			e.info.Name, len(values), len(e.outputNames), e.outputNames)
	}
	outputs := make([]*tensors.Tensor, len(values))
	for ii, value := range values {
		t, ok := value.(*tensors.Tensor)
		if !ok {
			return nil, errors.Errorf("engine %q output %q is a %T, not a tensor", e.info.Name, e.outputNames[ii], value)
		}
		outputs[ii] = t
	}
	return outputs, nil
}

// EnableProfiling implements runtime.Engine.
func (e *Engine) EnableProfiling(pathPrefix string) error {
	if pathPrefix == "" {
		pathPrefix = e.runtime.profileDir
	}
	dir, err := fsutil.ExpandPath(pathPrefix)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiling = true
	e.profileDir = dir
	return nil
}

// DisableProfiling implements runtime.Engine.
func (e *Engine) DisableProfiling() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiling = false
}

// traceEvent is one "complete" event in the Chrome trace event format.
type traceEvent struct {
	Name      string         `json:"name"`
	Category  string         `json:"cat"`
	Phase     string         `json:"ph"`
	Timestamp int64          `json:"ts"`
	Duration  int64          `json:"dur"`
	PID       int            `json:"pid"`
	TID       int            `json:"tid"`
	Args      map[string]any `json:"args,omitempty"`
}

// writeTrace writes one trace file per execution, named "<engine>_<uuid>.trace.json".
func (e *Engine) writeTrace(dir string, start time.Time, elapsed time.Duration) error {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.trace.json", fx.SanitizeName(e.info.Name), uuid.NewString()))
	if err := fsutil.EnsureParentDir(path); err != nil {
		return err
	}
	trace := struct {
		TraceEvents []traceEvent `json:"traceEvents"`
	}{
		TraceEvents: []traceEvent{{
			Name:      e.info.Name,
			Category:  "engine",
			Phase:     "X",
			Timestamp: start.UnixMicro(),
			Duration:  elapsed.Microseconds(),
			PID:       os.Getpid(),
			Args:      map[string]any{"inputs": e.inputNames, "outputs": e.outputNames},
		}},
	}
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding profiling trace")
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing profiling trace to %q", path)
	}
	klog.V(1).Infof("hostrt: wrote profiling trace %q", path)
	return nil
}

// LayerDescription is one layer (graph node) in the output of Engine.LayerInfo.
type LayerDescription struct {
	Name      string   `json:"Name"`
	LayerType string   `json:"LayerType"`
	Target    string   `json:"Target,omitempty"`
	Inputs    []string `json:"Inputs,omitempty"`
	Outputs   []string `json:"Outputs,omitempty"`
}

// LayerInfo implements runtime.Engine: it describes each computing node of the graph, with the
// shapes of its outputs when known.
func (e *Engine) LayerInfo() (string, error) {
	info := struct {
		Layers   []LayerDescription `json:"Layers"`
		Bindings []string           `json:"Bindings"`
	}{}
	for _, node := range e.module.Graph().Nodes() {
		if node.Op() == fx.OpPlaceholder || node.Op() == fx.OpOutput {
			continue
		}
		layer := LayerDescription{Name: node.Name(), LayerType: node.Op().String(), Target: node.Target()}
		for _, input := range node.InputNodes() {
			layer.Inputs = append(layer.Inputs, input.Name())
		}
		for _, shape := range fake.Shapes(node.Val()) {
			layer.Outputs = append(layer.Outputs, shape.String())
		}
		info.Layers = append(info.Layers, layer)
	}
	info.Bindings = append(append(info.Bindings, e.inputNames...), e.outputNames...)
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "encoding layer info of engine %q", e.info.Name)
	}
	return string(data), nil
}
