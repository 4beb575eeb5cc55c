// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"encoding/json"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/pkg/errors"
)

// executeEngineName is the name ExecuteEngine is registered with.
const executeEngineName = "tensorrt.execute_engine"

// ExecuteEngine is the graph function that executes an engine: its arguments are the list of inputs
// and the Engine. It always returns the list ([]any) of outputs.
var ExecuteEngine = fx.RegisterFunction(&fx.Function{
	Name: executeEngineName,
	Eval: executeEngine,
})

func executeEngine(args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.Errorf("%s takes 2 arguments (inputs, engine), got %d", executeEngineName, len(args))
	}
	inputs, ok := args[0].([]any)
	if !ok {
		return nil, errors.Errorf("%s: inputs must be a list, got %T", executeEngineName, args[0])
	}
	engine, ok := args[1].(Engine)
	if !ok || engine == nil {
		return nil, errors.Errorf("%s: second argument must be an Engine, got %T", executeEngineName, args[1])
	}
	inputTensors, err := toTensors(inputs)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s(%s)", executeEngineName, engine.Name())
	}
	outputs, err := engine.Execute(inputTensors)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s(%s)", executeEngineName, engine.Name())
	}
	result := make([]any, len(outputs))
	for ii, output := range outputs {
		result[ii] = output
	}
	return result, nil
}

// engineCodecName identifies engine handles in serialized graphs.
const engineCodecName = "tensorrt.engine"

// serializedEngine is how an Engine argument is stored in a serialized graph.
type serializedEngine struct {
	Runtime string   `json:"runtime"`
	Fields  []string `json:"fields"`
}

func init() {
	fx.RegisterObjectCodec(&fx.ObjectCodec{
		Name: engineCodecName,
		Match: func(value any) bool {
			_, ok := value.(Engine)
			return ok
		},
		Encode: func(value any) ([]byte, error) {
			engine := value.(Engine)
			data, err := json.Marshal(serializedEngine{Runtime: engine.RuntimeName(), Fields: engine.Info().Fields()})
			return data, errors.Wrapf(err, "encoding engine %q", engine.Name())
		},
		Decode: decodeEngine,
	})
}

func decodeEngine(data []byte) (engine any, err error) {
	var se serializedEngine
	if err = json.Unmarshal(data, &se); err != nil {
		return nil, errors.Wrap(err, "decoding engine")
	}
	info, err := EngineInfoFromFields(se.Fields)
	if err != nil {
		return nil, err
	}
	var rt Runtime
	if err = exceptions.TryCatch[error](func() { rt = NewWithName(se.Runtime) }); err != nil {
		return nil, errors.WithMessagef(err, "decoding engine %q", info.Name)
	}
	return rt.NewEngine(info)
}
