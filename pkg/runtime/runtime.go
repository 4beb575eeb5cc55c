// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package runtime defines the interface to the engine runtime: the system that deserializes compiled
// engines and executes them. It also provides TRTModule, the module wrapping an engine, and the
// ExecuteEngine function that graphs use to call engines directly.
//
// Runtimes register themselves (usually during package initialization) with Register, and are
// selected with New or NewWithName. See package hostrt for a pure Go reference runtime.
//
// To simplify error handling, the registry functions panic (see package github.com/gomlx/exceptions)
// when no runtime can be found.
package runtime

import (
	"os"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/trtexport/pkg/core/tensors"
)

// Runtime builds engines from their serialized records.
type Runtime interface {
	// Name returns the short name of the runtime. E.g.: "host".
	Name() string

	// ABIVersion of the engine records the runtime accepts.
	ABIVersion() string

	// BindingDelimiter is used to pack the lists of binding names into a single string.
	BindingDelimiter() string

	// NewEngine deserializes and loads an engine.
	NewEngine(info EngineInfo) (Engine, error)
}

// Engine is a loaded compiled engine.
type Engine interface {
	// Name of the engine.
	Name() string

	// RuntimeName returns the name of the runtime that created the engine.
	RuntimeName() string

	// Info returns the serialized record of the engine, from which it can be recreated.
	Info() EngineInfo

	// Execute the engine on the inputs, in the order of the input bindings. It returns the outputs
	// in the order of the output bindings.
	Execute(inputs []*tensors.Tensor) ([]*tensors.Tensor, error)

	// EnableProfiling makes the following executions write a trace under the pathPrefix directory.
	// If pathPrefix is empty, a runtime specific default is used.
	EnableProfiling(pathPrefix string) error

	// DisableProfiling stops collecting traces.
	DisableProfiling()

	// LayerInfo returns a JSON description of the layers of the engine.
	LayerInfo() (string, error)
}

// Constructor takes a config string (optionally empty) and returns a Runtime.
type Constructor func(config string) (Runtime, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a runtime with the given name, and a constructor that takes as input a configuration string.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// Registered returns the names of the registered runtimes, sorted.
func Registered() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultName is the configuration of the runtime used by New, if TRTEXPORT_RUNTIME is not set.
//
// See NewWithName for the format of the configuration string.
var DefaultName string

// TRTEXPORT_RUNTIME is the environment variable with the default runtime configuration to use.
//
// The format is "<runtime_name>:<runtime_configuration>", where "<runtime_configuration>" is runtime specific.
const TRTEXPORT_RUNTIME = "TRTEXPORT_RUNTIME"

// New returns a new default Runtime.
//
// The default is:
//
// 1. The environment variable TRTEXPORT_RUNTIME, if defined.
// 2. Next the variable DefaultName, if defined.
// 3. The first registered runtime, with an empty configuration.
//
// It panics if no runtime was registered or if the runtime fails to initialize.
func New() Runtime {
	if config, found := os.LookupEnv(TRTEXPORT_RUNTIME); found {
		return NewWithName(config)
	}
	return NewWithName(DefaultName)
}

// NewWithName creates the runtime given by config, formatted as "<runtime_name>:<runtime_configuration>".
// If the runtime name is empty, the first registered runtime is used.
func NewWithName(config string) Runtime {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered runtimes -- maybe import the reference one with import _ "github.com/gomlx/trtexport/pkg/runtime/hostrt"?`)
	}
	name, runtimeConfig, _ := strings.Cut(config, ":")
	if name == "" {
		name = firstRegistered
	}
	constructor, found := registeredConstructors[name]
	if !found {
		exceptions.Panicf("can't find runtime %q for configuration %q, registered runtimes: %q", name, config, Registered())
	}
	rt, err := constructor(runtimeConfig)
	if err != nil {
		panic(err)
	}
	return rt
}
